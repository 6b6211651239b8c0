package capture

import (
	"strings"

	"github.com/marginote/marginote/envelope"
	"github.com/marginote/marginote/snippet"
)

// ParseTags splits a comma-separated user input into an ordered tag
// sequence: trimmed, empty entries dropped, order preserved. An input
// with no usable tags yields an empty (non-nil) slice.
func ParseTags(input string) []string {
	tags := []string{}
	for _, part := range strings.Split(input, ",") {
		if tag := strings.TrimSpace(part); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// buildRecord turns a settled snapshot into the immutable capture record.
// When the selection carried markup, content is its sanitized markdown
// rendering; otherwise the plain text. A note appends to the content and
// retags the record.
func buildRecord(conv *snippet.Converter, snap *Snapshot, tags []string, note string) envelope.CaptureRecord {
	content := strings.TrimSpace(snap.Text)
	if snap.HTML != "" {
		if md, err := conv.Markdown(snap.HTML); err == nil && md != "" {
			content = md
		}
	}

	kind := envelope.RecordCapture
	if note != "" {
		content += "\n\nNote: " + note
		kind = envelope.RecordNote
	}

	if tags == nil {
		tags = []string{}
	}

	return envelope.CaptureRecord{
		Title:     snap.PageTitle,
		Content:   content,
		SourceURL: snap.PageURL,
		Tags:      tags,
		Kind:      kind,
	}
}
