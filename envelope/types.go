package envelope

// RecordKind distinguishes plain captures from captures with an attached
// user note.
type RecordKind string

const (
	RecordCapture RecordKind = "capture"
	RecordNote    RecordKind = "note"
)

// CaptureRecord is the payload of one saved selection. It is built by the
// capture agent at the moment of a save action, immutable once sent, and
// never persisted locally: the remote API accepts it or the failure is
// reported and the record dropped.
type CaptureRecord struct {
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	SourceURL string     `json:"source_url"`
	Tags      []string   `json:"tags"`
	Kind      RecordKind `json:"annotation_type"`
}

// AnnotationKind distinguishes bare highlights from highlights carrying a
// note.
type AnnotationKind string

const (
	AnnotationHighlight AnnotationKind = "highlight"
	AnnotationNote      AnnotationKind = "note"
)

// Annotation is one highlight on a page, identified externally by the
// (source URL, xpath) pair. Only the bulk-sync path uses it.
type Annotation struct {
	ID    string         `json:"id,omitempty"`
	Text  string         `json:"text"`
	XPath string         `json:"xpath"`
	Color string         `json:"color"`
	Note  string         `json:"note,omitempty"`
	Kind  AnnotationKind `json:"annotation_type"`
}

// CardSummary is one entry of the recent-captures listing shown in the
// popup view.
type CardSummary struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	SourceURL string   `json:"source_url"`
	Tags      []string `json:"tags"`
	CreatedAt int64    `json:"created_at"`
}

// SubmitResult is the relay's data payload for a successful submit.
type SubmitResult struct {
	CardID  string `json:"card_id"`
	Message string `json:"message,omitempty"`
}

// SyncResult is the relay's data payload for a successful annotation sync.
type SyncResult struct {
	AnnotationIDs []string `json:"annotation_ids"`
	Count         int      `json:"count"`
}

// AnnotationsResult is the relay's data payload for an annotation fetch.
type AnnotationsResult struct {
	Annotations []Annotation `json:"annotations"`
	Count       int          `json:"count"`
}

// RecentResult is the relay's data payload for a recent-captures fetch.
type RecentResult struct {
	Cards []CardSummary `json:"cards"`
}
