package capture

import "testing"

func testSnap(rect Rect, viewport Size) *Snapshot {
	return &Snapshot{
		Text:      "hello world",
		PageTitle: "Test Page",
		PageURL:   "https://example.com/test",
		Rect:      rect,
		Viewport:  viewport,
	}
}

func TestToolbarTransitions(t *testing.T) {
	tb := NewToolbar(Size{Width: 240, Height: 40}, 10)
	if tb.State() != StateIdle {
		t.Fatalf("initial state = %v", tb.State())
	}

	if _, ok := tb.BeginSave(); ok {
		t.Fatal("BeginSave allowed from Idle")
	}
	if tb.Clear() {
		t.Fatal("Clear reported a hide from Idle")
	}

	snap := testSnap(Rect{X: 300, Y: 300, Width: 100, Height: 20}, Size{Width: 1280, Height: 800})
	if _, ok := tb.Select(snap); !ok {
		t.Fatal("Select refused from Idle")
	}
	if tb.State() != StateSelected {
		t.Fatalf("state = %v after Select", tb.State())
	}

	got, ok := tb.BeginSave()
	if !ok || got != snap {
		t.Fatal("BeginSave did not hand back the selected snapshot")
	}
	if tb.State() != StatePending {
		t.Fatalf("state = %v after BeginSave", tb.State())
	}

	// A new selection cannot interrupt a pending save.
	if _, ok := tb.Select(snap); ok {
		t.Fatal("Select allowed while Pending")
	}
	// Neither can a clear.
	if tb.Clear() {
		t.Fatal("Clear reported a hide while Pending")
	}

	if !tb.Finish() {
		t.Fatal("Finish refused from Pending")
	}
	if tb.State() != StateIdle {
		t.Fatalf("state = %v after Finish", tb.State())
	}
	if tb.Finish() {
		t.Fatal("double Finish reported a transition")
	}
}

func TestToolbarClearFromSelected(t *testing.T) {
	tb := NewToolbar(Size{Width: 240, Height: 40}, 10)
	tb.Select(testSnap(Rect{X: 50, Y: 50, Width: 10, Height: 10}, Size{Width: 800, Height: 600}))
	if !tb.Clear() {
		t.Fatal("Clear refused from Selected")
	}
	if tb.State() != StateIdle {
		t.Fatalf("state = %v after Clear", tb.State())
	}
}

func TestToolbarPositionClamped(t *testing.T) {
	size := Size{Width: 240, Height: 40}
	const margin = 10

	cases := []struct {
		name     string
		rect     Rect
		viewport Size
	}{
		{"centered", Rect{X: 500, Y: 400, Width: 120, Height: 20}, Size{Width: 1280, Height: 800}},
		{"top left corner", Rect{X: 0, Y: 0, Width: 5, Height: 5}, Size{Width: 1280, Height: 800}},
		{"bottom right corner", Rect{X: 1270, Y: 790, Width: 10, Height: 10}, Size{Width: 1280, Height: 800}},
		{"selection wider than viewport", Rect{X: -200, Y: 100, Width: 2000, Height: 20}, Size{Width: 1024, Height: 768}},
		{"narrow viewport", Rect{X: 100, Y: 100, Width: 50, Height: 12}, Size{Width: 320, Height: 480}},
		{"selection at very top", Rect{X: 400, Y: 2, Width: 80, Height: 14}, Size{Width: 1280, Height: 800}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tb := NewToolbar(size, margin)
			pos, ok := tb.Select(testSnap(tc.rect, tc.viewport))
			if !ok {
				t.Fatal("Select refused")
			}
			maxX := tc.viewport.Width - size.Width - margin
			maxY := tc.viewport.Height - size.Height - margin
			if pos.X < margin || pos.X > maxX {
				t.Fatalf("x = %v outside [%v, %v]", pos.X, float64(margin), maxX)
			}
			if pos.Y < margin || pos.Y > maxY {
				t.Fatalf("y = %v outside [%v, %v]", pos.Y, float64(margin), maxY)
			}
		})
	}
}
