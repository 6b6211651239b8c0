package capture

import "fmt"

// Point is a viewport coordinate in CSS pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a box size in CSS pixels.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Rect is a bounding box in viewport coordinates.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// State is the toolbar presentation state. The machine is strictly
// Idle → Selected → Pending → Idle; Selected also falls back to Idle when
// the selection is cleared.
type State int

const (
	// StateIdle: no active selection, toolbar hidden.
	StateIdle State = iota
	// StateSelected: a settled non-empty selection exists, toolbar shown.
	StateSelected
	// StatePending: a save is in flight, toolbar hidden.
	StatePending
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSelected:
		return "selected"
	case StatePending:
		return "pending"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Toolbar is the finite-state machine behind the floating toolbar. It is
// a plain value owned by one Agent: no DOM, no globals. The Agent drives
// it from its event loop and mirrors the state onto the page surface.
type Toolbar struct {
	state  State
	snap   *Snapshot
	pos    Point
	size   Size
	margin float64
}

// NewToolbar creates a toolbar machine with the given rendered size and
// viewport margin.
func NewToolbar(size Size, margin float64) *Toolbar {
	return &Toolbar{size: size, margin: margin}
}

// State returns the current presentation state.
func (t *Toolbar) State() State { return t.state }

// Position returns the last computed toolbar position. Meaningful only in
// StateSelected.
func (t *Toolbar) Position() Point { return t.pos }

// Select installs a settled selection and computes where the toolbar
// goes. It reports false while a save is pending: a new selection cannot
// interrupt an in-flight record.
func (t *Toolbar) Select(snap *Snapshot) (Point, bool) {
	if t.state == StatePending {
		return Point{}, false
	}
	t.state = StateSelected
	t.snap = snap
	t.pos = t.position(snap)
	return t.pos, true
}

// Clear handles a selection-clear. It reports true when the toolbar was
// visible and must now be hidden. A pending save is unaffected: its
// completion will finish the transition to Idle.
func (t *Toolbar) Clear() bool {
	if t.state != StateSelected {
		return false
	}
	t.state = StateIdle
	t.snap = nil
	return true
}

// BeginSave transitions Selected → Pending and hands out the snapshot the
// record must be built from. It reports false outside StateSelected.
func (t *Toolbar) BeginSave() (*Snapshot, bool) {
	if t.state != StateSelected {
		return nil, false
	}
	t.state = StatePending
	snap := t.snap
	t.snap = nil
	return snap, true
}

// Finish completes a pending save, successful or not, returning to Idle.
func (t *Toolbar) Finish() bool {
	if t.state != StatePending {
		return false
	}
	t.state = StateIdle
	return true
}

// position anchors the toolbar centred above the selection (below it when
// there is no room above) and clamps both axes into
// [margin, viewport − toolbar − margin] so it is never rendered
// off-screen.
func (t *Toolbar) position(snap *Snapshot) Point {
	const gap = 8

	x := snap.Rect.X + snap.Rect.Width/2 - t.size.Width/2
	y := snap.Rect.Y - t.size.Height - gap
	if y < t.margin {
		y = snap.Rect.Y + snap.Rect.Height + gap
	}

	return Point{
		X: clamp(x, t.margin, snap.Viewport.Width-t.size.Width-t.margin),
		Y: clamp(y, t.margin, snap.Viewport.Height-t.size.Height-t.margin),
	}
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		// Viewport smaller than the toolbar itself; pin to the margin.
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
