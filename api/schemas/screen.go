package schemas

import (
	"time"
)

// -- Screen Schemas --

// Bounds is an on-screen rectangle in integer pixels.
type Bounds struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
}

// Width of the rectangle. Negative widths are reported as zero.
func (b Bounds) Width() int {
	if b.Right < b.Left {
		return 0
	}
	return b.Right - b.Left
}

// Height of the rectangle. Negative heights are reported as zero.
func (b Bounds) Height() int {
	if b.Bottom < b.Top {
		return 0
	}
	return b.Bottom - b.Top
}

// Center returns the midpoint, which is where pointer gestures land.
func (b Bounds) Center() Point {
	return Point{X: (b.Left + b.Right) / 2, Y: (b.Top + b.Bottom) / 2}
}

// Point is a screen coordinate.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// UIElement is one node of the on-screen element tree.
type UIElement struct {
	// ID is stable within a single snapshot only.
	ID                 string      `json:"id"`
	ClassName          string      `json:"class_name"`
	Text               string      `json:"text,omitempty"`
	ContentDescription string      `json:"content_description,omitempty"`
	Bounds             Bounds      `json:"bounds"`
	Clickable          bool        `json:"clickable"`
	Editable           bool        `json:"editable"`
	Scrollable         bool        `json:"scrollable"`
	Focusable          bool        `json:"focusable"`
	ResourceID         string      `json:"resource_id,omitempty"`
	Children           []UIElement `json:"children,omitempty"`
}

// ScreenState is one immutable capture of the foreground UI.
type ScreenState struct {
	PackageName  string      `json:"package_name"`
	ActivityName string      `json:"activity_name,omitempty"`
	Elements     []UIElement `json:"elements"`
	Timestamp    time.Time   `json:"timestamp"`
}

// MaxTreeDepth bounds every walk over an element tree.
const MaxTreeDepth = 15
