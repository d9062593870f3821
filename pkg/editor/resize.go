package editor

import (
	"fmt"
	"strings"

	"rich-edit/pkg/document"
)

// Corner names a resize handle.
type Corner string

const (
	NorthWest Corner = "nw"
	NorthEast Corner = "ne"
	SouthWest Corner = "sw"
	SouthEast Corner = "se"
)

func (c Corner) valid() bool {
	switch c {
	case NorthWest, NorthEast, SouthWest, SouthEast:
		return true
	}
	return false
}

type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Resize is a drag on one of an image's corner handles.
type Resize struct {
	e      *Editor
	at     Position
	corner Corner
	origin Point
	start  Size
	size   Size
}

// imageAt returns the image occupying offset p.Offset of its textblock.
func (e *Editor) imageAt(p Position) (*document.Image, error) {
	n := e.doc.NodeAt(p.Path)
	if n == nil || !n.IsTextblock() {
		return nil, ErrUnknownPosition
	}
	if n.Type == document.CodeBlock {
		return nil, ErrNoImage
	}
	pos := 0
	for _, in := range n.Content {
		if pos == p.Offset && in.Kind == document.InlineImage {
			return in.Image, nil
		}
		pos += in.Len()
		if pos > p.Offset {
			break
		}
	}
	return nil, ErrNoImage
}

// BeginResize starts dragging corner of the image at pos. current is the
// rendered box size, used when the image has no explicit size yet.
func (e *Editor) BeginResize(pos Position, corner Corner, origin Point, current Size) (*Resize, error) {
	if !corner.valid() {
		return nil, fmt.Errorf("%w: corner %q", ErrInvalidCommand, corner)
	}
	img, err := e.imageAt(pos)
	if err != nil {
		return nil, err
	}
	start := Size{Width: img.Width, Height: img.Height}
	if current.Width > 0 && current.Height > 0 {
		start = current
	}
	if start.Width == 0 || start.Height == 0 {
		start = Size{Width: e.maxImageSize(), Height: e.maxImageSize()}
	}
	start = e.clampSize(start)
	return &Resize{
		e:      e,
		at:     pos.clone(),
		corner: corner,
		origin: origin,
		start:  start,
		size:   start,
	}, nil
}

// Move applies the pointer position and returns the clamped box. The
// document is updated live without notifying the host.
func (r *Resize) Move(pt Point) Size {
	dx, dy := pt.X-r.origin.X, pt.Y-r.origin.Y
	w, h := r.start.Width, r.start.Height
	if strings.Contains(string(r.corner), "e") {
		w += dx
	} else {
		w -= dx
	}
	if strings.Contains(string(r.corner), "s") {
		h += dy
	} else {
		h -= dy
	}

	r.size = r.e.clampSize(Size{Width: w, Height: h})
	if img, err := r.e.imageAt(r.at); err == nil {
		img.Width, img.Height = r.size.Width, r.size.Height
	}
	return r.size
}

func (r *Resize) Size() Size { return r.size }

func (e *Editor) clampSize(s Size) Size {
	limit := e.maxImageSize()
	return Size{
		Width:  min(max(s.Width, MinImageSize), limit),
		Height: min(max(s.Height, MinImageSize), limit),
	}
}

// End commits the new size.
func (r *Resize) End() Size {
	if img, err := r.e.imageAt(r.at); err == nil {
		img.Width, img.Height = r.size.Width, r.size.Height
		r.e.changed()
	}
	return r.size
}
