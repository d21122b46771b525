package replay

// Projector maps domain coordinates into viewport pixels using a single
// isotropic scale and a centering offset. The transform is fixed for a
// given (bounds, viewport) pair, which keeps trail points valid across
// frames; it is rebuilt only on resize or dataset swap.
type Projector struct {
	bounds  Bounds
	width   float64
	height  float64
	scale   float64
	offsetX float64
	offsetY float64
}

// NewProjector derives the transform that centers bounds in a
// width×height viewport with the given margin and operator framing
// offset. The scale is uniform on both axes to avoid distortion.
func NewProjector(bounds Bounds, width, height, margin, offsetX, offsetY float64) *Projector {
	usableW := width - 2*margin
	usableH := height - 2*margin
	if usableW <= 0 {
		usableW = width
	}
	if usableH <= 0 {
		usableH = height
	}

	scale := 1.0
	if bounds.Width() > 0 || bounds.Height() > 0 {
		sx := usableW / bounds.Width()
		sy := usableH / bounds.Height()
		switch {
		case bounds.Width() <= 0:
			scale = sy
		case bounds.Height() <= 0:
			scale = sx
		case sx < sy:
			scale = sx
		default:
			scale = sy
		}
	}

	centerX := bounds.MinX + bounds.Width()/2
	centerY := bounds.MinY + bounds.Height()/2

	return &Projector{
		bounds:  bounds,
		width:   width,
		height:  height,
		scale:   scale,
		offsetX: width/2 - centerX*scale + offsetX,
		offsetY: height/2 + centerY*scale + offsetY,
	}
}

// Project converts a domain point to viewport pixels. The Y axis is
// flipped so that increasing domain Y renders upward on screen.
func (p *Projector) Project(point Point) Point {
	return Point{
		X: point.X*p.scale + p.offsetX,
		Y: -point.Y*p.scale + p.offsetY,
	}
}

// ProjectAll converts a polyline in one pass.
func (p *Projector) ProjectAll(points []Point) []Point {
	out := make([]Point, len(points))
	for i, point := range points {
		out[i] = p.Project(point)
	}
	return out
}

// Scale returns the uniform domain-to-pixel scale factor.
func (p *Projector) Scale() float64 {
	return p.scale
}

// Viewport returns the target surface dimensions.
func (p *Projector) Viewport() (width, height float64) {
	return p.width, p.height
}
