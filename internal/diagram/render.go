package diagram

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"git.sr.ht/~sbinet/gg"
	svg "github.com/ajstarks/svgo"
	"golang.org/x/image/font/basicfont"
)

// Drawing constants in pixels.
const (
	minWidthPx   = 800
	marginPx     = 80
	sideMarginPx = 160
	nodeRadiusPx = 26
	minXScalePx  = 70
	minArrowPx   = 9
	edgeColor    = "#9ca3af"
	labelColor   = "#111827"
	background   = "#ffffff"
)

// canvas maps layout units to pixels.
type canvas struct {
	width, height int
	sx, sy        float64
	top           float64
	arrow         float64
}

func newCanvas(l *Layout) canvas {
	c := canvas{height: l.HeightPx}
	if len(l.Nodes) == 0 {
		c.width = minWidthPx
		return c
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	maxX := 0.0
	for _, n := range l.Nodes {
		lo, hi = math.Min(lo, n.Pos.Y), math.Max(hi, n.Pos.Y)
		maxX = math.Max(maxX, math.Abs(n.Pos.X))
	}

	c.sy = 60
	if hi > lo {
		c.sy = float64(c.height-2*marginPx) / (hi - lo)
	}
	c.top = hi
	if hi == lo {
		c.top = hi + float64(c.height-2*marginPx)/(2*c.sy)
	}
	c.sx = math.Max(c.sy, minXScalePx)
	c.width = max(minWidthPx, int(2*maxX*c.sx)+2*sideMarginPx)
	c.arrow = math.Max(ArrowSize*c.sy, minArrowPx)
	return c
}

func (c canvas) px(p Point) Point {
	return Point{
		X: float64(c.width)/2 + p.X*c.sx,
		Y: marginPx + (c.top-p.Y)*c.sy,
	}
}

// edgePixels converts an edge to pixel space. The arrow tip is pulled back to the target node's
// boundary along the curve's terminal direction.
func (c canvas) edgePixels(e EdgeLayout) ([]Point, [3]Point) {
	path := make([]Point, len(e.Path))
	for i, p := range e.Path {
		path[i] = c.px(p)
	}
	end := path[len(path)-1]
	dir := end.sub(c.px(e.Control))
	if dir.length() == 0 {
		dir = Point{Y: 1}
	}
	tip := end.sub(unit(dir).scale(nodeRadiusPx))
	return path, ArrowHead(tip, dir, c.arrow)
}

func ints(points []Point) ([]int, []int) {
	xs := make([]int, len(points))
	ys := make([]int, len(points))
	for i, p := range points {
		xs[i], ys[i] = int(math.Round(p.X)), int(math.Round(p.Y))
	}
	return xs, ys
}

// RenderSVG draws the layout as an SVG document.
func RenderSVG(w io.Writer, l *Layout) error {
	c := newCanvas(l)
	s := svg.New(w)
	s.Start(c.width, c.height)
	s.Rect(0, 0, c.width, c.height, "fill:"+background)

	for _, e := range l.Edges {
		path, arrow := c.edgePixels(e)
		xs, ys := ints(path)
		s.Polyline(xs, ys, fmt.Sprintf("fill:none;stroke:%s;stroke-width:2", edgeColor))
		ax, ay := ints(arrow[:])
		s.Polygon(ax, ay, "fill:"+edgeColor)
	}

	for _, n := range l.Nodes {
		p := c.px(n.Pos)
		x, y := int(math.Round(p.X)), int(math.Round(p.Y))
		s.Group(fmt.Sprintf(`class="node node-%s"`, n.Kind))
		s.Title(fmt.Sprintf("%s\n%s: %s", n.Name, n.Style.Label, n.Style.Description))
		s.Circle(x, y, nodeRadiusPx, fmt.Sprintf("fill:%s;stroke:%s;stroke-width:3", n.Style.Fill, n.Style.Border))
		s.Text(x, y+6, n.Style.Icon, "text-anchor:middle;font-size:18px")
		s.Text(x, y+nodeRadiusPx+18, n.Name, fmt.Sprintf("text-anchor:middle;font-family:sans-serif;font-size:13px;font-weight:bold;fill:%s", labelColor))
		s.Gend()
	}

	s.End()
	return nil
}

// RenderPNG draws the layout as a PNG image. Icons are omitted since the bitmap font has no
// emoji glyphs.
func RenderPNG(w io.Writer, l *Layout) error {
	c := newCanvas(l)
	dc := gg.NewContext(c.width, c.height)
	dc.SetHexColor(background)
	dc.Clear()
	dc.SetFontFace(basicfont.Face7x13)

	for _, e := range l.Edges {
		path, arrow := c.edgePixels(e)
		dc.SetHexColor(edgeColor)
		dc.SetLineWidth(2)
		dc.NewSubPath()
		for i, p := range path {
			if i == 0 {
				dc.MoveTo(p.X, p.Y)
			} else {
				dc.LineTo(p.X, p.Y)
			}
		}
		dc.Stroke()

		dc.NewSubPath()
		dc.MoveTo(arrow[0].X, arrow[0].Y)
		dc.LineTo(arrow[1].X, arrow[1].Y)
		dc.LineTo(arrow[2].X, arrow[2].Y)
		dc.ClosePath()
		dc.Fill()
	}

	for _, n := range l.Nodes {
		p := c.px(n.Pos)
		dc.SetHexColor(n.Style.Fill)
		dc.DrawCircle(p.X, p.Y, nodeRadiusPx)
		dc.Fill()
		dc.SetHexColor(n.Style.Border)
		dc.SetLineWidth(3)
		dc.DrawCircle(p.X, p.Y, nodeRadiusPx)
		dc.Stroke()

		dc.SetHexColor(labelColor)
		dc.DrawStringAnchored(n.Name, p.X, p.Y+nodeRadiusPx+14, 0.5, 0.5)
	}

	return dc.EncodePNG(w)
}

// WriteFile renders the layout to path. The format follows the extension: .png or .svg.
func WriteFile(path string, l *Layout) error {
	var render func(io.Writer, *Layout) error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".svg":
		render = RenderSVG
	case ".png":
		render = RenderPNG
	default:
		return fmt.Errorf("unsupported diagram format %q (want .svg or .png)", filepath.Ext(path))
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := render(file, l); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}
