// Package thumbnail renders a three-view preview of a mesh.
//
// The image is 900x315: three 300x300 orthographic views (XY, XZ, YZ) over a
// grid, one colour per material, and a size legend along the bottom.
package thumbnail

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"path/filepath"

	"github.com/HugoSmits86/nativewebp"
	"github.com/chewxy/math32"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/Faultbox/xmftool/internal/atomicfile"
	"github.com/Faultbox/xmftool/pkg/math"
	"github.com/Faultbox/xmftool/pkg/xmf"
)

const (
	Width  = 900
	Height = 315

	viewSize = 300
	half     = viewSize / 2
	gridStep = 30
)

var (
	white = color.RGBA{255, 255, 255, 255}
	black = color.RGBA{0, 0, 0, 255}
	grey  = color.RGBA{192, 192, 192, 255}
)

// Color returns the fill colour of material group i. The sequence is fixed
// so previews of the same model always match.
func Color(i int) color.RGBA {
	u := uint64(i)
	r := (u * 64621 % 256) * (u * 64621 % 256) % 256
	g := u * 12415 % 256
	g = g * g % 256
	g = g * g % 256
	b := u * 834793 * 3 % 256
	return color.RGBA{uint8(r), uint8(g), uint8(b), 255}
}

// Extents describes the mesh bounds as shown in the legend.
type Extents struct {
	Min, Max math.Vec3
	// MaxAbs is the largest absolute coordinate; views are scaled by it.
	MaxAbs float32
}

// Size returns the bounding box dimensions.
func (e Extents) Size() math.Vec3 { return e.Max.Sub(e.Min) }

// Legend returns the caption printed under the views.
func (e Extents) Legend() string {
	s := e.Size()
	return fmt.Sprintf("SIZE: %0.1fm x %0.1fm x %0.1fm | SQR SIZE: %0.1fm", s.X, s.Y, s.Z, e.MaxAbs/5)
}

// Measure returns the mesh extents. The bounds always include the origin.
func Measure(m *xmf.Mesh) Extents {
	var e Extents
	for _, v := range m.Vertices {
		e.Min = e.Min.Min(v.Position)
		e.Max = e.Max.Max(v.Position)
		e.MaxAbs = math32.Max(e.MaxAbs, v.Position.MaxAbs())
	}
	return e
}

type projection func(p math.Vec3, scale float32) (float32, float32)

var views = []projection{
	func(p math.Vec3, s float32) (float32, float32) { return half + s*p.X, half - s*p.Y },
	func(p math.Vec3, s float32) (float32, float32) { return 3*half + s*p.X, half + s*p.Z },
	func(p math.Vec3, s float32) (float32, float32) { return 5*half - s*p.Y, half + s*p.Z },
}

// Render draws the preview.
func Render(m *xmf.Mesh) (*image.RGBA, error) {
	groups, err := m.Groups()
	if err != nil {
		return nil, err
	}

	img := image.NewRGBA(image.Rect(0, 0, Width, Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(white), image.Point{}, draw.Src)
	drawGrid(img)

	ext := Measure(m)
	if ext.MaxAbs > 0 {
		scale := half / ext.MaxAbs
		viewport := image.Rect(0, 0, Width, viewSize)
		r := vector.NewRasterizer(Width, viewSize)
		for gi, g := range groups {
			fill := image.NewUniform(Color(gi))
			for _, view := range views {
				r.Reset(Width, viewSize)
				for _, t := range g.Triangles {
					addTriangle(r, view, scale,
						m.Vertices[t[0]].Position, m.Vertices[t[1]].Position, m.Vertices[t[2]].Position)
				}
				r.Draw(img, viewport, fill, image.Point{})
			}
		}
	}

	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(black),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(3, viewSize+3+basicfont.Face7x13.Ascent),
	}
	d.DrawString(ext.Legend())
	return img, nil
}

// addTriangle adds one projected triangle, wound consistently so that
// overlapping triangles do not cancel each other's coverage.
func addTriangle(r *vector.Rasterizer, view projection, scale float32, a, b, c math.Vec3) {
	ax, ay := view(a, scale)
	bx, by := view(b, scale)
	cx, cy := view(c, scale)
	if (bx-ax)*(cy-ay)-(by-ay)*(cx-ax) < 0 {
		bx, by, cx, cy = cx, cy, bx, by
	}
	r.MoveTo(ax, ay)
	r.LineTo(bx, by)
	r.LineTo(cx, cy)
	r.ClosePath()
}

func drawGrid(img *image.RGBA) {
	for x := 0; x < Width; x += gridStep {
		vline(img, x, grey)
	}
	for y := 0; y < viewSize; y += gridStep {
		hline(img, y, grey)
	}
	hline(img, half, black)
	for _, x := range []int{half, 3 * half, 5 * half} {
		vline(img, x, black)
	}
	for _, x := range []int{viewSize, 2 * viewSize} {
		vline(img, x, white)
	}
}

func vline(img *image.RGBA, x int, c color.RGBA) {
	for y := 0; y < viewSize; y++ {
		img.SetRGBA(x, y, c)
	}
}

func hline(img *image.RGBA, y int, c color.RGBA) {
	for x := 0; x < Width; x++ {
		img.SetRGBA(x, y, c)
	}
}

// Encode renders the preview and writes it as lossless WebP.
func Encode(w io.Writer, m *xmf.Mesh) error {
	img, err := Render(m)
	if err != nil {
		return err
	}
	if err := nativewebp.Encode(w, img, nil); err != nil {
		return fmt.Errorf("webp encode: %w", err)
	}
	return nil
}

// WriteFile renders the preview to path atomically.
func WriteFile(path string, m *xmf.Mesh) error {
	return atomicfile.Write(path, 0644, func(w io.Writer) error {
		return Encode(w, m)
	})
}

// Path returns where the preview of a model directory is written.
func Path(dir, model string) string {
	return filepath.Join(dir, model+".webp")
}
