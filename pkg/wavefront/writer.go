package wavefront

import (
	"bufio"
	"fmt"
	"io"

	"github.com/Faultbox/xmftool/pkg/math"
)

// Writer emits OBJ or MTL statements. The first write error sticks and is
// returned by Flush.
type Writer struct {
	w   *bufio.Writer
	err error
}

// NewWriter returns a buffered statement writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

func (w *Writer) printf(format string, args ...any) {
	if w.err != nil {
		return
	}
	_, w.err = fmt.Fprintf(w.w, format, args...)
}

// Blank writes an empty line.
func (w *Writer) Blank() { w.printf("\n") }

// Statement writes a raw keyword line, used for MTL properties.
func (w *Writer) Statement(keyword string, args ...string) {
	w.printf("%s", keyword)
	for _, a := range args {
		w.printf(" %s", a)
	}
	w.printf("\n")
}

// MaterialLib writes an mtllib reference.
func (w *Writer) MaterialLib(name string) { w.printf("mtllib %s\n", name) }

// Position writes a v line.
func (w *Writer) Position(v math.Vec3) { w.printf("v %.3f %.3f %.3f\n", v.X, v.Y, v.Z) }

// Normal writes a vn line.
func (w *Writer) Normal(n math.Vec3) { w.printf("vn %.3f %.3f %.3f\n", n.X, n.Y, n.Z) }

// TexCoord writes a vt line.
func (w *Writer) TexCoord(uv math.Vec2) { w.printf("vt %.3f %.3f\n", uv.X, uv.Y) }

// Group writes a g line.
func (w *Writer) Group(name string) { w.printf("g %s\n", name) }

// UseMaterial writes a usemtl line.
func (w *Writer) UseMaterial(name string) { w.printf("usemtl %s\n", name) }

// NewMaterial writes a newmtl line.
func (w *Writer) NewMaterial(name string) { w.printf("newmtl %s\n", name) }

// Face writes an f line. Corner indices are zero-based and written one-based;
// negative T or N omit that reference.
func (w *Writer) Face(corners ...Corner) {
	w.printf("f")
	for _, c := range corners {
		switch {
		case c.HasUV() && c.HasNormal():
			w.printf(" %d/%d/%d", c.V+1, c.T+1, c.N+1)
		case c.HasUV():
			w.printf(" %d/%d", c.V+1, c.T+1)
		case c.HasNormal():
			w.printf(" %d//%d", c.V+1, c.N+1)
		default:
			w.printf(" %d", c.V+1)
		}
	}
	w.printf("\n")
}

// Flush writes buffered data and reports the first error encountered.
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	return w.w.Flush()
}
