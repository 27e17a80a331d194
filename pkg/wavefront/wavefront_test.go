package wavefront

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Faultbox/xmftool/pkg/math"
)

const quadOBJ = `# exported quad
mtllib quad.mat
o Quad
v -1 0 0
v 1 0 0
v 1 0 1
v -1 0 1
vt 0 0
vt 1 0
vt 1 1
vt 0 1
vn 0 1 0
g front
usemtl ship_arg.hull.001
s off
f 1/1/1 2/2/1 3/3/1 4/4/1
`

func TestRead_Quad(t *testing.T) {
	obj, err := Read(strings.NewReader(quadOBJ))
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}

	if len(obj.Positions) != 4 || len(obj.TexCoords) != 4 || len(obj.Normals) != 1 {
		t.Fatalf("got %d v, %d vt, %d vn", len(obj.Positions), len(obj.TexCoords), len(obj.Normals))
	}
	if obj.Positions[2] != (math.Vec3{X: 1, Y: 0, Z: 1}) {
		t.Errorf("position 3 = %v", obj.Positions[2])
	}
	if len(obj.MaterialLibs) != 1 || obj.MaterialLibs[0] != "quad.mat" {
		t.Errorf("mtllib = %v", obj.MaterialLibs)
	}

	// fan triangulation: (0,1,2), (0,2,3)
	if len(obj.Faces) != 2 {
		t.Fatalf("got %d faces, want 2", len(obj.Faces))
	}
	want := [][3]int{{0, 1, 2}, {0, 2, 3}}
	for i, f := range obj.Faces {
		for j, c := range f.Corners {
			if c.V != want[i][j] || c.T != want[i][j] || c.N != 0 {
				t.Errorf("face %d corner %d = %+v", i, j, c)
			}
		}
		if f.Material != "ship_arg.hull.001" {
			t.Errorf("face %d material = %q", i, f.Material)
		}
	}
}

func TestRead_CornerForms(t *testing.T) {
	src := `v 0 0 0
v 1 0 0
v 0 1 0
vt 0 0
vn 0 0 1
f 1 2 3
f 1/1 2/1 3/1
f 1//1 2//1 3//1
f -3/-1/-1 -2/-1/-1 -1/-1/-1
`
	obj, err := Read(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}

	tests := []struct {
		name string
		want Corner
	}{
		{"position only", Corner{V: 0, T: -1, N: -1}},
		{"position and uv", Corner{V: 0, T: 0, N: -1}},
		{"position and normal", Corner{V: 0, T: -1, N: 0}},
		{"negative indices", Corner{V: 0, T: 0, N: 0}},
	}
	if len(obj.Faces) != len(tests) {
		t.Fatalf("got %d faces, want %d", len(obj.Faces), len(tests))
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := obj.Faces[i].Corners[0]; got != tt.want {
				t.Errorf("corner = %+v, want %+v", got, tt.want)
			}
			if got := obj.Faces[i].Corners[2].V; got != 2 {
				t.Errorf("third corner position = %d, want 2", got)
			}
		})
	}
}

func TestRead_Errors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantErr error
	}{
		{"bad number", "v 1 x 3\n", ErrSyntax},
		{"short vertex", "v 1 2\n", ErrSyntax},
		{"two corners", "v 0 0 0\nf 1 1\n", ErrSyntax},
		{"bad corner", "v 0 0 0\nf 1/2/3/4 1 1\n", ErrSyntax},
		{"forward reference", "v 0 0 0\nf 1 2 3\n", ErrIndex},
		{"zero index", "v 0 0 0\nf 0 1 1\n", ErrIndex},
		{"negative past start", "v 0 0 0\nf -2 1 1\n", ErrIndex},
		{"missing uv", "v 0 0 0\nf 1/1 1/1 1/1\n", ErrIndex},
		{"usemtl without name", "usemtl\n", ErrSyntax},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.src))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestRead_CommentsAndUnknown(t *testing.T) {
	src := "v 1 2 3 # trailing comment\n\n   \nvp 0.5\nl 1 1\nv 4 5 6 1.0\n"
	obj, err := Read(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if len(obj.Positions) != 2 || obj.Positions[1] != (math.Vec3{X: 4, Y: 5, Z: 6}) {
		t.Errorf("positions = %v", obj.Positions)
	}
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quad.obj")
	if err := os.WriteFile(path, []byte(quadOBJ), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	obj, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	if len(obj.Faces) != 2 {
		t.Errorf("got %d faces", len(obj.Faces))
	}

	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing.obj")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.MaterialLib("quad.mat")
	w.Position(math.Vec3{X: 1, Y: -0.5, Z: 2})
	w.Normal(math.Vec3{X: 0, Y: 1, Z: 0})
	w.TexCoord(math.Vec2{X: 0.25, Y: 0.75})
	w.Blank()
	w.Group("group0")
	w.UseMaterial("ship_arg.hull")
	w.Face(Corner{V: 0, T: 0, N: 0}, Corner{V: 1, T: 1, N: 1}, Corner{V: 2, T: 2, N: 2})
	w.Face(Corner{V: 0, T: -1, N: -1}, Corner{V: 1, T: 0, N: -1}, Corner{V: 2, T: -1, N: 3})
	w.NewMaterial("ship_arg.hull")
	w.Statement("Ns", "4.0")
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush() error: %v", err)
	}

	want := `mtllib quad.mat
v 1.000 -0.500 2.000
vn 0.000 1.000 0.000
vt 0.250 0.750

g group0
usemtl ship_arg.hull
f 1/1/1 2/2/2 3/3/3
f 1 2/1 3//4
newmtl ship_arg.hull
Ns 4.0
`
	if got := buf.String(); got != want {
		t.Errorf("output mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriter_StickyError(t *testing.T) {
	w := NewWriter(failingWriter{})
	for i := 0; i < 10000; i++ {
		w.Position(math.Vec3{})
	}
	if err := w.Flush(); err == nil {
		t.Error("expected write error")
	}
}

func TestWriterReadBack(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Position(math.Vec3{X: 0, Y: 0, Z: 0})
	w.Position(math.Vec3{X: 1, Y: 0, Z: 0})
	w.Position(math.Vec3{X: 0, Y: 1, Z: 0})
	w.TexCoord(math.Vec2{X: 0, Y: 1})
	w.Normal(math.Vec3{X: 0, Y: 0, Z: 1})
	w.UseMaterial("a.b")
	c := Corner{V: 0, T: 0, N: 0}
	w.Face(c, Corner{V: 1, T: 0, N: 0}, Corner{V: 2, T: 0, N: 0})
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush() error: %v", err)
	}

	obj, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if len(obj.Faces) != 1 || obj.Faces[0].Corners[0] != c || obj.Faces[0].Material != "a.b" {
		t.Errorf("faces = %+v", obj.Faces)
	}
}
