// Package wavefront reads and writes the subset of Wavefront OBJ and MTL used
// for mesh interchange: positions, normals, texture coordinates, polygonal
// faces and material assignments.
package wavefront

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Faultbox/xmftool/pkg/math"
)

var (
	ErrSyntax = errors.New("obj: syntax error")
	ErrIndex  = errors.New("obj: index out of range")
)

// Corner references one polygon corner. Indices are zero-based; -1 marks an
// absent texture coordinate or normal.
type Corner struct {
	V, T, N int
}

// HasUV reports whether the corner references a texture coordinate.
func (c Corner) HasUV() bool { return c.T >= 0 }

// HasNormal reports whether the corner references a normal.
func (c Corner) HasNormal() bool { return c.N >= 0 }

// Face is a triangle with the material active when it was declared.
type Face struct {
	Corners  [3]Corner
	Material string
}

// Object is a parsed OBJ file.
type Object struct {
	Positions    []math.Vec3
	TexCoords    []math.Vec2
	Normals      []math.Vec3
	Faces        []Face
	MaterialLibs []string
}

// Read parses an OBJ stream. Polygons with more than three corners are
// fan-triangulated. Group, object and smoothing statements are ignored.
func Read(r io.Reader) (*Object, error) {
	obj := &Object{}
	material := ""

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		ident, args := fields[0], fields[1:]
		var err error
		switch ident {
		case "v":
			var v math.Vec3
			v, err = parseVec3(args)
			obj.Positions = append(obj.Positions, v)
		case "vn":
			var n math.Vec3
			n, err = parseVec3(args)
			obj.Normals = append(obj.Normals, n)
		case "vt":
			var uv math.Vec2
			uv, err = parseVec2(args)
			obj.TexCoords = append(obj.TexCoords, uv)
		case "f":
			err = obj.addPolygon(args, material)
		case "usemtl":
			if len(args) == 0 {
				err = errors.New("usemtl without a name")
			}
			if err == nil {
				material = args[0]
			}
		case "mtllib":
			obj.MaterialLibs = append(obj.MaterialLibs, args...)
		}
		if err != nil {
			if errors.Is(err, ErrIndex) {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			return nil, fmt.Errorf("%w: line %d: %v", ErrSyntax, lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading obj: %w", err)
	}
	return obj, nil
}

// ReadFile parses the OBJ file at path.
func ReadFile(path string) (*Object, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	return Read(f)
}

func (o *Object) addPolygon(args []string, material string) error {
	if len(args) < 3 {
		return fmt.Errorf("face with %d corners", len(args))
	}
	corners := make([]Corner, len(args))
	for i, arg := range args {
		c, err := o.parseCorner(arg)
		if err != nil {
			return err
		}
		corners[i] = c
	}
	for i := 1; i+1 < len(corners); i++ {
		o.Faces = append(o.Faces, Face{
			Corners:  [3]Corner{corners[0], corners[i], corners[i+1]},
			Material: material,
		})
	}
	return nil
}

// parseCorner accepts v, v/t, v//n and v/t/n.
func (o *Object) parseCorner(s string) (Corner, error) {
	parts := strings.Split(s, "/")
	if len(parts) > 3 || parts[0] == "" {
		return Corner{}, fmt.Errorf("bad corner %q", s)
	}
	c := Corner{T: -1, N: -1}
	var err error
	if c.V, err = resolveIndex(parts[0], len(o.Positions)); err != nil {
		return Corner{}, err
	}
	if len(parts) > 1 && parts[1] != "" {
		if c.T, err = resolveIndex(parts[1], len(o.TexCoords)); err != nil {
			return Corner{}, err
		}
	}
	if len(parts) > 2 && parts[2] != "" {
		if c.N, err = resolveIndex(parts[2], len(o.Normals)); err != nil {
			return Corner{}, err
		}
	}
	return c, nil
}

// resolveIndex turns a one-based or negative relative index into a
// zero-based one, given the number of elements declared so far.
func resolveIndex(s string, n int) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("bad index %q", s)
	}
	switch {
	case i > 0 && i <= n:
		return i - 1, nil
	case i < 0 && -i <= n:
		return n + i, nil
	}
	return 0, fmt.Errorf("%w: %d with %d declared", ErrIndex, i, n)
}

func parseFloats(args []string, required int, out []float32) error {
	if len(args) < required {
		return fmt.Errorf("expected at least %d values, got %d", required, len(args))
	}
	for i := range out {
		if i >= len(args) {
			break
		}
		f, err := strconv.ParseFloat(args[i], 32)
		if err != nil {
			return fmt.Errorf("bad number %q", args[i])
		}
		out[i] = float32(f)
	}
	return nil
}

func parseVec3(args []string) (math.Vec3, error) {
	var f [3]float32
	if err := parseFloats(args, 3, f[:]); err != nil {
		return math.Vec3{}, err
	}
	return math.Vec3{X: f[0], Y: f[1], Z: f[2]}, nil
}

func parseVec2(args []string) (math.Vec2, error) {
	var f [2]float32
	if err := parseFloats(args, 1, f[:]); err != nil {
		return math.Vec2{}, err
	}
	return math.Vec2{X: f[0], Y: f[1]}, nil
}
