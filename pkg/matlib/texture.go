package matlib

import (
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

var ErrTextureNotFound = errors.New("texture not found")

// Texture property names and the MTL statements they map to, in output order.
var TextureSlots = []struct {
	Property string
	Keyword  string
}{
	{"diffuse_map", "map_Kd"},
	{"smooth_map", "map_Ks"},
	{"normal_map", "norm"},
	{"Metallness", "map_Pm"},
}

// FindTexture resolves a texture property value against the game root.
// Compressed textures (<value>.gz) are preferred over plain <value>.dds.
func FindTexture(root, value string) (string, error) {
	rel := filepath.FromSlash(strings.ReplaceAll(value, `\`, "/"))
	for _, ext := range []string{".gz", ".dds"} {
		p := filepath.Join(root, rel+ext)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrTextureNotFound, value)
}

// TextureName returns the file name a texture is exported under: the base
// name with .gz replaced by .dds.
func TextureName(p string) string {
	name := path.Base(filepath.ToSlash(p))
	if strings.HasSuffix(name, ".gz") {
		name = strings.TrimSuffix(name, ".gz") + ".dds"
	}
	return name
}

// OpenTexture opens a texture found by FindTexture, inflating it when it is
// gzip-compressed. The caller closes the returned reader.
func OpenTexture(p string) (io.ReadCloser, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("opening texture: %w", err)
	}
	if !strings.HasSuffix(p, ".gz") {
		return f, nil
	}
	zr, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("texture %s: %w", p, err)
	}
	return &gzipFile{Reader: zr, f: f}, nil
}

type gzipFile struct {
	*gzip.Reader
	f *os.File
}

func (g *gzipFile) Close() error {
	err := g.Reader.Close()
	if cerr := g.f.Close(); err == nil {
		err = cerr
	}
	return err
}
