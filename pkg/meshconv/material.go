package meshconv

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/Faultbox/xmftool/internal/atomicfile"
	"github.com/Faultbox/xmftool/pkg/matlib"
	"github.com/Faultbox/xmftool/pkg/wavefront"
	"github.com/Faultbox/xmftool/pkg/xmf"
)

// TextureRef is the directory textures are referenced from, relative to the
// material file.
const TextureRef = "../tex"

// MaterialOptions control WriteMaterials.
type MaterialOptions struct {
	// Library supplies texture properties. Nil writes plain materials.
	Library *matlib.Library
	// SourceRoot is the unpacked game root textures are resolved against.
	SourceRoot string
	// TextureDir receives copies of referenced textures. Empty skips copying;
	// references are still written.
	TextureDir string
	Logger     *zap.Logger
}

// WriteMaterials writes an MTL document with one entry per distinct material
// name. Textures known to the library are referenced and, when TextureDir is
// set, copied there once.
func WriteMaterials(w io.Writer, materials []xmf.Material, opts MaterialOptions) error {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	mw := wavefront.NewWriter(w)
	seen := make(map[string]bool, len(materials))
	for _, mat := range materials {
		if seen[mat.Name] {
			continue
		}
		seen[mat.Name] = true

		mw.NewMaterial(mat.Name)
		mw.Blank()
		mw.Statement("Ka", "0.00", "0.00", "0.00")
		mw.Statement("Kd", "1.00", "1.00", "1.00")
		mw.Statement("Ks", "1.00", "1.00", "1.00")
		mw.Statement("Ns", "4.0")
		mw.Statement("illum", "2")

		entry, ok := opts.Library.Lookup(mat.Name)
		if !ok {
			log.Debug("material not in library", zap.String("material", mat.Name))
		}
		for _, slot := range matlib.TextureSlots {
			if !ok {
				break
			}
			value, found := entry.Property(slot.Property)
			if !found {
				continue
			}
			name, err := exportTexture(opts, value)
			if errors.Is(err, matlib.ErrTextureNotFound) {
				log.Debug("texture missing", zap.String("material", mat.Name), zap.String("texture", value))
				continue
			}
			if err != nil {
				return fmt.Errorf("material %s: %w", mat.Name, err)
			}
			mw.Statement(slot.Keyword, TextureRef+"/"+name)
		}
		mw.Blank()
		mw.Blank()
	}
	return mw.Flush()
}

// exportTexture resolves a texture and copies it into opts.TextureDir unless
// a copy already exists. It returns the exported file name.
func exportTexture(opts MaterialOptions, value string) (string, error) {
	src, err := matlib.FindTexture(opts.SourceRoot, value)
	if err != nil {
		return "", err
	}
	name := matlib.TextureName(src)
	if opts.TextureDir == "" {
		return name, nil
	}

	dst := filepath.Join(opts.TextureDir, name)
	if _, err := os.Stat(dst); err == nil {
		return name, nil
	}

	rc, err := matlib.OpenTexture(src)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	err = atomicfile.Write(dst, 0644, func(w io.Writer) error {
		_, err := io.Copy(w, rc)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("exporting texture %s: %w", name, err)
	}
	return name, nil
}
