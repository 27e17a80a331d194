package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/xmftool/internal/atomicfile"
	"github.com/Faultbox/xmftool/internal/config"
	"github.com/Faultbox/xmftool/internal/thumbnail"
	"github.com/Faultbox/xmftool/pkg/matlib"
	"github.com/Faultbox/xmftool/pkg/meshconv"
	"github.com/Faultbox/xmftool/pkg/xmf"
)

// converter holds what every decode in a run shares. The material library is
// loaded once and only read afterwards, so Decode is safe for concurrent use.
type converter struct {
	cfg *config.Config
	lib *matlib.Library
	log *zap.Logger
}

func newConverter(cfg *config.Config, log *zap.Logger) (*converter, error) {
	if log == nil {
		log = zap.NewNop()
	}
	c := &converter{cfg: cfg, log: log}

	path := cfg.Paths.MaterialLibraryPath()
	if path == "" {
		return c, nil
	}
	lib, err := matlib.Load(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Warn("material library not found, writing untextured materials", zap.String("path", path))
	case err != nil:
		return nil, err
	default:
		log.Debug("material library loaded", zap.String("path", path), zap.Int("materials", lib.Len()))
		c.lib = lib
	}
	return c, nil
}

// outputNames derives the model directory and file name from an XMF path:
// .../ship_x_data/ship_x_part_main-lod0.xmf gives ship_x and
// ship_x_part_main-lod0.
func outputNames(path string) (dir, name string) {
	dir = strings.TrimSuffix(filepath.Base(filepath.Dir(path)), "_data")
	name = strings.TrimSuffix(filepath.Base(path), ".xmf")
	return dir, name
}

// Decode converts one XMF file into <out>/<dir>/<name>.obj and .mat, copies
// its textures and renders its thumbnail.
func (c *converter) Decode(ctx context.Context, path string) error {
	log := c.log.With(zap.String("file", path))

	mesh, err := xmf.DecodeFile(path, log)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	dir, name := outputNames(path)
	base := filepath.Join(c.cfg.Paths.Output, dir, name)

	err = atomicfile.Write(base+".obj", 0644, func(w io.Writer) error {
		return meshconv.ToOBJ(w, mesh, meshconv.ExportOptions{
			MaterialLib: name + ".mat",
			Logger:      log,
		})
	})
	if err != nil {
		return fmt.Errorf("writing obj: %w", err)
	}

	matOpts := meshconv.MaterialOptions{
		Library:    c.lib,
		SourceRoot: c.cfg.Paths.Source,
		Logger:     log,
	}
	if c.cfg.Export.Textures {
		matOpts.TextureDir = c.cfg.Paths.TextureDir()
	}
	err = atomicfile.Write(base+".mat", 0644, func(w io.Writer) error {
		return meshconv.WriteMaterials(w, mesh.Materials, matOpts)
	})
	if err != nil {
		return fmt.Errorf("writing materials: %w", err)
	}

	if c.cfg.Export.Thumbnails {
		thumb := thumbnail.Path(c.cfg.Paths.Thumbnails, dir)
		if err := thumbnail.WriteFile(thumb, mesh); err != nil {
			return fmt.Errorf("writing thumbnail: %w", err)
		}
	}

	log.Info("decoded",
		zap.Int("vertices", len(mesh.Vertices)),
		zap.Int("triangles", len(mesh.Triangles)),
		zap.Int("materials", len(mesh.Materials)),
		zap.Stringer("capabilities", mesh.Capabilities))
	return nil
}
