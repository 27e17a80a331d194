// xmftool converts XMF meshes to Wavefront OBJ and back.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/xmftool/internal/batch"
	"github.com/Faultbox/xmftool/internal/config"
	"github.com/Faultbox/xmftool/internal/logger"
	"github.com/Faultbox/xmftool/pkg/meshconv"
	"github.com/Faultbox/xmftool/pkg/wavefront"
	"github.com/Faultbox/xmftool/pkg/xmf"
)

func main() {
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, cfg, config.Args(), os.Stdout, os.Stderr)
	stop()
	logger.Sync()
	os.Exit(code)
}

// run executes one command and returns the process exit code.
func run(ctx context.Context, cfg *config.Config, args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 1
	}

	command := args[0]
	args = args[1:]

	switch command {
	case "decode", "d":
		return cmdDecode(ctx, cfg, args, stdout, stderr)
	case "encode", "e":
		return cmdEncode(cfg, args, stdout, stderr)
	case "info":
		return cmdInfo(args, stdout, stderr)
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", command)
		printUsage(stderr)
		return 1
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `xmftool - XMF mesh converter

Usage:
  xmftool [-config file] [-debug] [-src dir] [-out dir] [-log-file file] <command> [options]

Commands:
  decode <file.xmf|name>                 Convert one XMF file to OBJ + MAT
  decode -all [-root dir]                Convert every ship model under the source root
  encode [-o out.xmf] [-narrow] <file.obj> Convert an OBJ file to XMF
  info <file.xmf>                        Show header, chunk and material tables

Examples:
  xmftool -src ~/x4 decode assets/units/size_s/ship_arg_s_fighter_01_data/ship_arg_s_fighter_01_part_main-lod0.xmf
  xmftool -src ~/x4 decode ~/x4/assets/units/size_s/ship_arg_s_fighter_01
  xmftool -src ~/x4 -out ./objs decode -all
  xmftool encode -o fighter.xmf objs/ship_arg_s_fighter_01/ship_arg_s_fighter_01_part_main-lod0.obj`)
}

func cmdDecode(ctx context.Context, cfg *config.Config, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("decode", flag.ContinueOnError)
	fs.SetOutput(stderr)
	all := fs.Bool("all", false, "Convert every model matching the batch pattern")
	root := fs.String("root", "", "Search root for -all (default: source root)")
	workers := fs.Int("j", cfg.Batch.Workers, "Concurrent conversions for -all")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	conv, err := newConverter(cfg, logger.Log)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if *all {
		searchRoot := *root
		if searchRoot == "" {
			searchRoot = cfg.Paths.Source
		}
		return decodeAll(ctx, conv, searchRoot, *workers, stdout, stderr)
	}

	if fs.NArg() < 1 {
		fmt.Fprintln(stderr, "Usage: xmftool decode <file.xmf|name> | decode -all [-root dir]")
		return 1
	}

	path, err := resolveModel(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if err := conv.Decode(ctx, path); err != nil {
		fmt.Fprintf(stderr, "Error: %s: %v\n", path, err)
		return 1
	}
	fmt.Fprintf(stdout, "processing %s.. successful!\n", path)
	return 0
}

// decodeAll converts every discovered model. Individual failures are reported
// but never change the exit code.
func decodeAll(ctx context.Context, conv *converter, root string, workers int, stdout, stderr io.Writer) int {
	files, err := batch.Discover(root, conv.cfg.Batch.Pattern, conv.cfg.Batch.Filters)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if len(files) == 0 {
		fmt.Fprintf(stderr, "No models found under %s\n", root)
		return 0
	}

	results := batch.Run(ctx, files, workers, conv.Decode, logger.Log)
	for _, r := range results {
		if r.OK() {
			fmt.Fprintf(stdout, "processing %s.. successful!\n", r.Path)
			continue
		}
		fmt.Fprintf(stdout, "processing %s.. failed!\n", r.Path)
		fmt.Fprintf(stdout, "\t\t%v\n", r.Err)
	}
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, batch.Summarize(results))
	return 0
}

// resolveModel turns a decode argument into an XMF path. Anything not ending
// in .xmf is treated as a model directory prefix and must match exactly one
// main LOD0 file.
func resolveModel(arg string) (string, error) {
	if strings.HasSuffix(arg, ".xmf") {
		return arg, nil
	}
	pattern := arg + "*/*_main-lod0.xmf"
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return "", fmt.Errorf("bad name %q: %w", arg, err)
	}
	if len(matches) != 1 {
		return "", fmt.Errorf("invalid name: %s search results: %d", arg, len(matches))
	}
	return matches[0], nil
}

func cmdEncode(cfg *config.Config, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("encode", flag.ContinueOnError)
	fs.SetOutput(stderr)
	output := fs.String("o", "", "Output file (default: input with .xmf extension)")
	narrow := fs.Bool("narrow", cfg.Encode.NarrowIndices, "Write 16-bit face indices when they fit")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	if fs.NArg() < 1 {
		fmt.Fprintln(stderr, "Usage: xmftool encode [-o out.xmf] [-narrow] <file.obj>")
		return 1
	}

	input := fs.Arg(0)
	out := *output
	if out == "" {
		out = strings.TrimSuffix(input, filepath.Ext(input)) + ".xmf"
	}

	log := logger.ForFile(input)
	obj, err := wavefront.ReadFile(input)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	mesh, err := meshconv.FromOBJ(obj, meshconv.ImportOptions{Logger: log})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %s: %v\n", input, err)
		return 1
	}

	opts := xmf.EncodeOptions{
		NarrowIndices:    *narrow,
		CompressionLevel: cfg.Encode.CompressionLevel,
	}
	if err := xmf.EncodeFile(out, mesh, opts); err != nil {
		fmt.Fprintf(stderr, "Error: %s: %v\n", input, err)
		return 1
	}

	log.Info("encoded",
		zap.String("output", out),
		zap.Int("vertices", len(mesh.Vertices)),
		zap.Int("triangles", len(mesh.Triangles)),
		zap.Int("materials", len(mesh.Materials)))
	fmt.Fprintf(stdout, "%s -> %s (%d vertices, %d triangles, %d materials)\n",
		input, out, len(mesh.Vertices), len(mesh.Triangles), len(mesh.Materials))
	return 0
}

func cmdInfo(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		fmt.Fprintln(stderr, "Usage: xmftool info <file.xmf>")
		return 1
	}

	f, err := os.Open(args[0])
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer f.Close()

	c, err := xmf.NewDecoder(f, logger.ForFile(args[0])).ReadContainer()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	h := c.Header
	fmt.Fprintf(stdout, "File:      %s\n", args[0])
	fmt.Fprintf(stdout, "Magic:     %s\n", h.Magic[:])
	fmt.Fprintf(stdout, "Version:   %d\n", h.Version)
	fmt.Fprintf(stdout, "Chunks:    %d (%d bytes each)\n", h.ChunkCount, h.ChunkSize)
	fmt.Fprintf(stdout, "Materials: %d\n", h.MaterialCount)
	fmt.Fprintf(stdout, "Vertices:  %d\n", h.VertexCount)
	fmt.Fprintf(stdout, "Indices:   %d\n", h.IndexCount)
	fmt.Fprintln(stdout)

	fmt.Fprintln(stdout, "Chunks:")
	for i, chunk := range c.Chunks {
		shape := "unknown"
		if s, err := chunk.Shape(); err == nil {
			shape = s.String()
		}
		fmt.Fprintf(stdout, "  %-3d %-12s %v\n", i, shape, chunk)
	}

	if len(c.Materials) > 0 {
		fmt.Fprintln(stdout)
		fmt.Fprintln(stdout, "Materials:")
		for i, mat := range c.Materials {
			fmt.Fprintf(stdout, "  %-3d start=%-8d count=%-8d %s\n", i, mat.Start, mat.Count, mat.Name)
		}
	}
	return 0
}
