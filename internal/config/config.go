// Package config handles xmftool configuration.
package config

import "path/filepath"

// Config holds all tool configuration.
type Config struct {
	Paths   PathsConfig   `yaml:"paths"`
	Batch   BatchConfig   `yaml:"batch"`
	Export  ExportConfig  `yaml:"export"`
	Encode  EncodeConfig  `yaml:"encode"`
	Logging LoggingConfig `yaml:"logging"`
}

// PathsConfig holds input and output locations.
type PathsConfig struct {
	Source          string `yaml:"source"`           // unpacked game data root
	Output          string `yaml:"output"`           // OBJ output root
	Thumbnails      string `yaml:"thumbnails"`       // thumbnail output directory
	MaterialLibrary string `yaml:"material_library"` // relative to Source unless absolute
}

// BatchConfig controls `decode -all`.
type BatchConfig struct {
	Pattern string   `yaml:"pattern"` // glob relative to Source
	Filters []string `yaml:"filters"` // base name must contain one of these
	Workers int      `yaml:"workers"`
}

// ExportConfig controls what decode writes besides the OBJ file.
type ExportConfig struct {
	Textures   bool `yaml:"textures"`
	Thumbnails bool `yaml:"thumbnails"`
}

// EncodeConfig controls OBJ to XMF conversion.
type EncodeConfig struct {
	NarrowIndices    bool `yaml:"narrow_indices"`
	CompressionLevel int  `yaml:"compression_level"` // 0 = zlib default
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`    // debug, info, warn, error
	LogFile string `yaml:"log_file"` // empty = no file logging
}

// Default returns configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			Source:          ".",
			Output:          "objs",
			Thumbnails:      "thumbs",
			MaterialLibrary: "libraries/material_library.xml",
		},
		Batch: BatchConfig{
			Pattern: "assets/units/*/ship_*_data/*_main-lod0.xmf",
			Filters: []string{"part_main", "anim_main"},
			Workers: 1,
		},
		Export: ExportConfig{
			Textures:   true,
			Thumbnails: true,
		},
		Encode: EncodeConfig{
			NarrowIndices:    false,
			CompressionLevel: 0,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// MaterialLibraryPath resolves the material library against the source root.
func (p PathsConfig) MaterialLibraryPath() string {
	if p.MaterialLibrary == "" || filepath.IsAbs(p.MaterialLibrary) {
		return p.MaterialLibrary
	}
	return filepath.Join(p.Source, p.MaterialLibrary)
}

// TextureDir is where decode copies textures referenced by .mat files.
func (p PathsConfig) TextureDir() string {
	return filepath.Join(p.Output, "tex")
}
