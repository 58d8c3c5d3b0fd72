package main

import (
	"flag"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the replay parameters. Environment variables prefixed with TBRUSH_
// set the defaults and command line flags override them.
type Config struct {
	Log            string  `envconfig:"LOG"`
	Tool           string  `envconfig:"TOOL" default:"raise"`
	Filters        string  `envconfig:"FILTERS" default:""`
	Resolution     int     `envconfig:"RESOLUTION" default:"129"`
	TerrainSize    float64 `envconfig:"TERRAIN_SIZE" default:"100"`
	TerrainHeight  float64 `envconfig:"TERRAIN_HEIGHT" default:"30"`
	MaskResolution int     `envconfig:"MASK_RESOLUTION" default:"64"`
	Tip            string  `envconfig:"TIP" default:"circle"`
	TipImages      string  `envconfig:"TIP_IMAGES"`
	Demo           int     `envconfig:"DEMO" default:"0"`
	Out            string  `envconfig:"OUT"`
	Codec          string  `envconfig:"CODEC" default:"zstd"`
	PNG            string  `envconfig:"PNG"`
	Palette        string  `envconfig:"PALETTE" default:"terrain"`
	STL            string  `envconfig:"STL"`
	Scale          int     `envconfig:"SCALE" default:"4"`
	UI             bool    `envconfig:"UI" default:"false"`
	Verbose        bool    `envconfig:"VERBOSE" default:"false"`
}

// LoadConfig reads the configuration from the environment.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("tbrush", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Bind attaches the configuration to the provided FlagSet.
func (c *Config) Bind(fs *flag.FlagSet) {
	fs.StringVar(&c.Log, "log", c.Log, "replay log file to play back")
	fs.StringVar(&c.Tool, "tool", c.Tool, "paint tool applying every occurrence")
	fs.StringVar(&c.Filters, "filters", c.Filters, "comma separated brush mask filters, e.g. noise,blur")
	fs.IntVar(&c.Resolution, "res", c.Resolution, "heightmap resolution")
	fs.Float64Var(&c.TerrainSize, "size", c.TerrainSize, "terrain world size along X and Z")
	fs.Float64Var(&c.TerrainHeight, "height", c.TerrainHeight, "terrain world height")
	fs.IntVar(&c.MaskResolution, "mask", c.MaskResolution, "brush mask resolution")
	fs.StringVar(&c.Tip, "tip", c.Tip, "brush tip: circle, square, hexagon, glyph:<char> or none")
	fs.StringVar(&c.TipImages, "tipimages", c.TipImages, "comma separated PNG files resolving log texture names by file name without extension")
	fs.IntVar(&c.Demo, "demo", c.Demo, "generate a spiral stroke of this many occurrences instead of reading -log")
	fs.StringVar(&c.Out, "out", c.Out, "write the played log to this file")
	fs.StringVar(&c.Codec, "codec", c.Codec, "codec used by -out: none, snappy or zstd")
	fs.StringVar(&c.PNG, "png", c.PNG, "write the resulting heightmap to this PNG file")
	fs.StringVar(&c.Palette, "palette", c.Palette, "PNG palette: terrain, gray or signed, the latter showing the height change of the replay")
	fs.StringVar(&c.STL, "stl", c.STL, "write the resulting terrain mesh to this binary STL file")
	fs.IntVar(&c.Scale, "scale", c.Scale, "PNG pixels per heightmap sample")
	fs.BoolVar(&c.UI, "ui", c.UI, "open a 3D preview of the result, requires the glgpu build tag")
	fs.BoolVar(&c.Verbose, "v", c.Verbose, "log every replayed occurrence")
}
