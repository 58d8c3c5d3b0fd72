package main

import (
	"flag"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the painter settings. TBRUSH_ prefixed environment variables
// set defaults that flags may override.
type Config struct {
	Resolution int     `envconfig:"RESOLUTION" default:"129"`
	Scale      int     `envconfig:"SCALE" default:"5"`
	Size       float64 `envconfig:"TERRAIN_SIZE" default:"100"`
	Height     float64 `envconfig:"TERRAIN_HEIGHT" default:"30"`
	Tool       string  `envconfig:"TOOL" default:"raise"`
	Mask       int     `envconfig:"MASK_RESOLUTION" default:"64"`
	Noise      bool    `envconfig:"NOISE" default:"false"`
	Out        string  `envconfig:"OUT" default:"stroke.tbrl"`
	TPS        int     `envconfig:"TPS" default:"60"`
	Verbose    bool    `envconfig:"VERBOSE" default:"false"`
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
	fs.IntVar(&c.Resolution, "res", c.Resolution, "heightmap resolution")
	fs.IntVar(&c.Scale, "scale", c.Scale, "screen pixels per heightmap sample")
	fs.Float64Var(&c.Size, "size", c.Size, "terrain world size along X and Z")
	fs.Float64Var(&c.Height, "height", c.Height, "terrain world height")
	fs.StringVar(&c.Tool, "tool", c.Tool, "initial paint tool")
	fs.IntVar(&c.Mask, "mask", c.Mask, "brush mask resolution")
	fs.BoolVar(&c.Noise, "noise", c.Noise, "modulate the brush mask with local noise")
	fs.StringVar(&c.Out, "out", c.Out, "file the stroke log is saved to with Ctrl+S")
	fs.IntVar(&c.TPS, "tps", c.TPS, "ticks per second")
	fs.BoolVar(&c.Verbose, "v", c.Verbose, "debug logging")
}
