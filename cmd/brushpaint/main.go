//go:build ebiten

// Command brushpaint is an interactive top-down terrain painter.
//
//	left mouse   paint with the selected tool
//	1-9          select tool
//	Tab          cycle brush tip
//	R (hold)     rotate the brush around its position with the cursor
//	S (hold)     change brush size moving the cursor horizontally
//	D (hold)     change brush strength moving the cursor horizontally
//	Ctrl+S       save the recorded stroke log
//	Q, Escape    quit
package main

import (
	"errors"
	"flag"
	"log"
	"log/slog"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/soypat/terrabrush"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatal(err)
	}
	cfg.Bind(flag.CommandLine)
	flag.Parse()
	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	terrabrush.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	game, err := NewGame(cfg)
	if err != nil {
		log.Fatal(err)
	}
	w, h := game.Layout(0, 0)
	ebiten.SetWindowTitle("brushpaint")
	ebiten.SetTPS(cfg.TPS)
	ebiten.SetWindowSize(w, h)

	err = ebiten.RunGame(game)
	if cerr := game.Close(); cerr != nil {
		terrabrush.Logger().Warn("closing brush group", slog.Any("err", cerr))
	}
	if err != nil && !errors.Is(err, ebiten.Termination) {
		log.Fatal(err)
	}
}
