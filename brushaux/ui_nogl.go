//go:build !glgpu || !cgo

package brushaux

import (
	"errors"

	"github.com/soypat/terrabrush/terrain"
)

func ui(t *terrain.Terrain, cfg UIConfig) error {
	return errors.New("terrain UI requires cgo and the glgpu build tag")
}
