package brushaux

import (
	"encoding/binary"
	"errors"
	"io"
	"math"

	"github.com/soypat/geometry/ms3"
	"github.com/soypat/terrabrush/terrain"
)

// TerrainMesh triangulates the heightmap of t in world coordinates, two triangles
// per heightmap cell with normals facing +Y on flat ground.
func TerrainMesh(t *terrain.Terrain) ([]ms3.Triangle, error) {
	if t == nil {
		return nil, errors.New("nil terrain")
	}
	b := t.Heights.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < 2 || h < 2 {
		return nil, errors.New("heightmap too small to triangulate")
	}
	vertex := func(i, j int) ms3.Vec {
		return ms3.Add(t.Position, ms3.Vec{
			X: float32(i) / float32(w-1) * t.Size.X,
			Y: t.Heights.At(i, j) * t.Size.Y,
			Z: float32(j) / float32(h-1) * t.Size.Z,
		})
	}
	tris := make([]ms3.Triangle, 0, 2*(w-1)*(h-1))
	for j := 0; j < h-1; j++ {
		for i := 0; i < w-1; i++ {
			p00, p10 := vertex(i, j), vertex(i+1, j)
			p01, p11 := vertex(i, j+1), vertex(i+1, j+1)
			tris = append(tris,
				ms3.Triangle{p00, p01, p10},
				ms3.Triangle{p10, p01, p11},
			)
		}
	}
	return tris, nil
}

// WriteBinarySTL writes triangles as a binary STL file and returns the amount of bytes written.
func WriteBinarySTL(w io.Writer, triangles []ms3.Triangle) (int, error) {
	if uint64(len(triangles)) > math.MaxUint32 {
		return 0, errors.New("too many triangles for STL")
	}
	var header [84]byte
	copy(header[:], "terrabrush binary STL")
	binary.LittleEndian.PutUint32(header[80:], uint32(len(triangles)))
	n, err := w.Write(header[:])
	if err != nil {
		return n, err
	}
	var rec [50]byte
	put := func(off int, v ms3.Vec) {
		binary.LittleEndian.PutUint32(rec[off:], math.Float32bits(v.X))
		binary.LittleEndian.PutUint32(rec[off+4:], math.Float32bits(v.Y))
		binary.LittleEndian.PutUint32(rec[off+8:], math.Float32bits(v.Z))
	}
	for _, tri := range triangles {
		normal := ms3.Cross(ms3.Sub(tri[1], tri[0]), ms3.Sub(tri[2], tri[0]))
		if ms3.Norm(normal) > 0 {
			normal = ms3.Unit(normal)
		}
		put(0, normal)
		put(12, tri[0])
		put(24, tri[1])
		put(36, tri[2])
		ngot, err := w.Write(rec[:])
		n += ngot
		if err != nil {
			return n, err
		}
	}
	return n, nil
}
