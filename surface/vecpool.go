package surface

import (
	"errors"
	"fmt"

	"github.com/soypat/geometry/ms2"
)

// VecPool holds scratch buffers used during brush-space evaluation.
// Evaluators receive it through their userData argument, see [GetVecPool].
// Buffers acquired from a VecPool must be released on every return path, usually with defer.
type VecPool struct {
	Float bufPool[float32]
	V2    bufPool[ms2.Vec]
}

// GetVecPool extracts a *VecPool from userData. userData may be a *VecPool or
// implement a VecPool() *VecPool method.
func GetVecPool(userData any) (*VecPool, error) {
	switch v := userData.(type) {
	case *VecPool:
		if v == nil {
			return nil, errors.New("nil VecPool")
		}
		return v, nil
	case interface{ VecPool() *VecPool }:
		vp := v.VecPool()
		if vp == nil {
			return nil, errors.New("VecPool method returned nil")
		}
		return vp, nil
	}
	return nil, fmt.Errorf("want userData of type *surface.VecPool, got %T", userData)
}

// AssertAllReleased returns a non-nil error if any buffer has not been released.
func (vp *VecPool) AssertAllReleased() error {
	err := vp.Float.assertAllReleased()
	if err != nil {
		return fmt.Errorf("Float pool: %w", err)
	}
	err = vp.V2.assertAllReleased()
	if err != nil {
		return fmt.Errorf("V2 pool: %w", err)
	}
	return nil
}

type bufPool[T any] struct {
	_ins      [][]T
	_acquired []bool
}

// Acquire returns a zeroed buffer of the requested length, reusing a released one if possible.
func (bp *bufPool[T]) Acquire(length int) []T {
	for i, instance := range bp._ins {
		if !bp._acquired[i] && cap(instance) >= length {
			bp._acquired[i] = true
			instance = instance[:length]
			clear(instance)
			return instance
		}
	}
	newSlice := make([]T, length, max(length, 1))
	bp._ins = append(bp._ins, newSlice)
	bp._acquired = append(bp._acquired, true)
	return newSlice
}

// Release marks buf as free for reuse. buf must have been obtained from Acquire.
func (bp *bufPool[T]) Release(buf []T) error {
	if cap(buf) == 0 {
		return errors.New("release of zero capacity buffer")
	}
	ptr := &buf[:1][0]
	for i, instance := range bp._ins {
		if &instance[:1][0] == ptr {
			if !bp._acquired[i] {
				return errors.New("double release of pool buffer")
			}
			bp._acquired[i] = false
			return nil
		}
	}
	return errors.New("buffer not found in pool")
}

// NumBuffers returns the total buffers allocated by the pool.
func (bp *bufPool[T]) NumBuffers() int { return len(bp._ins) }

func (bp *bufPool[T]) assertAllReleased() error {
	for i, acquired := range bp._acquired {
		if acquired {
			return fmt.Errorf("buffer %d of %d not released", i, len(bp._ins))
		}
	}
	return nil
}
