package surface

import (
	"errors"
	"fmt"
)

// Provider hands out temporary render surfaces. Every surface obtained
// through Acquire must be returned through Release by the same caller.
type Provider interface {
	// Acquire returns a surface of the requested size. Contents are undefined.
	Acquire(width, height int, format Format) (*Surface, error)
	// Release returns the surface to the provider. The surface must not be used afterwards.
	Release(s *Surface) error
	// Blit copies src into dst. Surfaces must share dimensions.
	Blit(src, dst *Surface) error
	// Readback appends the surface contents to dst and returns the result.
	Readback(s *Surface, dst []float32) ([]float32, error)
}

type poolKey struct {
	n      int
	format Format
}

// Pool is a CPU [Provider] that reuses released buffers and keeps count of
// outstanding handles so leaks can be asserted in tests. The zero value is ready to use.
// Pool is not safe for concurrent use.
type Pool struct {
	next      Handle
	live      map[Handle]*Surface
	free      map[poolKey][][]float32
	liveBytes int
	acquired  uint64
	released  uint64
}

var _ Provider = (*Pool)(nil)

// Acquire implements [Provider].
func (p *Pool) Acquire(width, height int, format Format) (*Surface, error) {
	if width <= 0 || height <= 0 {
		return nil, errBadDimensions
	} else if !format.IsValid() {
		return nil, fmt.Errorf("invalid surface format %s", format)
	}
	if p.live == nil {
		p.live = make(map[Handle]*Surface)
		p.free = make(map[poolKey][][]float32)
	}
	key := poolKey{n: width * height, format: format}
	var pix []float32
	if bufs := p.free[key]; len(bufs) > 0 {
		pix = bufs[len(bufs)-1]
		p.free[key] = bufs[:len(bufs)-1]
	} else {
		pix = make([]float32, key.n)
	}
	p.next++
	s := &Surface{
		width:  width,
		height: height,
		format: format,
		handle: p.next,
		pix:    pix,
	}
	p.live[s.handle] = s
	p.liveBytes += key.n * format.BytesPerPixel()
	p.acquired++
	return s, nil
}

// Release implements [Provider].
func (p *Pool) Release(s *Surface) error {
	if s == nil {
		return errNilSurface
	} else if s.Released() {
		return ErrReleased
	}
	got, ok := p.live[s.handle]
	if !ok || got != s {
		return ErrUnknownHandle
	}
	delete(p.live, s.handle)
	key := poolKey{n: s.width * s.height, format: s.format}
	p.free[key] = append(p.free[key], s.pix)
	p.liveBytes -= key.n * s.format.BytesPerPixel()
	p.released++
	s.pix = nil
	s.handle = 0
	return nil
}

// Blit implements [Provider].
func (p *Pool) Blit(src, dst *Surface) error {
	return Copy(dst, src)
}

// Readback implements [Provider].
func (p *Pool) Readback(s *Surface, dst []float32) ([]float32, error) {
	if s == nil {
		return dst, errNilSurface
	} else if s.Released() {
		return dst, ErrReleased
	}
	return append(dst, s.pix...), nil
}

// Outstanding returns the amount of surfaces acquired and not yet released.
func (p *Pool) Outstanding() int { return len(p.live) }

// OutstandingBytes returns the accounted GPU memory held by outstanding surfaces.
func (p *Pool) OutstandingBytes() int { return p.liveBytes }

// Stats returns the total acquire and release calls that succeeded during the pool's lifetime.
func (p *Pool) Stats() (acquired, released uint64) { return p.acquired, p.released }

// AssertAllReleased returns a non-nil error if any surface is still held by a caller.
func (p *Pool) AssertAllReleased() error {
	if len(p.live) == 0 {
		return nil
	}
	var errs []error
	for h, s := range p.live {
		errs = append(errs, fmt.Errorf("handle %d (%dx%d %s) not released", h, s.width, s.height, s.format))
	}
	return errors.Join(errs...)
}
