package surface

import (
	"errors"
	"math"
	"testing"
)

func TestPoolAccounting(t *testing.T) {
	var p Pool
	a, err := p.Acquire(4, 4, FormatR32F)
	if err != nil {
		t.Fatal(err)
	}
	b, err := p.Acquire(2, 8, FormatR16)
	if err != nil {
		t.Fatal(err)
	}
	if p.Outstanding() != 2 {
		t.Fatal("want 2 outstanding, got", p.Outstanding())
	}
	if p.OutstandingBytes() != 4*4*4+2*8*2 {
		t.Error("unexpected accounted bytes", p.OutstandingBytes())
	}
	if err := p.AssertAllReleased(); err == nil {
		t.Error("expected unreleased surfaces error")
	}
	if err := p.Release(a); err != nil {
		t.Fatal(err)
	}
	if err := p.Release(a); !errors.Is(err, ErrReleased) {
		t.Error("expected ErrReleased on double release, got", err)
	}
	if err := p.Release(b); err != nil {
		t.Fatal(err)
	}
	if err := p.AssertAllReleased(); err != nil {
		t.Error(err)
	}
	if p.OutstandingBytes() != 0 {
		t.Error("bytes not back to baseline", p.OutstandingBytes())
	}
	acq, rel := p.Stats()
	if acq != 2 || rel != 2 {
		t.Error("unexpected stats", acq, rel)
	}
}

func TestPoolReusesBuffers(t *testing.T) {
	var p Pool
	a, _ := p.Acquire(3, 3, FormatR32F)
	a.Fill(7)
	ptr := &a.Pix()[0]
	p.Release(a)
	b, _ := p.Acquire(3, 3, FormatR32F)
	defer p.Release(b)
	if &b.Pix()[0] != ptr {
		t.Error("expected pooled buffer reuse")
	}
	if b.Handle() == 0 {
		t.Error("pooled surface must have a handle")
	}
}

func TestPoolForeignSurface(t *testing.T) {
	var p Pool
	s, err := New(2, 2, FormatR32F)
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Release(s); !errors.Is(err, ErrUnknownHandle) {
		t.Error("expected ErrUnknownHandle, got", err)
	}
}

func TestBlitMismatch(t *testing.T) {
	var p Pool
	a, _ := p.Acquire(2, 2, FormatR32F)
	b, _ := p.Acquire(3, 2, FormatR32F)
	defer p.Release(a)
	defer p.Release(b)
	if err := p.Blit(a, b); !errors.Is(err, ErrMismatchedSize) {
		t.Error("expected ErrMismatchedSize, got", err)
	}
	c, _ := p.Acquire(2, 2, FormatR32F)
	defer p.Release(c)
	a.Fill(0.25)
	if err := p.Blit(a, c); err != nil {
		t.Fatal(err)
	}
	got, err := p.Readback(c, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range got {
		if v != 0.25 {
			t.Errorf("texel %d: want 0.25, got %v", i, v)
		}
	}
}

func TestSampleBilinear(t *testing.T) {
	s, _ := New(2, 1, FormatR32F)
	s.Set(0, 0, 0)
	s.Set(1, 0, 1)
	const tol = 1e-6
	tests := []struct {
		u, want float32
	}{
		{u: 0, want: 0},       // Clamped to first texel.
		{u: 0.25, want: 0},    // First texel center.
		{u: 0.5, want: 0.5},   // Midway between centers.
		{u: 0.75, want: 1},    // Second texel center.
		{u: 1, want: 1},       // Clamped to last texel.
		{u: 0.625, want: .75}, // Three quarters.
	}
	for _, test := range tests {
		got := s.Sample(test.u, 0.5)
		if math.Abs(float64(got-test.want)) > tol {
			t.Errorf("Sample(%v): want %v, got %v", test.u, test.want, got)
		}
	}
}

func TestVecPool(t *testing.T) {
	var vp VecPool
	a := vp.Float.Acquire(10)
	b := vp.V2.Acquire(3)
	if len(a) != 10 || len(b) != 3 {
		t.Fatal("bad lengths")
	}
	if err := vp.AssertAllReleased(); err == nil {
		t.Error("expected unreleased buffer error")
	}
	if err := vp.Float.Release(a); err != nil {
		t.Fatal(err)
	}
	if err := vp.Float.Release(a); err == nil {
		t.Error("expected double release error")
	}
	if err := vp.V2.Release(b); err != nil {
		t.Fatal(err)
	}
	if err := vp.AssertAllReleased(); err != nil {
		t.Error(err)
	}
	c := vp.Float.Acquire(5)
	defer vp.Float.Release(c)
	if vp.Float.NumBuffers() != 1 {
		t.Error("expected buffer reuse")
	}
	if _, err := GetVecPool(&vp); err != nil {
		t.Error(err)
	}
	if _, err := GetVecPool(3); err == nil {
		t.Error("expected error on bad userData")
	}
}
