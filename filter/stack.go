package filter

import (
	"errors"
	"fmt"

	"github.com/soypat/terrabrush"
	"github.com/soypat/terrabrush/surface"
)

type entry struct {
	f        Filter
	disabled bool
}

// Stack is an ordered sequence of filters evaluated one after the other, each
// reading the previous filter's output. The stack owns the sequence, not the
// filters' resources, except when cleared with Clear(true).
// Stack is not safe for concurrent use.
type Stack struct {
	provider surface.Provider
	entries  []entry
	scratch  surface.VecPool
}

// NewStack creates an empty stack that acquires its ping-pong surfaces from p.
func NewStack(p surface.Provider) *Stack {
	if p == nil {
		panic("nil surface provider")
	}
	return &Stack{provider: p}
}

// Len returns the number of filters in the stack, including disabled ones.
func (st *Stack) Len() int { return len(st.entries) }

// At returns the filter at index i.
func (st *Stack) At(i int) (Filter, error) {
	if i < 0 || i >= len(st.entries) {
		return nil, ErrIndexOutOfRange
	}
	return st.entries[i].f, nil
}

// Filters returns the stack's filters in evaluation order.
func (st *Stack) Filters() []Filter {
	out := make([]Filter, len(st.entries))
	for i, e := range st.entries {
		out[i] = e.f
	}
	return out
}

// Add appends f to the end of the stack.
func (st *Stack) Add(f Filter) {
	if f == nil {
		panic(errNilFilter)
	}
	st.entries = append(st.entries, entry{f: f})
}

// Insert places f at index i, shifting later filters back. i may equal Len.
func (st *Stack) Insert(i int, f Filter) error {
	if f == nil {
		return errNilFilter
	} else if i < 0 || i > len(st.entries) {
		return ErrIndexOutOfRange
	}
	st.entries = append(st.entries, entry{})
	copy(st.entries[i+1:], st.entries[i:])
	st.entries[i] = entry{f: f}
	return nil
}

// Remove detaches the first occurrence of f from the stack without destroying it.
// It reports whether f was found.
func (st *Stack) Remove(f Filter) bool {
	for i, e := range st.entries {
		if e.f == f {
			st.entries = append(st.entries[:i], st.entries[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveAt detaches and returns the filter at index i without destroying it.
func (st *Stack) RemoveAt(i int) (Filter, error) {
	if i < 0 || i >= len(st.entries) {
		return nil, ErrIndexOutOfRange
	}
	f := st.entries[i].f
	st.entries = append(st.entries[:i], st.entries[i+1:]...)
	return f, nil
}

// SetEnabled toggles evaluation of the filter at index i. Disabled filters keep their place.
func (st *Stack) SetEnabled(i int, enabled bool) error {
	if i < 0 || i >= len(st.entries) {
		return ErrIndexOutOfRange
	}
	st.entries[i].disabled = !enabled
	return nil
}

// Clear removes every filter. With destroy set every filter owning resources is
// destroyed; otherwise ownership of the filters passes to the caller.
// All filters are removed even if some fail to be destroyed.
func (st *Stack) Clear(destroy bool) error {
	var errs []error
	if destroy {
		for _, e := range st.entries {
			if err := Destroy(e.f); err != nil {
				errs = append(errs, fmt.Errorf("destroying %s filter: %w", e.f.Name(), err))
			}
		}
	}
	clear(st.entries)
	st.entries = st.entries[:0]
	return errors.Join(errs...)
}

// Eval composites the stack into dst.
//
// An empty stack (or one with every filter disabled) fills dst with [Neutral] regardless of its
// contents. Otherwise src is copied into a temporary surface, or the temporary is set to
// Neutral if src is nil, and filters run in order ping-ponging between two temporaries
// acquired from the stack's provider. The last result is copied into dst. src is never modified.
// Temporaries are released on every return path.
func (st *Stack) Eval(fc Context, src, dst *surface.Surface) (err error) {
	if dst == nil {
		return errNilDestination
	} else if dst.Released() {
		return surface.ErrReleased
	}
	active := 0
	for _, e := range st.entries {
		if !e.disabled {
			active++
		}
	}
	if active == 0 {
		dst.Fill(Neutral)
		return nil
	}
	if src != nil && !src.SameSize(dst) {
		return fmt.Errorf("stack source %dx%d, destination %dx%d: %w", src.Width(), src.Height(), dst.Width(), dst.Height(), surface.ErrMismatchedSize)
	}
	if !fc.Format.IsValid() {
		fc.Format = dst.Format()
	}
	if fc.Scratch == nil {
		fc.Scratch = &st.scratch
	}
	w, h := dst.Width(), dst.Height()
	cur, err := st.provider.Acquire(w, h, fc.Format)
	if err != nil {
		return err
	}
	defer st.release(cur, &err)
	next, err := st.provider.Acquire(w, h, fc.Format)
	if err != nil {
		return err
	}
	defer st.release(next, &err)

	if src != nil {
		err = st.provider.Blit(src, cur)
		if err != nil {
			return err
		}
	} else {
		cur.Fill(Neutral)
	}
	for _, e := range st.entries {
		if e.disabled {
			continue
		}
		err = e.f.Eval(fc, cur, next)
		if err != nil {
			return fmt.Errorf("%s filter: %w", e.f.Name(), err)
		}
		cur, next = next, cur
	}
	return st.provider.Blit(cur, dst)
}

func (st *Stack) release(s *surface.Surface, err *error) {
	rerr := st.provider.Release(s)
	if rerr != nil {
		terrabrush.Logger().Warn("releasing stack surface", "handle", s.Handle(), "err", rerr)
		*err = errors.Join(*err, rerr)
	}
}
