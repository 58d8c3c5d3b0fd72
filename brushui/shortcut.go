package brushui

import "fmt"

// Key names an input key or button, e.g. "R" or "MouseLeft".
type Key string

type binding struct {
	pressed    bool
	onPressed  []func() error
	onReleased []func() error
}

// Shortcuts maps keys to press and release listeners.
// The zero value is ready to use.
type Shortcuts struct {
	bindings map[Key]*binding
}

// Bind registers listeners for key. Binding a key again adds listeners alongside
// the existing ones. Either listener may be nil.
func (sc *Shortcuts) Bind(key Key, onPressed, onReleased func() error) {
	if sc.bindings == nil {
		sc.bindings = make(map[Key]*binding)
	}
	b := sc.bindings[key]
	if b == nil {
		b = &binding{}
		sc.bindings[key] = b
	}
	if onPressed != nil {
		b.onPressed = append(b.onPressed, onPressed)
	}
	if onReleased != nil {
		b.onReleased = append(b.onReleased, onReleased)
	}
}

// Dispatch reports the state of key. Listeners run in registration order, only on
// transitions: press listeners when key goes from released to pressed and release
// listeners the other way around. The first listener error aborts the dispatch
// and is returned; the key state is updated regardless.
func (sc *Shortcuts) Dispatch(key Key, pressed bool) error {
	b := sc.bindings[key]
	if b == nil || b.pressed == pressed {
		return nil
	}
	b.pressed = pressed
	listeners := b.onReleased
	if pressed {
		listeners = b.onPressed
	}
	for i, fn := range listeners {
		if err := fn(); err != nil {
			return fmt.Errorf("shortcut %s listener %d: %w", key, i, err)
		}
	}
	return nil
}

// Pressed reports whether key is currently held.
func (sc *Shortcuts) Pressed(key Key) bool {
	b := sc.bindings[key]
	return b != nil && b.pressed
}

// Keys returns the number of bound keys.
func (sc *Shortcuts) Keys() int { return len(sc.bindings) }
