package timeddata

import (
	"time"

	"github.com/samber/mo"
)

type Options[T any] struct {
	LogLevel string // "debug", "info", "warn", "error"

	// Default builds the value Data hands out when the slot holds nothing.
	// When nil the zero value of T is used, so map slots need one.
	Default func() T

	// ResetOnRead makes Read drop the stored value as well as the pending
	// flag. When false the consumed value stays in storage: Data returns it
	// instead of a fresh default, and Alive keeps reporting on the last write.
	ResetOnRead bool

	// Clone copies the value Read hands out. When nil the value is returned
	// as is, so maps and slices keep sharing memory with the slot.
	Clone func(T) T

	// Now defaults to time.Now, whose monotonic reading keeps Alive immune
	// to wall clock changes.
	Now func() time.Time
}

// TimedData holds at most one value together with the time it was last
// written. A written value is handed out once by Read and is alive for the
// expiration window that follows its last write.
//
// TimedData does no locking. Callers sharing a slot across goroutines must
// serialize access themselves; Registry does that per key.
type TimedData[T any] struct {
	value      T
	present    bool
	written    bool
	lastWrite  time.Time
	expiration time.Duration
	opts       Options[T]
}

func New[T any](expiration time.Duration, opts Options[T]) (*TimedData[T], error) {
	if expiration < 0 {
		return nil, ErrNegativeExpiration
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &TimedData[T]{expiration: expiration, opts: opts}, nil
}

// Write replaces the held value, read or not, and marks it pending.
func (d *TimedData[T]) Write(v T) {
	d.value = v
	d.present = true
	d.touch()
	logf(d.opts.LogLevel, "debug", "Write, expiration: %v", d.expiration)
}

// Data returns a pointer to the held value for in-place changes such as
// appending to a slice. An empty slot is first filled with the default value.
// Every call counts as a write, whether or not the caller changes anything.
func (d *TimedData[T]) Data() *T {
	if !d.present {
		if d.opts.Default != nil {
			d.value = d.opts.Default()
		} else {
			var zero T
			d.value = zero
		}
		d.present = true
	}
	d.touch()
	return &d.value
}

// Read hands out the pending value and clears the pending flag. It returns
// mo.None when nothing has been written since the last Read.
//
// The value goes through Options.Clone. Without one, a map or slice taken
// here shares memory with the slot, and with ResetOnRead off a later Data
// call can change what the caller already took.
func (d *TimedData[T]) Read() mo.Option[T] {
	if !d.written {
		return mo.None[T]()
	}
	d.written = false
	v := d.value
	if d.opts.Clone != nil {
		v = d.opts.Clone(v)
	}
	if d.opts.ResetOnRead {
		var zero T
		d.value = zero
		d.present = false
	}
	logf(d.opts.LogLevel, "debug", "Read, reset storage: %t", d.opts.ResetOnRead)
	return mo.Some(v)
}

// Alive reports whether a value is held and its last write happened less
// than the expiration ago.
func (d *TimedData[T]) Alive() bool {
	if !d.present {
		return false
	}
	return d.opts.Now().Sub(d.lastWrite) < d.expiration
}

func (d *TimedData[T]) IsWritten() bool {
	return d.written
}

func (d *TimedData[T]) Expiration() time.Duration {
	return d.expiration
}

// LastWrite returns the time of the last write. The bool is false while the
// slot holds no value.
func (d *TimedData[T]) LastWrite() (time.Time, bool) {
	if !d.present {
		return time.Time{}, false
	}
	return d.lastWrite, true
}

func (d *TimedData[T]) touch() {
	d.written = true
	d.lastWrite = d.opts.Now()
}
