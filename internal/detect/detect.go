// Package detect decides whether the channel file changed since it was last
// looked at, and carries the echo guard that tells a self-inflicted change
// apart from a remote one.
package detect

import (
	"errors"
	"io/fs"
	"sync/atomic"

	"go.klb.dev/cloudclip/internal/store"
)

// Outcome is the result of one poll.
type Outcome int

const (
	Unchanged Outcome = iota
	Changed
)

func (o Outcome) String() string {
	if o == Changed {
		return "changed"
	}
	return "unchanged"
}

// Stater is the part of store.Store the detector needs.
type Stater interface {
	Stat() (store.Signature, error)
}

// Change describes a poll. Prev is the baseline before the poll and Cur the
// one after; both are nil when the file was absent.
type Change struct {
	Outcome Outcome
	Prev    *store.Signature
	Cur     *store.Signature
}

// Detector compares the file's modification time against a baseline.
// It is not safe for concurrent use; the daemon loop owns it.
type Detector struct {
	src      Stater
	baseline *store.Signature
}

// New returns a Detector whose baseline is the file's current state, or absent
// if the file does not exist yet.
func New(src Stater) *Detector {
	d := &Detector{src: src}
	if sig, err := src.Stat(); err == nil {
		d.baseline = &sig
	}
	return d
}

// Poll stats the file and reports whether its modification time differs from
// the baseline. Times are compared for equality only: a sync client restoring
// an older version may move the timestamp backwards, and that is still a
// change. On Changed the baseline moves to the new signature before Poll
// returns.
//
// A missing file is Unchanged with a nil error and leaves the baseline alone,
// since sync clients delete and recreate files while replicating. Any other
// stat failure is also Unchanged and is returned for logging.
func (d *Detector) Poll() (Change, error) {
	prev := d.baseline
	sig, err := d.src.Stat()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Change{Outcome: Unchanged, Prev: prev, Cur: prev}, nil
		}
		return Change{Outcome: Unchanged, Prev: prev, Cur: prev}, err
	}
	if prev != nil && prev.ModTime.Equal(sig.ModTime) {
		return Change{Outcome: Unchanged, Prev: prev, Cur: prev}, nil
	}
	d.baseline = &sig
	return Change{Outcome: Changed, Prev: prev, Cur: &sig}, nil
}

// Restore puts back a baseline returned by an earlier Poll, so the change it
// reported is seen again on the next poll.
func (d *Detector) Restore(sig *store.Signature) { d.baseline = sig }

// Baseline returns the current baseline, or nil if none is known.
func (d *Detector) Baseline() *store.Signature { return d.baseline }

// Guard suppresses exactly one detected change after a local write.
// It is a flag, not a counter: several writes between two polls still produce
// one observed change, which consumes the single arm.
type Guard struct {
	armed atomic.Bool
}

// Arm marks the next detected change as our own.
func (g *Guard) Arm() { g.armed.Store(true) }

// ConsumeIfArmed clears the flag and returns its previous value.
func (g *Guard) ConsumeIfArmed() bool { return g.armed.Swap(false) }

// Armed reports the flag without clearing it.
func (g *Guard) Armed() bool { return g.armed.Load() }
