// Package selection enforces which subjects a session may start with.
package selection

import (
	"errors"
	"fmt"

	"github.com/mind-engage/mindengage-quiz/internal/catalog"
)

type Mode string

const (
	ModeTest Mode = "test"
	ModeExam Mode = "exam"
)

func (m Mode) Valid() bool { return m == ModeTest || m == ModeExam }

// MaxOthers is how many subjects join the compulsory one in multi-subject mode.
const MaxOthers = 3

var (
	ErrTooManySubjects  = fmt.Errorf("you can only select %d subjects besides the compulsory one", MaxOthers)
	ErrCompulsoryLocked = errors.New("the compulsory subject is always selected")
	ErrUnknownSubject   = errors.New("unknown subject")
	ErrInvalidMode      = errors.New("invalid mode")
	ErrInvalidSelection = errors.New("invalid subject selection")
)

// Selection is the frozen choice a session is assembled from.
type Selection struct {
	Mode          Mode     `json:"mode"`
	SingleSubject bool     `json:"single_subject"`
	Subjects      []string `json:"subjects"`
}

// Profile names the quota/timing row, e.g. "multi.exam".
func (s Selection) Profile() string { return Profile(s.Mode, s.SingleSubject) }

func Profile(mode Mode, single bool) string {
	if single {
		return "single." + string(mode)
	}
	return "multi." + string(mode)
}

type Outcome string

const (
	Added   Outcome = "added"
	Removed Outcome = "removed"
)

// Selector is an immutable value; every change returns a new Selector.
type Selector struct {
	cat    catalog.Catalog
	mode   Mode
	single bool
	picked []string // multi: the others, in click order; single: at most one
}

// New returns the mode default: compulsory only (multi) or nothing (single).
func New(c catalog.Catalog, mode Mode, single bool) (Selector, error) {
	if !mode.Valid() {
		return Selector{}, fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
	return Selector{cat: c, mode: mode, single: single}, nil
}

func (s Selector) Mode() Mode   { return s.mode }
func (s Selector) Single() bool { return s.single }

// Toggle adds or removes a subject. A rejected toggle returns s unchanged
// together with the reason.
func (s Selector) Toggle(id string) (Selector, Outcome, error) {
	if _, ok := s.cat.Lookup(id); !ok {
		return s, "", fmt.Errorf("%w: %s", ErrUnknownSubject, id)
	}
	if s.single {
		if len(s.picked) == 1 && s.picked[0] == id {
			return s.with(nil), Removed, nil
		}
		return s.with([]string{id}), Added, nil
	}

	if id == s.cat.Compulsory {
		return s, "", ErrCompulsoryLocked
	}
	for i, p := range s.picked {
		if p == id {
			next := make([]string, 0, len(s.picked)-1)
			next = append(next, s.picked[:i]...)
			next = append(next, s.picked[i+1:]...)
			return s.with(next), Removed, nil
		}
	}
	if len(s.picked) >= MaxOthers {
		return s, "", ErrTooManySubjects
	}
	next := make([]string, 0, len(s.picked)+1)
	next = append(next, s.picked...)
	next = append(next, id)
	return s.with(next), Added, nil
}

func (s Selector) with(picked []string) Selector {
	s.picked = picked
	return s
}

// Subjects lists the current selection; in multi mode the compulsory
// subject is first.
func (s Selector) Subjects() []string {
	if s.single {
		return append([]string(nil), s.picked...)
	}
	out := make([]string, 0, len(s.picked)+1)
	out = append(out, s.cat.Compulsory)
	return append(out, s.picked...)
}

func (s Selector) Ready() bool {
	if s.mode == "" {
		return false
	}
	if s.single {
		return len(s.picked) == 1
	}
	return len(s.picked) == MaxOthers
}

func (s Selector) Selection() Selection {
	return Selection{Mode: s.mode, SingleSubject: s.single, Subjects: s.Subjects()}
}

// Validate re-checks a selection's count invariants before assembly.
func Validate(sel Selection, c catalog.Catalog) error {
	if !sel.Mode.Valid() {
		return fmt.Errorf("%w: mode %q", ErrInvalidSelection, sel.Mode)
	}
	seen := map[string]bool{}
	for _, id := range sel.Subjects {
		if _, ok := c.Lookup(id); !ok {
			return fmt.Errorf("%w: unknown subject %s", ErrInvalidSelection, id)
		}
		if seen[id] {
			return fmt.Errorf("%w: duplicate subject %s", ErrInvalidSelection, id)
		}
		seen[id] = true
	}
	if sel.SingleSubject {
		if len(sel.Subjects) != 1 {
			return fmt.Errorf("%w: select exactly one subject", ErrInvalidSelection)
		}
		return nil
	}
	if len(sel.Subjects) != MaxOthers+1 || sel.Subjects[0] != c.Compulsory {
		return fmt.Errorf("%w: select exactly %d subjects (%s + %d others)",
			ErrInvalidSelection, MaxOthers+1, catalog.DisplayName(c.Compulsory), MaxOthers)
	}
	return nil
}
