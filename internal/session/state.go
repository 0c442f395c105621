// Package session drives one quiz attempt through its screens. Reduce is the
// pure transition function; Engine owns the state and does the IO.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/mind-engage/mindengage-quiz/internal/catalog"
	"github.com/mind-engage/mindengage-quiz/internal/exam"
	"github.com/mind-engage/mindengage-quiz/internal/scoring"
	"github.com/mind-engage/mindengage-quiz/internal/selection"
)

type Screen string

const (
	ScreenHome          Screen = "home"
	ScreenModeSelect    Screen = "mode_select"
	ScreenSubjectSelect Screen = "subject_select"
	ScreenInQuiz        Screen = "in_quiz"
	ScreenResults       Screen = "results"
	ScreenReview        Screen = "review"
)

var (
	ErrWrongScreen          = errors.New("action not available on this screen")
	ErrConfirmationRequired = errors.New("some questions are unanswered; confirm to submit")
	ErrIndexOutOfRange      = errors.New("question index out of range")
	ErrAssemblyInProgress   = errors.New("questions are already loading")
	ErrTimeUp               = errors.New("time is up; quiz submitted")
)

// State is an immutable snapshot. Session and Report are nil outside a
// quiz and its results.
type State struct {
	Screen   Screen
	Catalog  catalog.Catalog
	Selector selection.Selector
	Session  *exam.Session
	Report   *scoring.Report
	// Warning names subjects skipped at assembly; Error is the last blocking
	// failure on SubjectSelect.
	Warning string
	Error   string
}

func Initial(c catalog.Catalog) State {
	return State{Screen: ScreenHome, Catalog: c}
}

type Event interface{ event() }

type (
	Begin      struct{}
	ChooseMode struct {
		Mode   selection.Mode
		Single bool
	}
	Toggle    struct{ Subject string }
	Assembled struct {
		Session exam.Session
		Warning string
	}
	AssemblyFailed struct{ Err error }
	SelectAnswer   struct{ Option int }
	Next           struct{}
	Prev           struct{}
	JumpTo         struct{ Index int }
	Submit         struct {
		Confirm bool
		At      time.Time
	}
	Expire      struct{ At time.Time }
	ShowReview  struct{}
	ShowResults struct{}
	GoHome      struct{}
	Retake      struct{}
)

func (Begin) event()          {}
func (ChooseMode) event()     {}
func (Toggle) event()         {}
func (Assembled) event()      {}
func (AssemblyFailed) event() {}
func (SelectAnswer) event()   {}
func (Next) event()           {}
func (Prev) event()           {}
func (JumpTo) event()         {}
func (Submit) event()         {}
func (Expire) event()         {}
func (ShowReview) event()     {}
func (ShowResults) event()    {}
func (GoHome) event()         {}
func (Retake) event()         {}

// Reduce applies ev to s. On error the returned state is s unchanged.
func Reduce(s State, ev Event) (State, error) {
	switch e := ev.(type) {
	case Begin:
		if s.Screen != ScreenHome {
			return s, wrongScreen(s, ev)
		}
		s.Screen = ScreenModeSelect
		return s, nil

	case ChooseMode:
		if s.Screen != ScreenModeSelect && s.Screen != ScreenSubjectSelect {
			return s, wrongScreen(s, ev)
		}
		sel, err := selection.New(s.Catalog, e.Mode, e.Single)
		if err != nil {
			return s, err
		}
		s.Screen = ScreenSubjectSelect
		s.Selector = sel
		s.Warning, s.Error = "", ""
		return s, nil

	case Toggle:
		if s.Screen != ScreenSubjectSelect {
			return s, wrongScreen(s, ev)
		}
		sel, _, err := s.Selector.Toggle(e.Subject)
		if err != nil {
			return s, err
		}
		s.Selector = sel
		s.Error = ""
		return s, nil

	case Assembled:
		if s.Screen != ScreenSubjectSelect {
			return s, wrongScreen(s, ev)
		}
		sess := e.Session
		s.Screen = ScreenInQuiz
		s.Session = &sess
		s.Report = nil
		s.Warning, s.Error = e.Warning, ""
		return s, nil

	case AssemblyFailed:
		if s.Screen != ScreenSubjectSelect {
			return s, wrongScreen(s, ev)
		}
		s.Error = e.Err.Error()
		return s, nil

	case SelectAnswer:
		sess, err := inQuiz(s, ev)
		if err != nil {
			return s, err
		}
		if e.Option < 0 || e.Option >= exam.OptionCount {
			return s, fmt.Errorf("%w: option %d", ErrIndexOutOfRange, e.Option)
		}
		next := sess.WithAnswer(sess.CurrentIndex, e.Option)
		s.Session = &next
		return s, nil

	case Next, Prev, JumpTo:
		sess, err := inQuiz(s, ev)
		if err != nil {
			return s, err
		}
		i := sess.CurrentIndex
		switch e := ev.(type) {
		case Next:
			i = min(i+1, len(sess.Questions)-1)
		case Prev:
			i = max(i-1, 0)
		case JumpTo:
			if e.Index < 0 || e.Index >= len(sess.Questions) {
				return s, fmt.Errorf("%w: %d", ErrIndexOutOfRange, e.Index)
			}
			i = e.Index
		}
		sess.CurrentIndex = i
		s.Session = &sess
		return s, nil

	case Submit:
		sess, err := inQuiz(s, ev)
		if err != nil {
			return s, err
		}
		if !e.Confirm && sess.Unanswered() > 0 {
			return s, fmt.Errorf("%w (%d unanswered)", ErrConfirmationRequired, sess.Unanswered())
		}
		return finish(s, sess, e.At, false), nil

	case Expire:
		sess, err := inQuiz(s, ev)
		if err != nil {
			return s, err
		}
		return finish(s, sess, e.At, true), nil

	case ShowReview:
		if s.Screen != ScreenResults {
			return s, wrongScreen(s, ev)
		}
		s.Screen = ScreenReview
		return s, nil

	case ShowResults:
		if s.Screen != ScreenReview {
			return s, wrongScreen(s, ev)
		}
		s.Screen = ScreenResults
		return s, nil

	case GoHome:
		if s.Screen == ScreenHome {
			return s, nil
		}
		return Initial(s.Catalog), nil

	case Retake:
		if s.Screen != ScreenResults && s.Screen != ScreenReview {
			return s, wrongScreen(s, ev)
		}
		s.Screen = ScreenSubjectSelect
		s.Session, s.Report = nil, nil
		s.Warning, s.Error = "", ""
		return s, nil
	}
	return s, fmt.Errorf("unknown event %T", ev)
}

func inQuiz(s State, ev Event) (exam.Session, error) {
	if s.Screen != ScreenInQuiz || s.Session == nil {
		return exam.Session{}, wrongScreen(s, ev)
	}
	return *s.Session, nil
}

func finish(s State, sess exam.Session, at time.Time, expired bool) State {
	sess.Status = exam.StatusSubmitted
	sess.SubmittedAt = at
	sess.Expired = expired
	rep := scoring.Score(sess.Questions, sess.Answers)
	s.Screen = ScreenResults
	s.Session = &sess
	s.Report = &rep
	return s
}

func wrongScreen(s State, ev Event) error {
	return fmt.Errorf("%w: %T on %s", ErrWrongScreen, ev, s.Screen)
}
