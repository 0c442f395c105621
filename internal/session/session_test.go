package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mind-engage/mindengage-quiz/internal/assembly"
	"github.com/mind-engage/mindengage-quiz/internal/catalog"
	"github.com/mind-engage/mindengage-quiz/internal/exam"
	"github.com/mind-engage/mindengage-quiz/internal/scoring"
	"github.com/mind-engage/mindengage-quiz/internal/selection"
	"github.com/mind-engage/mindengage-quiz/internal/stats"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fakeAssembler struct {
	res   assembly.Result
	err   error
	gate  chan struct{} // when set, Assemble blocks until closed
	calls int
}

func (f *fakeAssembler) Assemble(ctx context.Context, _ selection.Selection) (assembly.Result, error) {
	f.calls++
	if f.gate != nil {
		<-f.gate
	}
	return f.res, f.err
}

type fakeRecorder struct {
	mu      sync.Mutex
	reports []scoring.Report
}

func (r *fakeRecorder) Record(_ context.Context, _ exam.Session, rep scoring.Report) stats.AggregateStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, rep)
	return stats.AggregateStats{TotalSessions: len(r.reports)}
}

func (r *fakeRecorder) Stats() stats.AggregateStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return stats.AggregateStats{TotalSessions: len(r.reports)}
}

type fakeTicker struct{ stopped chan struct{} }

func (t *fakeTicker) Stop() { close(t.stopped) }

func threeQuestions() []exam.Question {
	return []exam.Question{
		{ID: 1, Text: "q1", Subject: "english", CorrectOptionIndex: 0},
		{ID: 2, Text: "q2", Subject: "english", CorrectOptionIndex: 1, PassageID: "english/p1", PassageText: "text", IsPassageGroupStart: true},
		{ID: 3, Text: "q3", Subject: "english", CorrectOptionIndex: 2, PassageID: "english/p1", PassageText: "text"},
	}
}

type harness struct {
	e       *Engine
	clk     *clock
	asm     *fakeAssembler
	rec     *fakeRecorder
	tickers []*fakeTicker
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		clk: &clock{t: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)},
		asm: &fakeAssembler{res: assembly.Result{Questions: threeQuestions(), TimeBudgetSec: 840}},
		rec: &fakeRecorder{},
	}
	factory := func(func()) (Ticker, error) {
		tk := &fakeTicker{stopped: make(chan struct{})}
		h.tickers = append(h.tickers, tk)
		return tk, nil
	}
	h.e = NewEngine(Initial(catalog.Default()), h.asm, h.rec, factory)
	h.e.Now = h.clk.Now
	h.e.NewID = func() string { return "sess-1" }
	h.e.Logf = t.Logf
	return h
}

func (h *harness) must(t *testing.T, ev Event) State {
	t.Helper()
	st, err := h.e.Dispatch(ev)
	if err != nil {
		t.Fatalf("%T: %v", ev, err)
	}
	return st
}

// toQuiz walks Home -> single-subject test on english -> InQuiz.
func (h *harness) toQuiz(t *testing.T) State {
	t.Helper()
	h.must(t, Begin{})
	h.must(t, ChooseMode{Mode: selection.ModeTest, Single: true})
	h.must(t, Toggle{Subject: "english"})
	st, err := h.e.Start(context.Background())
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if st.Screen != ScreenInQuiz {
		t.Fatalf("screen = %s", st.Screen)
	}
	return st
}

func waitStopped(t *testing.T, tk *fakeTicker) {
	t.Helper()
	select {
	case <-tk.stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("ticker not stopped")
	}
}

func TestFullFlow(t *testing.T) {
	h := newHarness(t)
	st := h.toQuiz(t)
	if len(st.Session.Answers) != len(st.Session.Questions) || st.Session.ID != "sess-1" {
		t.Fatalf("session = %+v", st.Session)
	}
	if len(h.tickers) != 1 {
		t.Fatalf("tickers = %d", len(h.tickers))
	}

	h.must(t, SelectAnswer{Option: 0})
	st = h.must(t, SelectAnswer{Option: 0})
	if st.Session.CurrentIndex != 0 {
		t.Fatal("selecting an answer must not advance")
	}
	h.must(t, JumpTo{Index: 2})
	h.must(t, SelectAnswer{Option: 2})

	if _, err := h.e.Dispatch(Submit{}); !errors.Is(err, ErrConfirmationRequired) {
		t.Fatalf("submit without confirm err = %v", err)
	}
	if h.e.State().Screen != ScreenInQuiz {
		t.Fatal("unconfirmed submit left the quiz")
	}
	st = h.must(t, Submit{Confirm: true})
	if st.Screen != ScreenResults || st.Report.Percentage != 67 || st.Report.Unanswered != 1 {
		t.Fatalf("results = %s %+v", st.Screen, st.Report)
	}
	waitStopped(t, h.tickers[0])

	h.must(t, ShowReview{})
	st = h.must(t, ShowResults{})
	if st.Session.Answers[0] == nil || *st.Session.Answers[2] != 2 {
		t.Fatal("review round trip changed answers")
	}

	h.e.Close()
	if got := h.rec.Stats().TotalSessions; got != 1 {
		t.Fatalf("recorded sessions = %d", got)
	}

	st = h.must(t, Retake{})
	if st.Screen != ScreenSubjectSelect || st.Session != nil || !st.Selector.Ready() {
		t.Fatalf("retake = %+v", st)
	}
}

func TestNavigationClamps(t *testing.T) {
	h := newHarness(t)
	h.toQuiz(t)
	st := h.must(t, Prev{})
	if st.Session.CurrentIndex != 0 {
		t.Fatalf("prev at 0 = %d", st.Session.CurrentIndex)
	}
	h.must(t, Next{})
	h.must(t, Next{})
	st = h.must(t, Next{})
	if st.Session.CurrentIndex != 2 {
		t.Fatalf("next at end = %d", st.Session.CurrentIndex)
	}
	if _, err := h.e.Dispatch(JumpTo{Index: 3}); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("jump err = %v", err)
	}
	if _, err := h.e.Dispatch(SelectAnswer{Option: 4}); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("option err = %v", err)
	}
}

func TestExpiryFiresOnce(t *testing.T) {
	h := newHarness(t)
	h.toQuiz(t)
	h.clk.Advance(839 * time.Second)
	if h.e.Tick(h.clk.Now()) {
		t.Fatal("expired early")
	}
	if got := FormatClock(h.e.Remaining(h.clk.Now())); got != "00:01" {
		t.Fatalf("clock = %s", got)
	}
	// a delayed tick lands well past the deadline
	h.clk.Advance(10 * time.Minute)
	if h.e.Remaining(h.clk.Now()) != 0 {
		t.Fatal("remaining went negative or stayed positive")
	}
	if !h.e.Tick(h.clk.Now()) {
		t.Fatal("tick did not expire")
	}
	if h.e.Tick(h.clk.Now()) {
		t.Fatal("expired twice")
	}
	st := h.e.State()
	if st.Screen != ScreenResults || !st.Session.Expired || st.Report.Unanswered != 3 {
		t.Fatalf("state = %s %+v", st.Screen, st.Report)
	}
	waitStopped(t, h.tickers[0])
	h.e.Close()
	if len(h.rec.reports) != 1 {
		t.Fatalf("reports = %d", len(h.rec.reports))
	}
}

func TestInteractionAfterDeadlineSubmits(t *testing.T) {
	h := newHarness(t)
	h.toQuiz(t)
	h.clk.Advance(900 * time.Second)
	if _, err := h.e.Dispatch(SelectAnswer{Option: 1}); !errors.Is(err, ErrTimeUp) {
		t.Fatalf("err = %v", err)
	}
	st := h.e.State()
	if st.Screen != ScreenResults || st.Session.Answers[0] != nil {
		t.Fatalf("state = %+v", st)
	}
}

func TestStartFailureStaysOnSubjectSelect(t *testing.T) {
	h := newHarness(t)
	h.asm.err = assembly.ErrNoQuestionsAssembled
	h.must(t, Begin{})
	h.must(t, ChooseMode{Mode: selection.ModeExam, Single: true})
	h.must(t, Toggle{Subject: "physics"})
	st, err := h.e.Start(context.Background())
	if !errors.Is(err, assembly.ErrNoQuestionsAssembled) {
		t.Fatalf("err = %v", err)
	}
	if st.Screen != ScreenSubjectSelect || st.Session != nil || st.Error == "" {
		t.Fatalf("state = %+v", st)
	}
	if len(h.tickers) != 0 {
		t.Fatal("ticker started on failure")
	}
}

func TestStartRejectsInvalidSelection(t *testing.T) {
	h := newHarness(t)
	h.must(t, Begin{})
	h.must(t, ChooseMode{Mode: selection.ModeTest})
	h.must(t, Toggle{Subject: "physics"})
	if _, err := h.e.Start(context.Background()); !errors.Is(err, selection.ErrInvalidSelection) {
		t.Fatalf("err = %v", err)
	}
	if h.asm.calls != 0 {
		t.Fatal("assembler called for an invalid selection")
	}
}

func TestStartReentrantAndStale(t *testing.T) {
	h := newHarness(t)
	h.asm.gate = make(chan struct{})
	h.must(t, Begin{})
	h.must(t, ChooseMode{Mode: selection.ModeTest, Single: true})
	h.must(t, Toggle{Subject: "english"})

	done := make(chan error, 1)
	go func() {
		_, err := h.e.Start(context.Background())
		done <- err
	}()
	for !h.e.Loading() {
		time.Sleep(time.Millisecond)
	}
	if _, err := h.e.Start(context.Background()); !errors.Is(err, ErrAssemblyInProgress) {
		t.Fatalf("second start err = %v", err)
	}
	h.must(t, GoHome{})
	close(h.asm.gate)
	if err := <-done; !errors.Is(err, ErrStaleAssembly) {
		t.Fatalf("stale err = %v", err)
	}
	if st := h.e.State(); st.Screen != ScreenHome || st.Session != nil {
		t.Fatalf("state = %+v", st)
	}
}

func TestWarningSurfaces(t *testing.T) {
	h := newHarness(t)
	h.asm.res.Failed = []assembly.SubjectFailure{{Subject: "physics"}}
	st := h.toQuiz(t)
	if st.Warning == "" {
		t.Fatal("missing warning")
	}
}

func TestGoHomeDiscardsSession(t *testing.T) {
	h := newHarness(t)
	h.toQuiz(t)
	st := h.must(t, GoHome{})
	if st.Screen != ScreenHome || st.Session != nil || st.Report != nil {
		t.Fatalf("state = %+v", st)
	}
	waitStopped(t, h.tickers[0])
	h.e.Close()
	if len(h.rec.reports) != 0 {
		t.Fatal("abandoned session was recorded")
	}
}

func TestReduceRejectsWrongScreen(t *testing.T) {
	s := Initial(catalog.Default())
	for _, ev := range []Event{Toggle{Subject: "english"}, Next{}, Submit{}, ShowReview{}, Retake{}} {
		got, err := Reduce(s, ev)
		if !errors.Is(err, ErrWrongScreen) {
			t.Errorf("%T: err = %v", ev, err)
		}
		if got.Screen != ScreenHome {
			t.Errorf("%T moved to %s", ev, got.Screen)
		}
	}
}

func TestRenderHidesAnswerKey(t *testing.T) {
	h := newHarness(t)
	h.toQuiz(t)
	h.must(t, Next{})
	v := Render(h.e.State(), h.clk.Now(), stats.AggregateStats{}, false)
	if v.Current == nil || v.Current.PassageText != "text" || !v.Current.GroupStart || v.TimeLeft != "14:00" {
		t.Fatalf("view = %+v", v)
	}
	if v.Review != nil || v.Report != nil {
		t.Fatal("answer data leaked into the quiz view")
	}
}

func TestFormatClock(t *testing.T) {
	cases := map[time.Duration]string{
		0:                       "00:00",
		-time.Second:            "00:00",
		59 * time.Second:        "00:59",
		7200 * time.Second:      "120:00",
		1560 * time.Second:      "26:00",
		1500 * time.Millisecond: "00:01",
	}
	for d, want := range cases {
		if got := FormatClock(d); got != want {
			t.Errorf("FormatClock(%v) = %s, want %s", d, got, want)
		}
	}
}
