package scoring

import (
	"context"
	"log"
	"sync"

	"github.com/mind-engage/mindengage-quiz/internal/exam"
	"github.com/mind-engage/mindengage-quiz/internal/stats"
	syncx "github.com/mind-engage/mindengage-quiz/internal/sync"
)

// Recorder folds reports into the aggregate record. The in-memory copy is
// authoritative for the process; persistence failures only get logged.
type Recorder struct {
	Repo    *stats.Repository
	Journal syncx.Journal // optional
	Logf    func(format string, args ...any)

	mu      sync.Mutex
	current stats.AggregateStats
}

// NewRecorder reads the stored record once.
func NewRecorder(ctx context.Context, repo *stats.Repository, j syncx.Journal) *Recorder {
	return &Recorder{Repo: repo, Journal: j, Logf: log.Printf, current: repo.Load(ctx)}
}

func (r *Recorder) Stats() stats.AggregateStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Record never returns an error; it gives back the updated aggregate.
func (r *Recorder) Record(ctx context.Context, s exam.Session, rep Report) stats.AggregateStats {
	r.mu.Lock()
	r.current = r.current.With(rep.Percentage)
	next := r.current
	if err := r.Repo.Save(ctx, next); err != nil {
		r.logf("stats: save: %v", err)
	}
	r.mu.Unlock()

	if r.Journal != nil {
		e, err := syncx.NewSessionSubmitted(syncx.SessionSubmitted{
			SessionID:  s.ID,
			Profile:    s.Selection.Profile(),
			Percentage: rep.Percentage,
			Correct:    rep.Correct,
			Wrong:      rep.Wrong,
			Unanswered: rep.Unanswered,
			Total:      rep.Total,
			Expired:    s.Expired,
		})
		if err == nil {
			err = r.Journal.Append(ctx, e)
		}
		if err != nil {
			r.logf("journal: append %s: %v", s.ID, err)
		}
	}
	return next
}

func (r *Recorder) logf(format string, args ...any) {
	if r.Logf != nil {
		r.Logf(format, args...)
	}
}
