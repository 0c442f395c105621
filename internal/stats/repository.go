package stats

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"math"
)

// RecordName is the key the aggregate record is stored under.
const RecordName = "jambQuizStats"

type AggregateStats struct {
	TotalSessions int   `json:"totalSessions"`
	ScoreHistory  []int `json:"scoreHistory"`
	BestScore     int   `json:"bestScore"`
}

// Average is the rounded mean of ScoreHistory, 0 with no history.
func (s AggregateStats) Average() int {
	if len(s.ScoreHistory) == 0 {
		return 0
	}
	sum := 0
	for _, v := range s.ScoreHistory {
		sum += v
	}
	return int(math.Round(float64(sum) / float64(len(s.ScoreHistory))))
}

// With returns a copy that includes one more finished session.
func (s AggregateStats) With(pct int) AggregateStats {
	out := AggregateStats{
		TotalSessions: s.TotalSessions + 1,
		ScoreHistory:  append(append([]int(nil), s.ScoreHistory...), pct),
		BestScore:     s.BestScore,
	}
	if pct > out.BestScore {
		out.BestScore = pct
	}
	return out
}

type Repository struct {
	KV   KV
	Logf func(format string, args ...any)
}

func NewRepository(kv KV) *Repository { return &Repository{KV: kv, Logf: log.Printf} }

// Load never fails: a missing, unreadable or corrupt record yields zeroed
// stats.
func (r *Repository) Load(ctx context.Context) AggregateStats {
	b, err := r.KV.Get(ctx, RecordName)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			r.logf("stats: load: %v", err)
		}
		return AggregateStats{}
	}
	var s AggregateStats
	if err := json.Unmarshal(b, &s); err != nil {
		r.logf("stats: corrupt record: %v", err)
		return AggregateStats{}
	}
	if s.TotalSessions < 0 {
		return AggregateStats{}
	}
	return s
}

func (r *Repository) Save(ctx context.Context, s AggregateStats) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return r.KV.Set(ctx, RecordName, b)
}

func (r *Repository) logf(format string, args ...any) {
	if r.Logf != nil {
		r.Logf(format, args...)
	}
}
