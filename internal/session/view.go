package session

import (
	"time"

	"github.com/mind-engage/mindengage-quiz/internal/catalog"
	"github.com/mind-engage/mindengage-quiz/internal/exam"
	"github.com/mind-engage/mindengage-quiz/internal/scoring"
	"github.com/mind-engage/mindengage-quiz/internal/selection"
	"github.com/mind-engage/mindengage-quiz/internal/stats"
)

// QuestionView is a question as shown while answering: no answer key.
type QuestionView struct {
	ID          int      `json:"id"`
	Number      int      `json:"number"`
	Text        string   `json:"text"`
	Options     []string `json:"options"`
	Subject     string   `json:"subject"`
	SubjectName string   `json:"subject_name"`
	PassageID   string   `json:"passage_id,omitempty"`
	PassageText string   `json:"passage_text,omitempty"`
	// GroupStart marks the first question of a passage group.
	GroupStart bool `json:"group_start,omitempty"`
	Selected   *int `json:"selected"`
}

type StatsView struct {
	TotalSessions int `json:"total_sessions"`
	AverageScore  int `json:"average_score"`
	BestScore     int `json:"best_score"`
}

type View struct {
	Screen        Screen               `json:"screen"`
	Mode          selection.Mode       `json:"mode,omitempty"`
	SingleSubject bool                 `json:"single_subject"`
	Selected      []string             `json:"selected,omitempty"`
	Ready         bool                 `json:"ready"`
	Loading       bool                 `json:"loading"`
	Warning       string               `json:"warning,omitempty"`
	Error         string               `json:"error,omitempty"`
	SessionID     string               `json:"session_id,omitempty"`
	Current       *QuestionView        `json:"current,omitempty"`
	Index         int                  `json:"index"`
	Total         int                  `json:"total"`
	Answered      []bool               `json:"answered,omitempty"`
	TimeLeft      string               `json:"time_left,omitempty"`
	Expired       bool                 `json:"expired,omitempty"`
	Report        *scoring.Report      `json:"report,omitempty"`
	Review        []scoring.ReviewItem `json:"review,omitempty"`
	Stats         StatsView            `json:"stats"`
}

func NewStatsView(s stats.AggregateStats) StatsView {
	return StatsView{TotalSessions: s.TotalSessions, AverageScore: s.Average(), BestScore: s.BestScore}
}

// Render projects s for display at now. Answer keys appear only on the
// review screen. Every passage member carries its passage text.
func Render(s State, now time.Time, agg stats.AggregateStats, loading bool) View {
	v := View{
		Screen:        s.Screen,
		Mode:          s.Selector.Mode(),
		SingleSubject: s.Selector.Single(),
		Ready:         s.Selector.Ready(),
		Loading:       loading,
		Warning:       s.Warning,
		Error:         s.Error,
		Stats:         NewStatsView(agg),
	}
	if s.Screen == ScreenSubjectSelect {
		v.Selected = s.Selector.Subjects()
	}
	if s.Session == nil {
		return v
	}
	sess := *s.Session
	v.SessionID = sess.ID
	v.Total = len(sess.Questions)
	v.Index = sess.CurrentIndex
	v.Expired = sess.Expired

	switch s.Screen {
	case ScreenInQuiz:
		q := sess.Questions[sess.CurrentIndex]
		v.Current = questionView(q, sess.CurrentIndex, sess.Answers[sess.CurrentIndex])
		v.Answered = make([]bool, len(sess.Answers))
		for i, a := range sess.Answers {
			v.Answered[i] = a != nil
		}
		v.TimeLeft = FormatClock(sess.Remaining(now))
	case ScreenResults:
		v.Report = s.Report
	case ScreenReview:
		v.Report = s.Report
		v.Review = scoring.Review(sess.Questions, sess.Answers)
	}
	return v
}

func questionView(q exam.Question, i int, selected *int) *QuestionView {
	return &QuestionView{
		ID:          q.ID,
		Number:      i + 1,
		Text:        q.Text,
		Options:     append([]string(nil), q.Options[:]...),
		Subject:     q.Subject,
		SubjectName: displayName(q),
		PassageID:   q.PassageID,
		PassageText: q.PassageText,
		GroupStart:  q.IsPassageGroupStart,
		Selected:    selected,
	}
}

func displayName(q exam.Question) string {
	if q.SubjectDisplay != "" {
		return q.SubjectDisplay
	}
	return catalog.DisplayName(q.Subject)
}
