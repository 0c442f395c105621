// Package scoring turns a finished session into a report and records it.
package scoring

import (
	"math"

	"github.com/mind-engage/mindengage-quiz/internal/exam"
)

type SubjectScore struct {
	Subject string `json:"subject"`
	Name    string `json:"name"`
	Correct int    `json:"correct"`
	Total   int    `json:"total"`
}

type Report struct {
	Percentage int            `json:"percentage"`
	Correct    int            `json:"correct"`
	Wrong      int            `json:"wrong"`
	Unanswered int            `json:"unanswered"`
	Total      int            `json:"total"`
	PerSubject []SubjectScore `json:"per_subject"`
}

// Percentage is round(100*correct/total), 0 when total is 0.
func Percentage(correct, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(correct) / float64(total)))
}

// Score is deterministic for a fixed questions/answers pair. answers may be
// shorter than questions; missing slots count as unanswered.
func Score(questions []exam.Question, answers []*int) Report {
	r := Report{Total: len(questions)}
	index := map[string]int{}
	for i, q := range questions {
		si, ok := index[q.Subject]
		if !ok {
			si = len(r.PerSubject)
			index[q.Subject] = si
			r.PerSubject = append(r.PerSubject, SubjectScore{Subject: q.Subject, Name: q.SubjectDisplay})
		}
		r.PerSubject[si].Total++
		switch StatusOf(q, answerAt(answers, i)) {
		case Correct:
			r.Correct++
			r.PerSubject[si].Correct++
		case Wrong:
			r.Wrong++
		default:
			r.Unanswered++
		}
	}
	r.Percentage = Percentage(r.Correct, r.Total)
	return r
}

func answerAt(answers []*int, i int) *int {
	if i < len(answers) {
		return answers[i]
	}
	return nil
}

type Status string

const (
	Correct    Status = "correct"
	Wrong      Status = "wrong"
	Unanswered Status = "unanswered"
)

func StatusOf(q exam.Question, chosen *int) Status {
	switch {
	case chosen == nil:
		return Unanswered
	case *chosen == q.CorrectOptionIndex:
		return Correct
	default:
		return Wrong
	}
}

// ReviewItem is one row of the post-submission review.
type ReviewItem struct {
	Question exam.Question `json:"question"`
	Chosen   *int          `json:"chosen"`
	Status   Status        `json:"status"`
}

func Review(questions []exam.Question, answers []*int) []ReviewItem {
	out := make([]ReviewItem, len(questions))
	for i, q := range questions {
		a := answerAt(answers, i)
		out[i] = ReviewItem{Question: q, Chosen: a, Status: StatusOf(q, a)}
	}
	return out
}
