package exam

import (
	"errors"
	"time"

	"github.com/mind-engage/mindengage-quiz/internal/selection"
)

// OptionCount is the number of choices every question carries.
const OptionCount = 4

type Question struct {
	ID                  int                 `json:"id"` // 1-based position in the session
	Text                string              `json:"text"`
	Options             [OptionCount]string `json:"options"`
	CorrectOptionIndex  int                 `json:"correct_option_index"`
	Subject             string              `json:"subject"`
	SubjectDisplay      string              `json:"subject_display"`
	PassageID           string              `json:"passage_id,omitempty"`
	PassageText         string              `json:"passage_text,omitempty"`
	IsPassageGroupStart bool                `json:"is_passage_group_start"`
}

type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusSubmitted  Status = "submitted"
)

var ErrNoQuestions = errors.New("session needs at least one question")

// Session is one attempt. Questions never change after creation; Answers
// holds nil for an unanswered slot. Values are copied on every change, so a
// Session can be shared between state snapshots.
type Session struct {
	ID                string              `json:"id"`
	Selection         selection.Selection `json:"selection"`
	Questions         []Question          `json:"questions"`
	Answers           []*int              `json:"answers"`
	CurrentIndex      int                 `json:"current_index"`
	StartedAt         time.Time           `json:"started_at"`
	TimeBudgetSeconds int                 `json:"time_budget_sec"`
	Status            Status              `json:"status"`
	SubmittedAt       time.Time           `json:"submitted_at,omitempty"`
	Expired           bool                `json:"expired"`
}

func NewSession(id string, sel selection.Selection, questions []Question, budgetSec int, now time.Time) (Session, error) {
	if len(questions) == 0 {
		return Session{}, ErrNoQuestions
	}
	return Session{
		ID:                id,
		Selection:         sel,
		Questions:         questions,
		Answers:           make([]*int, len(questions)),
		StartedAt:         now,
		TimeBudgetSeconds: budgetSec,
		Status:            StatusInProgress,
	}, nil
}

// WithAnswer returns a copy with slot i set to choice.
func (s Session) WithAnswer(i, choice int) Session {
	answers := make([]*int, len(s.Answers))
	copy(answers, s.Answers)
	c := choice
	answers[i] = &c
	s.Answers = answers
	return s
}

func (s Session) Unanswered() int {
	n := 0
	for _, a := range s.Answers {
		if a == nil {
			n++
		}
	}
	return n
}

func (s Session) Deadline() time.Time {
	return s.StartedAt.Add(time.Duration(s.TimeBudgetSeconds) * time.Second)
}

// Remaining is recomputed from the wall clock and never negative.
func (s Session) Remaining(now time.Time) time.Duration {
	left := s.Deadline().Sub(now)
	if left < 0 {
		return 0
	}
	return left
}
