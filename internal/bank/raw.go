// Package bank loads a subject's raw question bank and normalizes its
// loosely typed JSON into a tagged variant of independent questions and
// passage groups.
package bank

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrBankUnavailable = errors.New("question bank unavailable")
	ErrMalformedBank   = errors.New("malformed question bank")
	ErrEmptyBank       = errors.New("question bank is empty")
)

// LoadError reports a failed subject. It matches both ErrBankUnavailable and
// the underlying cause under errors.Is.
type LoadError struct {
	Subject string
	Err     error
}

func (e *LoadError) Error() string   { return fmt.Sprintf("load %s bank: %v", e.Subject, e.Err) }
func (e *LoadError) Unwrap() []error { return []error{ErrBankUnavailable, e.Err} }

// RawQuestion is a question as authored: answer is still a letter.
type RawQuestion struct {
	ID       string   `json:"id,omitempty"`
	Text     string   `json:"question"`
	Options  []string `json:"options"`
	Answer   string   `json:"answer"`
	Category string   `json:"category,omitempty"`
}

func (q *RawQuestion) UnmarshalJSON(b []byte) error {
	type plain RawQuestion
	var aux struct {
		plain
		Answer answerField `json:"answer"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*q = RawQuestion(aux.plain)
	q.Answer = string(aux.Answer)
	return nil
}

// Item is either Independent or PassageGroup.
type Item interface{ isItem() }

type Independent struct {
	Question RawQuestion
}

type PassageGroup struct {
	ID        string
	Text      string
	Questions []RawQuestion
}

func (Independent) isItem()  {}
func (PassageGroup) isItem() {}

type RawBank struct {
	Subject string
	Items   []Item
}

// Len counts questions, including every passage sub-question.
func (b RawBank) Len() int {
	n := 0
	for _, it := range b.Items {
		switch v := it.(type) {
		case Independent:
			n++
		case PassageGroup:
			n += len(v.Questions)
		}
	}
	return n
}

type wireItem struct {
	Type      string        `json:"type,omitempty"`
	ID        string        `json:"id,omitempty"`
	Passage   string        `json:"passage,omitempty"`
	Questions []RawQuestion `json:"questions,omitempty"`
	Text      string        `json:"question,omitempty"`
	Options   []string      `json:"options,omitempty"`
	Answer    answerField   `json:"answer,omitempty"`
	Category  string        `json:"category,omitempty"`
}

// answerField tolerates numeric answers; they are kept in text form and
// later fail letter normalization like any other unrecognized value.
type answerField string

func (a *answerField) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = answerField(s)
		return nil
	}
	if bytes.Equal(b, []byte("null")) {
		*a = ""
		return nil
	}
	if _, err := strconv.ParseFloat(string(b), 64); err != nil {
		return fmt.Errorf("answer must be a string or number, got %s", b)
	}
	*a = answerField(b)
	return nil
}

// Parse decodes a bank document of the form {"questions": [...]}.
func Parse(subject string, data []byte) (RawBank, error) {
	var doc struct {
		Questions json.RawMessage `json:"questions"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return RawBank{}, fmt.Errorf("%w: %v", ErrMalformedBank, err)
	}
	raw := bytes.TrimSpace(doc.Questions)
	if len(raw) == 0 || raw[0] != '[' {
		return RawBank{}, fmt.Errorf("%w: missing questions array", ErrMalformedBank)
	}
	var items []wireItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return RawBank{}, fmt.Errorf("%w: %v", ErrMalformedBank, err)
	}
	if len(items) == 0 {
		return RawBank{}, ErrEmptyBank
	}

	out := RawBank{Subject: subject, Items: make([]Item, 0, len(items))}
	for _, it := range items {
		switch strings.ToLower(strings.TrimSpace(it.Type)) {
		case "passage":
			// a group needs both its passage and its questions
			if it.Questions == nil || strings.TrimSpace(it.Passage) == "" {
				continue
			}
			out.Items = append(out.Items, PassageGroup{
				ID:        strings.TrimSpace(it.ID),
				Text:      it.Passage,
				Questions: it.Questions,
			})
		case "independent", "":
			out.Items = append(out.Items, Independent{Question: RawQuestion{
				ID:       it.ID,
				Text:     it.Text,
				Options:  it.Options,
				Answer:   string(it.Answer),
				Category: it.Category,
			}})
		default:
			// unknown item kinds are not part of the bank
		}
	}
	if out.Len() == 0 {
		return RawBank{}, ErrEmptyBank
	}
	return out, nil
}

// Marshal renders a bank back into its wire document.
func Marshal(b RawBank) ([]byte, error) {
	items := make([]wireItem, 0, len(b.Items))
	for _, it := range b.Items {
		switch v := it.(type) {
		case Independent:
			items = append(items, wireItem{
				Type:     "independent",
				ID:       v.Question.ID,
				Text:     v.Question.Text,
				Options:  v.Question.Options,
				Answer:   answerField(v.Question.Answer),
				Category: v.Question.Category,
			})
		case PassageGroup:
			items = append(items, wireItem{
				Type:      "passage",
				ID:        v.ID,
				Passage:   v.Text,
				Questions: v.Questions,
			})
		}
	}
	return json.MarshalIndent(map[string]any{"questions": items}, "", "  ")
}
