package assembly

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/mind-engage/mindengage-quiz/internal/bank"
	"github.com/mind-engage/mindengage-quiz/internal/catalog"
	"github.com/mind-engage/mindengage-quiz/internal/selection"
)

type mapSource map[string]bank.RawBank

func (m mapSource) Load(_ context.Context, subject string) (bank.RawBank, error) {
	b, ok := m[subject]
	if !ok {
		return bank.RawBank{}, &bank.LoadError{Subject: subject, Err: errors.New("HTTP 404: Not Found")}
	}
	return b, nil
}

func independents(prefix string, n int, answer string) []bank.Item {
	out := make([]bank.Item, n)
	for i := range out {
		out[i] = bank.Independent{Question: bank.RawQuestion{
			Text:    fmt.Sprintf("%s %d", prefix, i+1),
			Options: []string{"a", "b", "c", "d"},
			Answer:  answer,
		}}
	}
	return out
}

func group(id string, n int) bank.Item {
	g := bank.PassageGroup{ID: id, Text: "passage " + id}
	for i := 0; i < n; i++ {
		g.Questions = append(g.Questions, bank.RawQuestion{
			Text: fmt.Sprintf("%s q%d", id, i+1), Options: []string{"a", "b", "c", "d"}, Answer: "C",
		})
	}
	return g
}

func multi(mode selection.Mode, others ...string) selection.Selection {
	return selection.Selection{Mode: mode, Subjects: append([]string{"english"}, others...)}
}

func newAssembler(src bank.Source) *Assembler {
	return New(src, catalog.Default(), rand.New(rand.NewSource(7)))
}

func TestAssembleExamTakesOneGroupThenFill(t *testing.T) {
	english := bank.RawBank{Subject: "english", Items: append(independents("E", 12, "A"), group("p1", 10))}
	src := mapSource{
		"english":     english,
		"mathematics": {Items: independents("M", 50, "B")},
		"physics":     {Items: independents("P", 50, "B")},
		"chemistry":   {Items: independents("C", 50, "B")},
	}
	res, err := newAssembler(src).Assemble(context.Background(), multi(selection.ModeExam, "mathematics", "physics", "chemistry"))
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if res.TimeBudgetSec != 7200 {
		t.Fatalf("budget = %d", res.TimeBudgetSec)
	}
	var eng, passageQs, starts int
	for i, q := range res.Questions {
		if q.ID != i+1 {
			t.Fatalf("question %d has id %d", i, q.ID)
		}
		if q.Subject == "english" {
			eng++
			if q.PassageID != "" {
				passageQs++
				if q.CorrectOptionIndex != 2 {
					t.Fatalf("passage answer index = %d", q.CorrectOptionIndex)
				}
			}
			if q.IsPassageGroupStart {
				starts++
			}
		}
	}
	if eng != 22 || passageQs != 10 || starts != 1 {
		t.Fatalf("english=%d passage=%d starts=%d", eng, passageQs, starts)
	}
	if !res.Questions[0].IsPassageGroupStart || res.Questions[0].PassageText != "passage p1" {
		t.Fatalf("group should lead the english block: %+v", res.Questions[0])
	}
	if len(res.Questions) != 22+120 {
		t.Fatalf("total = %d", len(res.Questions))
	}
	if res.Warning() != "" {
		t.Fatalf("unexpected warning %q", res.Warning())
	}
}

func TestAssembleTestModeExcludesPassages(t *testing.T) {
	src := mapSource{
		"english":     {Items: append(independents("E", 4, "A"), group("p1", 10))},
		"mathematics": {Items: independents("M", 30, "B")},
		"physics":     {Items: independents("P", 30, "B")},
		"chemistry":   {Items: independents("C", 30, "B")},
	}
	res, err := newAssembler(src).Assemble(context.Background(), multi(selection.ModeTest, "mathematics", "physics", "chemistry"))
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	for _, q := range res.Questions {
		if q.PassageID != "" {
			t.Fatalf("passage question in test mode: %+v", q)
		}
	}
	if len(res.Questions) != 4+30 {
		t.Fatalf("total = %d", len(res.Questions))
	}
}

func TestAssembleIgnoresIncompleteGroups(t *testing.T) {
	src := mapSource{"english": {Items: append(independents("E", 5, "A"), group("short", 3))}}
	sel := selection.Selection{Mode: selection.ModeExam, SingleSubject: true, Subjects: []string{"english"}}
	res, err := newAssembler(src).Assemble(context.Background(), sel)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if len(res.Questions) != 5 {
		t.Fatalf("total = %d", len(res.Questions))
	}
}

func TestAssemblePartialFailure(t *testing.T) {
	src := mapSource{
		"english":     {Items: independents("E", 10, "A")},
		"mathematics": {Items: independents("M", 10, "x")},
		"chemistry":   {Items: independents("C", 10, "B")},
	}
	res, err := newAssembler(src).Assemble(context.Background(), multi(selection.ModeTest, "mathematics", "physics", "chemistry"))
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if len(res.Failed) != 1 || res.Failed[0].Subject != "physics" || !errors.Is(res.Failed[0].Err, bank.ErrBankUnavailable) {
		t.Fatalf("failed = %+v", res.Failed)
	}
	if !strings.Contains(res.Warning(), "physics") {
		t.Fatalf("warning = %q", res.Warning())
	}
	for _, q := range res.Questions {
		if q.Subject == "mathematics" && q.CorrectOptionIndex != 0 {
			t.Fatalf("unknown letter should map to 0, got %d", q.CorrectOptionIndex)
		}
		if q.Subject == "physics" {
			t.Fatal("physics should be skipped")
		}
	}
	if len(res.Questions) != 30 {
		t.Fatalf("total = %d", len(res.Questions))
	}
}

func TestAssembleAllFailed(t *testing.T) {
	_, err := newAssembler(mapSource{}).Assemble(context.Background(), multi(selection.ModeTest, "mathematics", "physics", "chemistry"))
	if !errors.Is(err, ErrNoQuestionsAssembled) {
		t.Fatalf("err = %v", err)
	}
}

func TestAssembleDropsMalformedOptions(t *testing.T) {
	items := independents("E", 3, "A")
	items = append(items, bank.Independent{Question: bank.RawQuestion{Text: "bad", Options: []string{"a", "b"}, Answer: "A"}})
	src := mapSource{"english": {Items: items}}
	sel := selection.Selection{Mode: selection.ModeTest, SingleSubject: true, Subjects: []string{"english"}}
	res, err := newAssembler(src).Assemble(context.Background(), sel)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if len(res.Questions) != 3 {
		t.Fatalf("total = %d", len(res.Questions))
	}
}

func TestAssembleRejectsInvalidSelection(t *testing.T) {
	_, err := newAssembler(mapSource{}).Assemble(context.Background(), multi(selection.ModeTest, "mathematics"))
	if !errors.Is(err, selection.ErrInvalidSelection) {
		t.Fatalf("err = %v", err)
	}
}

func TestAnswerIndex(t *testing.T) {
	cases := map[string]int{"A": 0, "b": 1, " C ": 2, "D": 3, "E": 0, "": 0, "2": 0}
	for in, want := range cases {
		if got := AnswerIndex(in); got != want {
			t.Errorf("AnswerIndex(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestRegistryProfiles(t *testing.T) {
	for _, p := range []string{"multi.test", "multi.exam", "single.test", "single.exam"} {
		if _, ok := Lookup(p); !ok {
			t.Errorf("missing policy %s", p)
		}
	}
	if err := Register(Policy{Profile: "x"}); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestAssemblePassageIDOnlyWithText(t *testing.T) {
	doc := `{"questions": [
  {"question": "E1", "options": ["a","b","c","d"], "answer": "A"},
  {"type": "passage", "questions": [
    {"question": "P1", "options": ["a","b","c","d"], "answer": "A"}
  ]},
  {"type": "passage", "id": "rain", "passage": "It rained.", "questions": [
    {"question": "R1", "options": ["a","b","c","d"], "answer": "B"}
  ]}
]}`
	b, err := bank.Parse("english", []byte(doc))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	sel := selection.Selection{Mode: selection.ModeTest, SingleSubject: true, Subjects: []string{"english"}}
	cat := catalog.Default()
	cat.Subjects[0].PassageBearing = false
	res, err := New(mapSource{"english": b}, cat, rand.New(rand.NewSource(3))).Assemble(context.Background(), sel)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if len(res.Questions) != 2 {
		t.Fatalf("total = %d", len(res.Questions))
	}
	for _, q := range res.Questions {
		if (q.PassageID == "") != (q.PassageText == "") {
			t.Fatalf("passage id/text mismatch: %+v", q)
		}
	}
}
