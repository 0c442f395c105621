package assembly

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mind-engage/mindengage-quiz/internal/bank"
	"github.com/mind-engage/mindengage-quiz/internal/catalog"
	"github.com/mind-engage/mindengage-quiz/internal/exam"
	"github.com/mind-engage/mindengage-quiz/internal/passage"
	"github.com/mind-engage/mindengage-quiz/internal/selection"
)

var (
	ErrNoQuestionsAssembled = errors.New("no questions loaded from any subject")
	ErrNoUsableQuestions    = errors.New("bank has no usable questions")
	ErrUnknownProfile       = errors.New("no policy for profile")
)

// SubjectFailure names a subject that was skipped and why.
type SubjectFailure struct {
	Subject string `json:"subject"`
	Err     error  `json:"-"`
}

type Result struct {
	Questions     []exam.Question
	Failed        []SubjectFailure
	TimeBudgetSec int
}

// Warning is the non-blocking notice for skipped subjects, "" if none.
func (r Result) Warning() string {
	if len(r.Failed) == 0 {
		return ""
	}
	names := make([]string, len(r.Failed))
	for i, f := range r.Failed {
		names[i] = f.Subject
	}
	return fmt.Sprintf("Failed to load %s. Quiz will continue with available subjects.", strings.Join(names, ", "))
}

type Assembler struct {
	Source  bank.Source
	Catalog catalog.Catalog
	// Fetches in flight at once; 0 means one per subject.
	Concurrency int
	Logf        func(format string, args ...any)

	mu  sync.Mutex
	rnd *rand.Rand
}

func New(src bank.Source, cat catalog.Catalog, rnd *rand.Rand) *Assembler {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Assembler{Source: src, Catalog: cat, rnd: rnd}
}

// Assemble loads every selected subject, then draws each subject's quota in
// selection order. Failed subjects are reported in Result.Failed; only an
// empty overall result is an error.
func (a *Assembler) Assemble(ctx context.Context, sel selection.Selection) (Result, error) {
	if err := selection.Validate(sel, a.Catalog); err != nil {
		return Result{}, err
	}
	pol, ok := Lookup(sel.Profile())
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownProfile, sel.Profile())
	}

	banks := make([]bank.RawBank, len(sel.Subjects))
	errs := make([]error, len(sel.Subjects))
	g, gctx := errgroup.WithContext(ctx)
	if a.Concurrency > 0 {
		g.SetLimit(a.Concurrency)
	}
	for i, subject := range sel.Subjects {
		g.Go(func() error {
			banks[i], errs[i] = a.Source.Load(gctx, subject)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	res := Result{TimeBudgetSec: pol.TimeBudgetSec}
	for i, subject := range sel.Subjects {
		if errs[i] != nil {
			a.logf("assembly: skip %s: %v", subject, errs[i])
			res.Failed = append(res.Failed, SubjectFailure{Subject: subject, Err: errs[i]})
			continue
		}
		subj, _ := a.Catalog.Lookup(subject)
		records := a.usable(subject, passage.Flatten(banks[i]))
		picked := a.draw(records, a.quotaFor(pol, sel, subj), pol.PassageCap, subj.GroupSize)
		if len(picked) == 0 {
			a.logf("assembly: skip %s: %v", subject, ErrNoUsableQuestions)
			res.Failed = append(res.Failed, SubjectFailure{Subject: subject, Err: ErrNoUsableQuestions})
			continue
		}
		for _, r := range picked {
			res.Questions = append(res.Questions, toQuestion(subj, r))
		}
		a.logf("assembly: loaded %s: %d questions", subject, len(picked))
	}
	if len(res.Questions) == 0 {
		return res, ErrNoQuestionsAssembled
	}
	number(res.Questions)
	return res, nil
}

func (a *Assembler) quotaFor(pol Policy, sel selection.Selection, subj catalog.Subject) Quota {
	if sel.SingleSubject {
		if subj.PassageBearing {
			return pol.Lead
		}
		return pol.Other
	}
	if subj.ID == a.Catalog.Compulsory {
		return pol.Lead
	}
	return pol.Other
}

// usable drops records that cannot become a four-option Question.
func (a *Assembler) usable(subject string, records []passage.Record) []passage.Record {
	out := records[:0:0]
	for _, r := range records {
		if len(r.Question.Options) != exam.OptionCount {
			a.logf("assembly: %s: drop %q: %d options", subject, r.Question.Text, len(r.Question.Options))
			continue
		}
		out = append(out, r)
	}
	return out
}

func (a *Assembler) draw(records []passage.Record, q Quota, passageCap, groupSize int) []passage.Record {
	if !q.NonPassageOnly && !q.OneGroup {
		return take(a.shuffled(records), q.Count)
	}
	var out []passage.Record
	if q.OneGroup && groupSize > 0 {
		var complete []passage.Group
		for _, g := range passage.Groups(records) {
			if len(g.Members) == groupSize {
				complete = append(complete, g)
			}
		}
		if len(complete) > 0 {
			g := complete[a.rnd.Intn(len(complete))]
			out = append(out, take(g.Members, min(passageCap, q.Count))...)
		}
	}
	fill := take(a.shuffled(passage.Independent(records)), q.Count-len(out))
	return append(out, fill...)
}

// shuffled is a Fisher-Yates permutation of a copy of records.
func (a *Assembler) shuffled(records []passage.Record) []passage.Record {
	out := append([]passage.Record(nil), records...)
	a.rnd.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

func take(records []passage.Record, n int) []passage.Record {
	if n <= 0 {
		return nil
	}
	if n > len(records) {
		n = len(records)
	}
	return records[:n]
}

func (a *Assembler) logf(format string, args ...any) {
	if a.Logf != nil {
		a.Logf(format, args...)
	}
}

// AnswerIndex maps a letter A-D to 0-3. Anything else maps to 0; whether an
// unknown letter should instead mean "no correct answer" is still open.
func AnswerIndex(letter string) int {
	switch strings.ToUpper(strings.TrimSpace(letter)) {
	case "A":
		return 0
	case "B":
		return 1
	case "C":
		return 2
	case "D":
		return 3
	}
	return 0
}

func toQuestion(subj catalog.Subject, r passage.Record) exam.Question {
	q := exam.Question{
		Text:               r.Question.Text,
		CorrectOptionIndex: AnswerIndex(r.Question.Answer),
		Subject:            subj.ID,
		SubjectDisplay:     subj.Name,
	}
	copy(q.Options[:], r.Question.Options)
	if r.InPassage() {
		q.PassageID = subj.ID + "/" + r.PassageID
		q.PassageText = r.PassageText
	}
	return q
}

// number assigns 1-based ids and marks the first question of every passage
// in final order as the one that shows the passage.
func number(qs []exam.Question) {
	seen := map[string]bool{}
	for i := range qs {
		qs[i].ID = i + 1
		qs[i].IsPassageGroupStart = false
		if qs[i].PassageID != "" && !seen[qs[i].PassageID] {
			seen[qs[i].PassageID] = true
			qs[i].IsPassageGroupStart = true
		}
	}
}
