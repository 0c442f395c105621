// Package passage flattens passage groups into a single question sequence
// while keeping each question's group membership.
package passage

import (
	"strconv"

	"github.com/mind-engage/mindengage-quiz/internal/bank"
)

// Record is a flattened question. Its answer is still the authored letter.
type Record struct {
	Question    bank.RawQuestion
	PassageID   string
	PassageText string
	GroupStart  bool
}

func (r Record) InPassage() bool { return r.PassageID != "" }

// Flatten expands every passage group in order. Sub-questions inherit the
// group's text and id; only the first is marked GroupStart. Groups without
// an authored id are named passage-<n>, n counting passage groups from 1.
func Flatten(b bank.RawBank) []Record {
	out := make([]Record, 0, b.Len())
	ordinal := 0
	for _, it := range b.Items {
		switch v := it.(type) {
		case bank.Independent:
			out = append(out, Record{Question: v.Question})
		case bank.PassageGroup:
			ordinal++
			id := v.ID
			if id == "" {
				id = "passage-" + strconv.Itoa(ordinal)
			}
			for i, q := range v.Questions {
				out = append(out, Record{
					Question:    q,
					PassageID:   id,
					PassageText: v.Text,
					GroupStart:  i == 0,
				})
			}
		}
	}
	return out
}

// Group is one passage's members in their original order.
type Group struct {
	ID      string
	Members []Record
}

// Groups collects passage records by id, in order of first appearance.
func Groups(records []Record) []Group {
	var out []Group
	index := map[string]int{}
	for _, r := range records {
		if !r.InPassage() {
			continue
		}
		i, ok := index[r.PassageID]
		if !ok {
			i = len(out)
			index[r.PassageID] = i
			out = append(out, Group{ID: r.PassageID})
		}
		out[i].Members = append(out[i].Members, r)
	}
	return out
}

// Independent returns the records that belong to no passage.
func Independent(records []Record) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if !r.InPassage() {
			out = append(out, r)
		}
	}
	return out
}
