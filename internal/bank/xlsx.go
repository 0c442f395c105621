package bank

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// XLSX column layout, one question per row after a header row:
// type | group | passage | question | A | B | C | D | answer
const (
	colType = iota
	colGroup
	colPassage
	colQuestion
	colOptA
	colOptB
	colOptC
	colOptD
	colAnswer
	xlsxColumns
)

type ImportResult struct {
	Rows    int
	Skipped int
	Errors  []string
}

// ImportXLSX converts a spreadsheet into a bank. Consecutive passage rows
// sharing a group id form one passage group; the passage text is taken from
// the first row of the group that has one. Sheet "" means the first sheet.
func ImportXLSX(subject string, r io.Reader, sheet string) (RawBank, ImportResult, error) {
	var res ImportResult
	f, err := excelize.OpenReader(r)
	if err != nil {
		return RawBank{}, res, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		list := f.GetSheetList()
		if len(list) == 0 {
			return RawBank{}, res, fmt.Errorf("workbook has no sheets")
		}
		sheet = list[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return RawBank{}, res, fmt.Errorf("read rows: %w", err)
	}

	out := RawBank{Subject: subject}
	var group *PassageGroup
	flush := func() {
		if group == nil {
			return
		}
		if strings.TrimSpace(group.Text) == "" {
			res.Skipped += len(group.Questions)
			res.Errors = append(res.Errors, fmt.Sprintf("group %q: no passage text", group.ID))
		} else {
			out.Items = append(out.Items, *group)
		}
		group = nil
	}
	for i, row := range rows {
		if i == 0 {
			continue // header
		}
		res.Rows++
		cells := make([]string, xlsxColumns)
		for j := 0; j < xlsxColumns && j < len(row); j++ {
			cells[j] = strings.TrimSpace(row[j])
		}
		if cells[colQuestion] == "" {
			res.Skipped++
			res.Errors = append(res.Errors, fmt.Sprintf("row %d: empty question", i+1))
			continue
		}
		q := RawQuestion{
			Text:    cells[colQuestion],
			Options: []string{cells[colOptA], cells[colOptB], cells[colOptC], cells[colOptD]},
			Answer:  strings.ToUpper(cells[colAnswer]),
		}
		switch strings.ToLower(cells[colType]) {
		case "passage":
			if group == nil || group.ID != cells[colGroup] {
				flush()
				group = &PassageGroup{ID: cells[colGroup]}
			}
			if group.Text == "" {
				group.Text = cells[colPassage]
			}
			group.Questions = append(group.Questions, q)
		case "", "independent":
			flush()
			out.Items = append(out.Items, Independent{Question: q})
		default:
			res.Skipped++
			res.Errors = append(res.Errors, fmt.Sprintf("row %d: unknown type %q", i+1, cells[colType]))
		}
	}
	flush()
	if out.Len() == 0 {
		return RawBank{}, res, ErrEmptyBank
	}
	return out, res, nil
}
