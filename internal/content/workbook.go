package content

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/pai-learn/internal/curriculum"
)

// ReadQuestionWorkbook reads a question bank from the first sheet of an
// .xlsx workbook. The header row names the columns: id, question,
// choice_1..choice_n, correct (1-based), explanation, topic, type. Column
// order is free and unknown columns are ignored.
func ReadQuestionWorkbook(r io.Reader) ([]curriculum.RawQuestion, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	cols := parseHeader(rows[0])
	if _, ok := cols.named["question"]; !ok {
		return nil, fmt.Errorf("workbook header has no question column")
	}

	var out []curriculum.RawQuestion
	for i, row := range rows[1:] {
		q, ok := cols.question(row, i+2)
		if ok {
			out = append(out, q)
		}
	}
	return out, nil
}

type workbookColumns struct {
	named   map[string]int
	choices []int // column indexes of choice_1..choice_n, in choice order
}

func parseHeader(header []string) workbookColumns {
	cols := workbookColumns{named: make(map[string]int)}
	choiceCols := map[int]int{}
	maxChoice := 0
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		if n, ok := strings.CutPrefix(name, "choice_"); ok {
			if k, err := strconv.Atoi(n); err == nil && k > 0 {
				choiceCols[k] = i
				maxChoice = max(maxChoice, k)
			}
			continue
		}
		if _, dup := cols.named[name]; !dup {
			cols.named[name] = i
		}
	}
	for k := 1; k <= maxChoice; k++ {
		if i, ok := choiceCols[k]; ok {
			cols.choices = append(cols.choices, i)
		}
	}
	return cols
}

func (c workbookColumns) cell(row []string, name string) string {
	i, ok := c.named[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// question converts one data row. Fully blank rows are skipped.
func (c workbookColumns) question(row []string, line int) (curriculum.RawQuestion, bool) {
	q := curriculum.RawQuestion{
		ID:          c.cell(row, "id"),
		Question:    c.cell(row, "question"),
		Explanation: c.cell(row, "explanation"),
		Topic:       c.cell(row, "topic"),
		Type:        curriculum.QuestionType(c.cell(row, "type")),
	}

	var choices []string
	for _, i := range c.choices {
		v := ""
		if i < len(row) {
			v = row[i]
		}
		choices = append(choices, v)
	}
	// Trailing empty cells are unused choice slots, not blank choices.
	for len(choices) > 0 && strings.TrimSpace(choices[len(choices)-1]) == "" {
		choices = choices[:len(choices)-1]
	}
	q.Choices = choices

	if q.ID == "" && q.Question == "" && len(choices) == 0 {
		return curriculum.RawQuestion{}, false
	}
	if q.ID == "" {
		q.ID = fmt.Sprintf("row-%d", line)
	}

	if v := c.cell(row, "correct"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			slog.Warn("workbook answer key is not a number", "row", line, "value", v)
		} else {
			idx := n - 1
			q.CorrectAnswerIndex = &idx
		}
	}
	return q, true
}
