package dataset

import (
	"errors"
	"strconv"
	"strings"

	"feedback-insights-go/internal/config"
	"feedback-insights-go/internal/types"
)

// ErrNoCommentColumn is fatal for a run: nothing downstream can proceed
// without free text.
var ErrNoCommentColumn = errors.New("no comment column found")

// sampleRows caps how many rows the text-dominance fallback inspects.
const sampleRows = 50

// ResolvedColumns holds the detected column indices; -1 means absent.
// A missing NPS or rating column is not fatal, it only disables the
// real-survey NPS path.
type ResolvedColumns struct {
	Comment int
	NPS     int
	Rating  int
}

// Resolve locates the comment column by name priority, falling back to the
// first predominantly-text column, and locates the optional NPS and rating
// columns by name.
func Resolve(ds *Dataset, cfg *config.Config) (ResolvedColumns, error) {
	cols := ResolvedColumns{Comment: -1, NPS: -1, Rating: -1}
	if ds == nil || len(ds.Columns) == 0 || len(ds.Rows) == 0 {
		return cols, ErrNoCommentColumn
	}

	cols.Comment = matchByName(ds.Columns, cfg.CommentColumns)
	if cols.Comment == -1 {
		cols.Comment = firstTextColumn(ds)
	}
	if cols.Comment == -1 {
		return cols, ErrNoCommentColumn
	}

	if idx := matchByName(ds.Columns, cfg.NPSColumns); idx != -1 && idx != cols.Comment && isNumericColumn(ds, idx, 0, 10) {
		cols.NPS = idx
	}
	if idx := matchByName(ds.Columns, cfg.RatingColumns); idx != -1 && idx != cols.Comment && idx != cols.NPS && isNumericColumn(ds, idx, 0, 100) {
		cols.Rating = idx
	}
	return cols, nil
}

// matchByName walks candidates in priority order: exact matches win over
// substring matches, both case-insensitive.
func matchByName(headers []string, candidates []string) int {
	lowered := make([]string, len(headers))
	for i, h := range headers {
		lowered[i] = strings.ToLower(strings.TrimSpace(h))
	}
	for _, cand := range candidates {
		c := strings.ToLower(strings.TrimSpace(cand))
		for i, h := range lowered {
			if h == c {
				return i
			}
		}
		for i, h := range lowered {
			if h != "" && strings.Contains(h, c) {
				return i
			}
		}
	}
	return -1
}

// firstTextColumn returns the first column whose sampled values are
// predominantly non-numeric text.
func firstTextColumn(ds *Dataset) int {
	limit := len(ds.Rows)
	if limit > sampleRows {
		limit = sampleRows
	}
	for col := range ds.Columns {
		nonEmpty, textual, totalLen := 0, 0, 0
		for row := 0; row < limit; row++ {
			v := strings.TrimSpace(ds.Cell(row, col))
			if v == "" {
				continue
			}
			nonEmpty++
			totalLen += len(v)
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				textual++
			}
		}
		if nonEmpty == 0 {
			continue
		}
		// Majority text and long enough on average to be prose, not a code.
		if float64(textual)/float64(nonEmpty) >= 0.7 && totalLen/nonEmpty >= 12 {
			return col
		}
	}
	return -1
}

func isNumericColumn(ds *Dataset, col int, min, max float64) bool {
	limit := len(ds.Rows)
	if limit > sampleRows {
		limit = sampleRows
	}
	nonEmpty, numeric := 0, 0
	for row := 0; row < limit; row++ {
		v := strings.TrimSpace(ds.Cell(row, col))
		if v == "" {
			continue
		}
		nonEmpty++
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= min && f <= max {
			numeric++
		}
	}
	return nonEmpty > 0 && float64(numeric)/float64(nonEmpty) >= 0.7
}

// ExtractComments builds the immutable comment list for a run. Rows with a
// blank comment cell are skipped; at most max rows are taken when max > 0.
func ExtractComments(ds *Dataset, cols ResolvedColumns, max int) []types.Comment {
	var out []types.Comment
	for row := range ds.Rows {
		if max > 0 && len(out) >= max {
			break
		}
		text := strings.TrimSpace(ds.Cell(row, cols.Comment))
		if text == "" {
			continue
		}
		c := types.Comment{Row: row + 1, Text: text}
		if cols.NPS != -1 {
			if v, err := strconv.Atoi(strings.TrimSpace(ds.Cell(row, cols.NPS))); err == nil && v >= 0 && v <= 10 {
				score := v
				c.NPSScore = &score
			}
		}
		if cols.Rating != -1 {
			if f, err := strconv.ParseFloat(strings.TrimSpace(ds.Cell(row, cols.Rating)), 64); err == nil {
				rating := f
				c.Rating = &rating
			}
		}
		out = append(out, c)
	}
	return out
}
