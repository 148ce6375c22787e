package core

import (
	"strconv"
	"strings"

	"github.com/jmylchreest/padui/internal/model"
)

// LookupByPosition finds a row by its 1-based position.
// Returns nil if out of bounds.
func LookupByPosition(rows []model.Row, position int) *model.Row {
	idx := position - 1
	if idx < 0 || idx >= len(rows) {
		return nil
	}
	return &rows[idx]
}

// LookupByName finds the first row whose name matches case-insensitively.
// Returns nil if not found.
func LookupByName(rows []model.Row, name string) *model.Row {
	for i := range rows {
		if strings.EqualFold(rows[i].Name, name) {
			return &rows[i]
		}
	}
	return nil
}

// Lookup resolves user input to a row: a 1-based position, an exact name,
// or a unique name prefix.
func Lookup(rows []model.Row, input string) *model.Row {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil
	}

	if n, err := strconv.Atoi(input); err == nil {
		if r := LookupByPosition(rows, n); r != nil {
			return r
		}
	}

	if r := LookupByName(rows, input); r != nil {
		return r
	}

	var match *model.Row
	prefix := strings.ToLower(input)
	for i := range rows {
		if strings.HasPrefix(strings.ToLower(rows[i].Name), prefix) {
			if match != nil {
				return nil // Ambiguous
			}
			match = &rows[i]
		}
	}
	return match
}

// Search finds rows whose name contains term, case-insensitively.
func Search(rows []model.Row, term string) []model.Row {
	if term == "" {
		return rows
	}

	term = strings.ToLower(term)
	var result []model.Row

	for _, r := range rows {
		if strings.Contains(strings.ToLower(r.Name), term) {
			result = append(result, r)
		}
	}

	return result
}
