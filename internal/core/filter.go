// Package core provides filtering, sorting, and lookup logic for sound rows.
package core

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/padui/internal/model"
)

// FilterOp represents a comparison operator.
type FilterOp string

const (
	FilterOpEqual     FilterOp = "="  // Exact match
	FilterOpNotEqual  FilterOp = "!=" // Not equal
	FilterOpContains  FilterOp = "~"  // Contains substring
	FilterOpRegex     FilterOp = "~=" // Regex match
	FilterOpGreater   FilterOp = ">"  // Greater than
	FilterOpLess      FilterOp = "<"  // Less than
	FilterOpGreaterEq FilterOp = ">=" // Greater than or equal
	FilterOpLessEq    FilterOp = "<=" // Less than or equal
)

// FilterCondition represents a single filter condition.
type FilterCondition struct {
	Field    string   // Field name: name, path, hotkey, duration, size, added, favorite, playing
	Operator FilterOp // Comparison operator
	Value    string   // Value to compare against

	// Cached parsed values for efficiency
	regex   *regexp.Regexp // Compiled regex for ~= operator
	intVal  int64          // Parsed duration (ns) or size (bytes)
	timeVal time.Time      // Parsed cutoff for added comparisons
	boolVal bool           // Parsed bool value
}

// FilterExpr represents a compound filter expression.
// Multiple conditions are ANDed together.
type FilterExpr struct {
	Conditions []FilterCondition
}

// FilterOptions specifies simple criteria for filtering rows.
type FilterOptions struct {
	FavoritesOnly bool
	HotkeyedOnly  bool
	PlayingOnly   bool
	Search        string // Case-insensitive substring of the name
	Limit         int    // Maximum results (0=unlimited)
}

// Filter filters rows based on the provided options.
func Filter(rows []model.Row, opts FilterOptions) []model.Row {
	result := make([]model.Row, 0, len(rows))
	search := strings.ToLower(opts.Search)

	for _, r := range rows {
		if opts.FavoritesOnly && !r.IsFavorite {
			continue
		}
		if opts.HotkeyedOnly && r.HotkeyLabel == "" {
			continue
		}
		if opts.PlayingOnly && !r.Playing {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(r.Name), search) {
			continue
		}
		result = append(result, r)
	}

	// Apply limit
	if opts.Limit > 0 && len(result) > opts.Limit {
		result = result[:opts.Limit]
	}

	return result
}

// ParseDuration parses a duration string with extended formats.
// Supports: 90s, 48h, 7d, 1w, plain seconds ("5"), 0 (no limit)
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)

	// Special case: 0 means no filter
	if s == "0" || s == "" {
		return 0, nil
	}

	// Handle day suffix (7d -> 168h)
	if daysStr, found := strings.CutSuffix(s, "d"); found {
		days, err := strconv.Atoi(daysStr)
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %s", s)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}

	// Handle week suffix (1w -> 168h)
	if weeksStr, found := strings.CutSuffix(s, "w"); found {
		weeks, err := strconv.Atoi(weeksStr)
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %s", s)
		}
		return time.Duration(weeks) * 7 * 24 * time.Hour, nil
	}

	// Bare numbers are seconds
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}

	// Standard Go duration parsing
	return time.ParseDuration(s)
}

// ParseFilter parses a filter expression string into a FilterExpr.
// Format: "field=value,field2~value2,field3>value3"
// Multiple conditions are comma-separated and ANDed together.
//
// Supported fields: name, path, hotkey, duration, size, added, favorite, playing
// Supported operators: = (equal), != (not equal), ~ (contains), ~= (regex), >, <, >=, <=
//
// Examples:
//   - "name~horn" - name contains "horn"
//   - "duration<3s" - shorter than three seconds
//   - "size>=1MB" - at least a megabyte
//   - "favorite=true,hotkey!=" - favorites without a hotkey
//   - "name~=(?i)^air" - name matches regex
//   - "added<1d" - added during the last day
func ParseFilter(expr string) (*FilterExpr, error) {
	if expr == "" {
		return &FilterExpr{}, nil
	}

	filter := &FilterExpr{
		Conditions: make([]FilterCondition, 0),
	}

	// Split by comma
	for part := range strings.SplitSeq(expr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		cond, err := parseCondition(part)
		if err != nil {
			return nil, err
		}
		filter.Conditions = append(filter.Conditions, cond)
	}

	return filter, nil
}

// parseCondition parses a single condition like "name=bruh" or "duration<2s"
func parseCondition(s string) (FilterCondition, error) {
	// Try operators in order of specificity (longest first)
	operators := []FilterOp{
		FilterOpNotEqual,  // != (must be before =)
		FilterOpGreaterEq, // >= (must be before >)
		FilterOpLessEq,    // <= (must be before <)
		FilterOpRegex,     // ~= (must be before ~)
		FilterOpEqual,
		FilterOpContains,
		FilterOpGreater,
		FilterOpLess,
	}

	for _, op := range operators {
		idx := strings.Index(s, string(op))
		if idx > 0 {
			field := strings.TrimSpace(s[:idx])
			value := strings.TrimSpace(s[idx+len(op):])

			cond := FilterCondition{
				Field:    strings.ToLower(field),
				Operator: op,
				Value:    value,
			}

			// Pre-parse and validate based on field type
			if err := cond.init(); err != nil {
				return FilterCondition{}, err
			}

			return cond, nil
		}
	}

	return FilterCondition{}, fmt.Errorf("invalid filter condition: %s (missing operator)", s)
}

// init pre-parses and validates the condition value.
func (c *FilterCondition) init() error {
	switch c.Field {
	case "name", "title":
		c.Field = "name" // Normalize
	case "path", "file":
		c.Field = "path"
	case "hotkey", "key":
		c.Field = "hotkey"
	case "duration", "length", "len":
		c.Field = "duration"
		d, err := ParseDuration(c.Value)
		if err != nil {
			return fmt.Errorf("invalid duration value: %w", err)
		}
		c.intVal = int64(d)
	case "size", "bytes":
		c.Field = "size"
		n, err := humanize.ParseBytes(c.Value)
		if err != nil {
			return fmt.Errorf("invalid size value: %w", err)
		}
		c.intVal = int64(n)
	case "added", "created":
		c.Field = "added"
		// Relative to now: added<1d means within the last day
		dur, err := ParseDuration(c.Value)
		if err != nil {
			return fmt.Errorf("invalid added value: %w", err)
		}
		c.timeVal = time.Now().Add(-dur)
	case "favorite", "fav":
		c.Field = "favorite"
		c.boolVal = parseBool(c.Value)
	case "playing":
		c.Field = "playing"
		c.boolVal = parseBool(c.Value)
	default:
		return fmt.Errorf("unknown filter field: %s", c.Field)
	}

	// Compile regex if needed
	if c.Operator == FilterOpRegex {
		re, err := regexp.Compile(c.Value)
		if err != nil {
			return fmt.Errorf("invalid regex: %w", err)
		}
		c.regex = re
	}

	return nil
}

// parseBool parses various boolean representations.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "true", "yes", "1", "y", "t":
		return true
	default:
		return false
	}
}

// Match tests if a row matches the filter expression.
// All conditions must match (AND logic).
func (f *FilterExpr) Match(r model.Row) bool {
	for _, cond := range f.Conditions {
		if !cond.Match(r) {
			return false
		}
	}
	return true
}

// Match tests if a row matches this single condition.
func (c *FilterCondition) Match(r model.Row) bool {
	switch c.Field {
	case "name":
		return c.matchString(r.Name)
	case "path":
		return c.matchString(r.Path)
	case "hotkey":
		return c.matchString(r.HotkeyLabel)
	case "duration":
		// Unknown durations never match a numeric comparison
		if !r.HasDuration {
			return false
		}
		return c.matchInt(int64(r.Duration))
	case "size":
		return c.matchInt(r.Size)
	case "added":
		return c.matchAdded(r.CreatedAt)
	case "favorite":
		return c.matchBool(r.IsFavorite)
	case "playing":
		return c.matchBool(r.Playing)
	default:
		return false
	}
}

// matchString matches a string field.
func (c *FilterCondition) matchString(fieldValue string) bool {
	switch c.Operator {
	case FilterOpEqual:
		return strings.EqualFold(fieldValue, c.Value)
	case FilterOpNotEqual:
		return !strings.EqualFold(fieldValue, c.Value)
	case FilterOpContains:
		return strings.Contains(strings.ToLower(fieldValue), strings.ToLower(c.Value))
	case FilterOpRegex:
		return c.regex != nil && c.regex.MatchString(fieldValue)
	default:
		return false
	}
}

// matchInt matches a numeric field.
func (c *FilterCondition) matchInt(fieldValue int64) bool {
	switch c.Operator {
	case FilterOpEqual:
		return fieldValue == c.intVal
	case FilterOpNotEqual:
		return fieldValue != c.intVal
	case FilterOpGreater:
		return fieldValue > c.intVal
	case FilterOpLess:
		return fieldValue < c.intVal
	case FilterOpGreaterEq:
		return fieldValue >= c.intVal
	case FilterOpLessEq:
		return fieldValue <= c.intVal
	default:
		return false
	}
}

// matchBool matches a boolean field.
func (c *FilterCondition) matchBool(fieldValue bool) bool {
	switch c.Operator {
	case FilterOpEqual:
		return fieldValue == c.boolVal
	case FilterOpNotEqual:
		return fieldValue != c.boolVal
	default:
		return false
	}
}

// matchAdded compares an age: "<" means newer than the cutoff.
func (c *FilterCondition) matchAdded(fieldValue time.Time) bool {
	switch c.Operator {
	case FilterOpLess:
		return fieldValue.After(c.timeVal)
	case FilterOpGreater:
		return fieldValue.Before(c.timeVal)
	case FilterOpLessEq:
		return !fieldValue.Before(c.timeVal)
	case FilterOpGreaterEq:
		return !fieldValue.After(c.timeVal)
	default:
		return false
	}
}

// FilterWithExpr filters rows using a filter expression.
func FilterWithExpr(rows []model.Row, expr *FilterExpr) []model.Row {
	if expr == nil || len(expr.Conditions) == 0 {
		return rows
	}

	result := make([]model.Row, 0, len(rows))
	for _, r := range rows {
		if expr.Match(r) {
			result = append(result, r)
		}
	}
	return result
}
