package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSort_Empty(t *testing.T) {
	Sort(nil, DefaultSortOptions())
}

func TestSort(t *testing.T) {
	tests := []struct {
		name string
		opts SortOptions
		want []string
	}{
		{"position", DefaultSortOptions(), []string{"airhorn", "Bruh", "crickets", "drumroll"}},
		{"position desc", SortOptions{Field: SortByPosition, Order: SortDesc}, []string{"drumroll", "crickets", "Bruh", "airhorn"}},
		{"name case-insensitive", SortOptions{Field: SortByName, Order: SortDesc}, []string{"drumroll", "crickets", "Bruh", "airhorn"}},
		{"duration asc unknown last", SortOptions{Field: SortByDuration, Order: SortAsc}, []string{"Bruh", "airhorn", "drumroll", "crickets"}},
		{"duration desc unknown last", SortOptions{Field: SortByDuration, Order: SortDesc}, []string{"drumroll", "airhorn", "Bruh", "crickets"}},
		{"size", SortOptions{Field: SortBySize, Order: SortAsc}, []string{"Bruh", "airhorn", "drumroll", "crickets"}},
		{"added newest first", SortOptions{Field: SortByAdded, Order: SortDesc}, []string{"crickets", "airhorn", "Bruh", "drumroll"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := sampleRows()
			Sort(rows, tt.opts)
			assert.Equal(t, tt.want, rowNames(rows))
		})
	}
}

func TestDefaultSortOptions(t *testing.T) {
	opts := DefaultSortOptions()
	assert.Equal(t, SortByPosition, opts.Field)
	assert.Equal(t, SortAsc, opts.Order)
}

func TestParseSortField(t *testing.T) {
	tests := []struct {
		input    string
		expected SortField
	}{
		{"name", SortByName},
		{"N", SortByName},
		{"duration", SortByDuration},
		{"length", SortByDuration},
		{"size", SortBySize},
		{"added", SortByAdded},
		{"created", SortByAdded},
		{"index", SortByPosition},
		{"unknown", SortByPosition},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, err := ParseSortField(tt.input)
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestParseSortOrder(t *testing.T) {
	tests := []struct {
		input    string
		expected SortOrder
	}{
		{"asc", SortAsc},
		{"ascending", SortAsc},
		{"desc", SortDesc},
		{"DESCENDING", SortDesc},
		{"d", SortDesc},
		{"", SortAsc},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, err := ParseSortOrder(tt.input)
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}
