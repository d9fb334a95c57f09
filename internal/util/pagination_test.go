package util

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePage_Defaults(t *testing.T) {
	p, err := ParsePage("", "")
	require.NoError(t, err)
	assert.Equal(t, Page{Page: 1, Limit: 10, Skip: 0}, p)
}

func TestParsePage_SkipArithmetic(t *testing.T) {
	for page := 1; page <= 7; page++ {
		for _, limit := range []int{1, 3, 10, 99, 100} {
			p, err := ParsePage(strconv.Itoa(page), strconv.Itoa(limit))
			require.NoError(t, err)
			assert.Equal(t, (page-1)*limit, p.Skip)
			assert.Equal(t, page, p.Page)
			assert.Equal(t, limit, p.Limit)
		}
	}
}

func TestParsePage_Rejects(t *testing.T) {
	tests := []struct {
		name        string
		page, limit string
	}{
		{"page zero", "0", "10"},
		{"negative page", "-1", "10"},
		{"limit zero", "1", "0"},
		{"limit over max", "1", "101"},
		{"garbage page", "abc", "10"},
		{"garbage limit", "1", "ten"},
		{"fractional", "1.5", "10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePage(tt.page, tt.limit)
			assert.ErrorIs(t, err, ErrInvalidPagination)
		})
	}
}

func TestTotalPages(t *testing.T) {
	assert.EqualValues(t, 0, TotalPages(0, 10))
	assert.EqualValues(t, 1, TotalPages(1, 10))
	assert.EqualValues(t, 1, TotalPages(10, 10))
	assert.EqualValues(t, 2, TotalPages(11, 10))
	assert.EqualValues(t, 34, TotalPages(100, 3))
}

func TestNewMeta(t *testing.T) {
	m := NewMeta(Page{Page: 2, Limit: 5, Skip: 5}, 12)
	assert.Equal(t, Meta{Total: 12, Page: 2, TotalPages: 3, Limit: 5}, m)
}

func TestCalculate_Clamps(t *testing.T) {
	offset, limit := Calculate(-3, 500)
	assert.Equal(t, 0, offset)
	assert.Equal(t, DefaultPageSize, limit)

	offset, limit = Calculate(3, 20)
	assert.Equal(t, 40, offset)
	assert.Equal(t, 20, limit)
}
