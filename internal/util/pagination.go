package util

import (
	"errors"
	"strconv"
	"strings"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

const PaginationRules = "Page must be greater than 0, limit must be between 1 and 100"

var ErrInvalidPagination = errors.New("invalid pagination parameters")

type Page struct {
	Page  int
	Limit int
	Skip  int
}

type Meta struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	TotalPages int64 `json:"totalPages"`
	Limit      int   `json:"limit"`
}

// ParsePage validates raw page/limit query values. Absent values take the
// defaults; anything else must be an integer inside the allowed range.
func ParsePage(rawPage, rawLimit string) (Page, error) {
	page, err := parseStrictInt(rawPage, DefaultPage)
	if err != nil {
		return Page{}, ErrInvalidPagination
	}
	limit, err := parseStrictInt(rawLimit, DefaultPageSize)
	if err != nil {
		return Page{}, ErrInvalidPagination
	}
	if page < 1 || limit < 1 || limit > MaxPageSize {
		return Page{}, ErrInvalidPagination
	}
	return Page{Page: page, Limit: limit, Skip: (page - 1) * limit}, nil
}

func Calculate(page, size int) (offset, limit int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > MaxPageSize {
		size = DefaultPageSize
	}
	offset = (page - 1) * size
	return offset, size
}

func TotalPages(total int64, limit int) int64 {
	if total <= 0 || limit <= 0 {
		return 0
	}
	return (total + int64(limit) - 1) / int64(limit)
}

func NewMeta(p Page, total int64) Meta {
	return Meta{
		Total:      total,
		Page:       p.Page,
		TotalPages: TotalPages(total, p.Limit),
		Limit:      p.Limit,
	}
}

func ParseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		return v
	}
	return def
}

func parseStrictInt(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(strings.TrimSpace(s))
}
