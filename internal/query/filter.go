// Package query turns raw listing query parameters into a validated filter
// and sort specification for sales records.
package query

import (
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"
)

type SortField string

const (
	SortDate             SortField = "date"
	SortTransactionPrice SortField = "transactionprice"
	SortCar              SortField = "car"
	SortBuyer            SortField = "buyer"
	SortSalesman         SortField = "salesman"
)

// ValidSortFields is ordered as it appears in error messages.
var ValidSortFields = []SortField{SortDate, SortTransactionPrice, SortCar, SortBuyer, SortSalesman}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006-1-2",
}

type Filter struct {
	CarBrand  string
	BuyerName string
	Salesman  string
	StartDate *time.Time
	EndDate   *time.Time
	MinPrice  *float64
	MaxPrice  *float64
}

func (f Filter) HasDateRange() bool  { return f.StartDate != nil || f.EndDate != nil }
func (f Filter) HasPriceRange() bool { return f.MinPrice != nil || f.MaxPrice != nil }

type Sort struct {
	Field SortField
	Desc  bool
}

// Spec is the compiled listing request. Sort is nil when no sortBy was given.
type Spec struct {
	Filter Filter
	Sort   *Sort
}

// Errors is the list of human readable problems found in one request.
type Errors []string

func (e Errors) Error() string { return strings.Join(e, "; ") }

// Compile validates params and builds a Spec. When the returned Errors is
// non-empty the Spec must be ignored.
func Compile(params url.Values) (Spec, Errors) {
	filter, errs := compileFilter(params)
	sort, sortErrs := compileSort(params)
	errs = append(errs, sortErrs...)
	if len(errs) > 0 {
		return Spec{}, errs
	}
	return Spec{Filter: filter, Sort: sort}, nil
}

func compileFilter(params url.Values) (Filter, Errors) {
	var (
		f    Filter
		errs Errors
	)

	text := func(key, msg string, dst *string) {
		v := params.Get(key)
		if v == "" {
			return
		}
		if strings.TrimSpace(v) == "" {
			errs = append(errs, msg)
			return
		}
		*dst = strings.TrimSpace(v)
	}
	text("carBrand", "Invalid car brand format", &f.CarBrand)
	text("buyerName", "Invalid buyer name format", &f.BuyerName)
	text("salesman", "Invalid salesman format", &f.Salesman)

	if v := params.Get("startDate"); v != "" {
		if t, ok := parseDate(v); ok {
			f.StartDate = &t
		} else {
			errs = append(errs, "Invalid start date format")
		}
	}
	if v := params.Get("endDate"); v != "" {
		if t, ok := parseDate(v); ok {
			f.EndDate = &t
		} else {
			errs = append(errs, "Invalid end date format")
		}
	}

	if v := params.Get("minPrice"); v != "" {
		if p, ok := parsePrice(v); ok {
			f.MinPrice = &p
		} else {
			errs = append(errs, "Invalid minimum price format")
		}
	}
	if v := params.Get("maxPrice"); v != "" {
		if p, ok := parsePrice(v); ok {
			f.MaxPrice = &p
		} else {
			errs = append(errs, "Invalid maximum price format")
		}
	}

	return f, errs
}

func compileSort(params url.Values) (*Sort, Errors) {
	by := params.Get("sortBy")
	if by == "" {
		return nil, nil
	}
	for _, field := range ValidSortFields {
		if SortField(by) == field {
			return &Sort{Field: field, Desc: params.Get("sortOrder") == "desc"}, nil
		}
	}

	names := make([]string, len(ValidSortFields))
	for i, field := range ValidSortFields {
		names[i] = string(field)
	}
	return nil, Errors{"Invalid sort field: " + by + ". Valid fields are: " + strings.Join(names, ", ")}
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func parsePrice(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	p, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(p) || math.IsInf(p, 0) || p < 0 {
		return 0, false
	}
	return p, true
}
