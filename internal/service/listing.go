package service

import (
	"context"
	"fmt"
	"net/url"

	"github.com/Skotchmaster/car_dealership/internal/logging"
	"github.com/Skotchmaster/car_dealership/internal/query"
	"github.com/Skotchmaster/car_dealership/internal/repo"
	"github.com/Skotchmaster/car_dealership/internal/transport"
	"github.com/Skotchmaster/car_dealership/internal/util"
)

const (
	MsgNoCarsForBrand     = "No cars found with the specified brand"
	MsgNoCustomersForName = "No customers found with the specified name"

	msgEmptyBrand    = "No sales records found for cars of the specified brand"
	msgEmptyBuyer    = "No sales records found for the specified buyer"
	msgEmptySalesman = "No sales records found for the specified salesman"
	msgEmptyDates    = "No sales records found in the specified date range"
	msgEmptyPrices   = "No sales records found in the specified price range"
	msgEmpty         = "No sales records found"
)

// ListSalesRecords compiles params, checks that brand and buyer names match
// something, validates paging and then reads one page plus the total.
//
// Errors: query.Errors for bad filters or sort, util.ErrInvalidPagination
// for bad paging; anything else is a store failure.
func (s *SalesRecordService) ListSalesRecords(ctx context.Context, params url.Values) (*transport.Page[transport.SalesRecordView], error) {
	l := logging.FromContext(ctx).With("svc", "salesrecord.list")

	spec, errs := query.Compile(params)
	if len(errs) > 0 {
		return nil, errs
	}

	msg, err := s.resolveReferences(ctx, spec.Filter)
	if err != nil {
		return nil, err
	}

	page, err := util.ParsePage(params.Get("page"), params.Get("limit"))
	if err != nil {
		return nil, err
	}

	if msg != "" {
		l.Debug("salesrecord_list_short_circuit", "reason", msg)
		return &transport.Page[transport.SalesRecordView]{
			Message:    msg,
			Data:       []transport.SalesRecordView{},
			Pagination: util.NewMeta(page, 0),
		}, nil
	}

	total, items, err := s.Repo.ListSalesRecords(ctx, repo.SalesRecordQuery{
		Filter: spec.Filter,
		Sort:   spec.Sort,
		Offset: page.Skip,
		Limit:  page.Limit,
	})
	if err != nil {
		return nil, err
	}
	views, err := s.project(ctx, items)
	if err != nil {
		return nil, err
	}

	out := &transport.Page[transport.SalesRecordView]{
		Data:       views,
		Pagination: util.NewMeta(page, total),
	}
	if len(views) == 0 {
		out.Message = emptyMessage(spec.Filter)
	}
	return out, nil
}

// resolveReferences checks that the car brand and buyer name filters match
// at least one car or customer. It returns the short-circuit message when
// either matches nothing; the sales record query then never runs.
func (s *SalesRecordService) resolveReferences(ctx context.Context, f query.Filter) (string, error) {
	if f.CarBrand != "" {
		ok, err := s.Repo.CarBrandExists(ctx, f.CarBrand)
		if err != nil {
			return "", fmt.Errorf("resolve car brand: %w", err)
		}
		if !ok {
			return MsgNoCarsForBrand, nil
		}
	}
	if f.BuyerName != "" {
		ok, err := s.Repo.CustomerNameExists(ctx, f.BuyerName)
		if err != nil {
			return "", fmt.Errorf("resolve buyer name: %w", err)
		}
		if !ok {
			return MsgNoCustomersForName, nil
		}
	}
	return "", nil
}

func emptyMessage(f query.Filter) string {
	switch {
	case f.CarBrand != "":
		return msgEmptyBrand
	case f.BuyerName != "":
		return msgEmptyBuyer
	case f.Salesman != "":
		return msgEmptySalesman
	case f.HasDateRange():
		return msgEmptyDates
	case f.HasPriceRange():
		return msgEmptyPrices
	default:
		return msgEmpty
	}
}
