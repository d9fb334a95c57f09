package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Skotchmaster/car_dealership/internal/models"
	"github.com/Skotchmaster/car_dealership/internal/repo"
	"github.com/Skotchmaster/car_dealership/internal/transport"
	"github.com/Skotchmaster/car_dealership/internal/validation"
)

type SalesRecordService struct {
	Repo      *repo.GormRepo
	Validator *validation.Validator
	Now       func() time.Time
}

func (s *SalesRecordService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *SalesRecordService) GetSalesRecord(ctx context.Context, id uuid.UUID) (*transport.SalesRecordView, error) {
	rec, err := s.Repo.GetSalesRecord(ctx, id)
	if err != nil {
		return nil, notFound("sales record", err)
	}
	views, err := s.project(ctx, []models.SalesRecord{*rec})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *SalesRecordService) CreateSalesRecord(ctx context.Context, p Principal, req transport.SalesRecordRequest) (*models.SalesRecord, error) {
	if !p.IsAdmin {
		return nil, ErrForbidden
	}
	if err := s.validate(ctx, &req); err != nil {
		return nil, err
	}

	carID, _ := req.CarID()
	buyerID, _ := req.BuyerID()
	rec := models.SalesRecord{
		CarID:            carID,
		BuyerID:          buyerID,
		Salesman:         req.Salesman,
		PurchaseDate:     s.now(),
		TransactionPrice: req.TransactionPrice.Float(),
	}
	if t, ok := req.Purchased(); ok {
		rec.PurchaseDate = t
	}
	if err := s.Repo.CreateSalesRecord(ctx, &rec); err != nil {
		return nil, fmt.Errorf("create sales record: %w", err)
	}
	return &rec, nil
}

// UpdateSalesRecord replaces every field of the record; an omitted
// purchase date keeps the stored one.
func (s *SalesRecordService) UpdateSalesRecord(ctx context.Context, p Principal, id uuid.UUID, req transport.SalesRecordRequest) (*models.SalesRecord, error) {
	rec, err := s.Repo.GetSalesRecord(ctx, id)
	if err != nil {
		return nil, notFound("sales record", err)
	}
	if !p.IsAdmin {
		return nil, ErrForbidden
	}
	if err := s.validate(ctx, &req); err != nil {
		return nil, err
	}

	rec.CarID, _ = req.CarID()
	rec.BuyerID, _ = req.BuyerID()
	rec.Salesman = req.Salesman
	rec.TransactionPrice = req.TransactionPrice.Float()
	if t, ok := req.Purchased(); ok {
		rec.PurchaseDate = t
	}
	if err := s.Repo.UpdateSalesRecord(ctx, rec); err != nil {
		return nil, fmt.Errorf("update sales record: %w", err)
	}
	return rec, nil
}

func (s *SalesRecordService) DeleteSalesRecord(ctx context.Context, p Principal, id uuid.UUID) error {
	if _, err := s.Repo.GetSalesRecord(ctx, id); err != nil {
		return notFound("sales record", err)
	}
	if !p.IsAdmin {
		return ErrForbidden
	}
	if err := s.Repo.DeleteSalesRecord(ctx, id); err != nil {
		return notFound("sales record", err)
	}
	return nil
}

func (s *SalesRecordService) validate(ctx context.Context, req *transport.SalesRecordRequest) error {
	structErr := s.Validator.Validate(req)
	if structErr != nil && !errors.Is(structErr, ErrValidation) {
		return structErr
	}
	ruleErrs, err := validation.Run(ctx, s.carExists(req), s.buyerExists(req))
	if err != nil {
		return fmt.Errorf("check references: %w", err)
	}
	return validation.Merge(structErr, ruleErrs)
}

func (s *SalesRecordService) carExists(req *transport.SalesRecordRequest) validation.Rule {
	return func(ctx context.Context) (*validation.FieldError, error) {
		id, ok := req.CarID()
		if !ok {
			return nil, nil
		}
		found, err := s.Repo.ExistingCarIDs(ctx, []uuid.UUID{id})
		if err != nil || found[id] {
			return nil, err
		}
		return &validation.FieldError{Field: "car", Msg: "Car not found"}, nil
	}
}

func (s *SalesRecordService) buyerExists(req *transport.SalesRecordRequest) validation.Rule {
	return func(ctx context.Context) (*validation.FieldError, error) {
		id, ok := req.BuyerID()
		if !ok {
			return nil, nil
		}
		found, err := s.Repo.ExistingCustomerIDs(ctx, []uuid.UUID{id})
		if err != nil || found[id] {
			return nil, err
		}
		return &validation.FieldError{Field: "buyer", Msg: "Customer not found"}, nil
	}
}

// project attaches the car and buyer summaries to each record. The two
// batch lookups are independent and run concurrently.
func (s *SalesRecordService) project(ctx context.Context, items []models.SalesRecord) ([]transport.SalesRecordView, error) {
	carIDs := make([]uuid.UUID, 0, len(items))
	buyerIDs := make([]uuid.UUID, 0, len(items))
	for _, it := range items {
		carIDs = append(carIDs, it.CarID)
		buyerIDs = append(buyerIDs, it.BuyerID)
	}

	var (
		cars   map[uuid.UUID]models.Car
		buyers map[uuid.UUID]models.Customer
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		cars, err = s.Repo.CarsByIDs(gctx, carIDs)
		return err
	})
	g.Go(func() (err error) {
		buyers, err = s.Repo.CustomersByIDs(gctx, buyerIDs)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load sales record references: %w", err)
	}

	out := make([]transport.SalesRecordView, len(items))
	for i, it := range items {
		v := transport.SalesRecordView{
			ID:               it.ID,
			Salesman:         it.Salesman,
			PurchaseDate:     it.PurchaseDate,
			TransactionPrice: it.TransactionPrice,
		}
		if car, ok := cars[it.CarID]; ok {
			v.Car = transport.NewCarSummary(car)
		}
		if b, ok := buyers[it.BuyerID]; ok {
			v.Buyer = &transport.BuyerSummary{ID: b.ID, Firstname: b.Firstname, Lastname: b.Lastname}
		}
		out[i] = v
	}
	return out, nil
}
