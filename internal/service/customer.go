package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Skotchmaster/car_dealership/internal/models"
	"github.com/Skotchmaster/car_dealership/internal/repo"
	"github.com/Skotchmaster/car_dealership/internal/transport"
	"github.com/Skotchmaster/car_dealership/internal/util"
	"github.com/Skotchmaster/car_dealership/internal/validation"
)

type CustomerService struct {
	Repo      *repo.GormRepo
	Validator *validation.Validator
}

// ListCustomers pages customers by firstname. Non-admins only see the
// customers they created.
func (s *CustomerService) ListCustomers(ctx context.Context, p Principal, page util.Page) (*transport.Page[transport.CustomerView], error) {
	var owner *uuid.UUID
	if !p.IsAdmin {
		owner = &p.UserID
	}

	total, items, err := s.Repo.ListCustomers(ctx, owner, page.Skip, page.Limit)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	views, err := s.views(ctx, items)
	if err != nil {
		return nil, err
	}
	return &transport.Page[transport.CustomerView]{
		Data:       views,
		Pagination: util.NewMeta(page, total),
	}, nil
}

func (s *CustomerService) GetCustomer(ctx context.Context, p Principal, id uuid.UUID) (*models.Customer, error) {
	customer, err := s.Repo.GetCustomer(ctx, id)
	if err != nil {
		return nil, notFound("customer", err)
	}
	if !p.CanAccess(customer.CreatedBy) {
		return nil, ErrForbidden
	}
	return customer, nil
}

func (s *CustomerService) CreateCustomer(ctx context.Context, p Principal, req transport.CustomerRequest) (*transport.CustomerView, error) {
	if err := s.validate(ctx, &req); err != nil {
		return nil, err
	}

	customer := models.Customer{
		Firstname: req.Firstname,
		Lastname:  req.Lastname,
		CreatedBy: p.UserID,
		CarIDs:    req.CarIDs(),
	}
	if customer.CarIDs == nil {
		customer.CarIDs = []uuid.UUID{}
	}
	if err := s.Repo.CreateCustomer(ctx, &customer); err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}

	views, err := s.views(ctx, []models.Customer{customer})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *CustomerService) UpdateCustomer(ctx context.Context, p Principal, id uuid.UUID, req transport.CustomerRequest) (*models.Customer, error) {
	customer, err := s.GetCustomer(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if err := s.validate(ctx, &req); err != nil {
		return nil, err
	}

	customer.Firstname = req.Firstname
	customer.Lastname = req.Lastname
	if ids := req.CarIDs(); ids != nil {
		customer.CarIDs = ids
	}
	if err := s.Repo.UpdateCustomer(ctx, customer); err != nil {
		return nil, fmt.Errorf("update customer: %w", err)
	}
	return customer, nil
}

func (s *CustomerService) DeleteCustomer(ctx context.Context, p Principal, id uuid.UUID) error {
	if _, err := s.GetCustomer(ctx, p, id); err != nil {
		return err
	}
	if err := s.Repo.DeleteCustomer(ctx, id); err != nil {
		return notFound("customer", err)
	}
	return nil
}

func (s *CustomerService) validate(ctx context.Context, req *transport.CustomerRequest) error {
	structErr := s.Validator.Validate(req)
	ruleErrs, err := validation.Run(ctx, s.carsExist(req))
	if err != nil {
		return fmt.Errorf("check cars: %w", err)
	}
	return validation.Merge(structErr, ruleErrs)
}

// carsExist reports the car ids in req that are not in the store. It is
// skipped when any id is malformed.
func (s *CustomerService) carsExist(req *transport.CustomerRequest) validation.Rule {
	return func(ctx context.Context) (*validation.FieldError, error) {
		ids := req.CarIDs()
		if len(ids) == 0 || len(ids) != len(req.Cars) {
			return nil, nil
		}
		found, err := s.Repo.ExistingCarIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		var missing []string
		for _, id := range ids {
			if !found[id] {
				missing = append(missing, id.String())
			}
		}
		if len(missing) == 0 {
			return nil, nil
		}
		return &validation.FieldError{Field: "cars", Msg: "Car(s) not found: " + strings.Join(missing, ", ")}, nil
	}
}

// views attaches car summaries and the creator's username with one batch
// query each. References that no longer resolve are dropped.
func (s *CustomerService) views(ctx context.Context, items []models.Customer) ([]transport.CustomerView, error) {
	var carIDs, userIDs []uuid.UUID
	for _, c := range items {
		carIDs = append(carIDs, c.CarIDs...)
		userIDs = append(userIDs, c.CreatedBy)
	}

	cars, err := s.Repo.CarsByIDs(ctx, carIDs)
	if err != nil {
		return nil, fmt.Errorf("load customer cars: %w", err)
	}
	users, err := s.Repo.UsersByIDs(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("load customer creators: %w", err)
	}

	out := make([]transport.CustomerView, len(items))
	for i, c := range items {
		v := transport.CustomerView{
			ID:        c.ID,
			Firstname: c.Firstname,
			Lastname:  c.Lastname,
			Cars:      make([]transport.CarSummary, 0, len(c.CarIDs)),
		}
		for _, id := range c.CarIDs {
			if car, ok := cars[id]; ok {
				v.Cars = append(v.Cars, *transport.NewCarSummary(car))
			}
		}
		if u, ok := users[c.CreatedBy]; ok {
			v.CreatedBy = &transport.UserSummary{ID: u.ID, Username: u.Username}
		}
		out[i] = v
	}
	return out, nil
}
