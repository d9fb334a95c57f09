package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Skotchmaster/car_dealership/internal/logging"
	"github.com/Skotchmaster/car_dealership/internal/models"
	"github.com/Skotchmaster/car_dealership/internal/repo"
	"github.com/Skotchmaster/car_dealership/internal/transport"
	"github.com/Skotchmaster/car_dealership/internal/validation"
)

// MaxImageSize caps uploaded car images.
const MaxImageSize = 10 << 20

// CarIndexer mirrors car writes into the search index.
type CarIndexer interface {
	IndexCar(ctx context.Context, car models.Car) error
	DeleteCar(ctx context.Context, id uuid.UUID) error
}

type CarService struct {
	Repo      *repo.GormRepo
	Validator *validation.Validator
	Index     CarIndexer
}

func (s *CarService) ListCars(ctx context.Context) ([]models.Car, error) {
	cars, err := s.Repo.ListCars(ctx)
	if err != nil {
		return nil, fmt.Errorf("list cars: %w", err)
	}
	return cars, nil
}

func (s *CarService) GetCar(ctx context.Context, id uuid.UUID) (*models.Car, error) {
	car, err := s.Repo.GetCar(ctx, id)
	if err != nil {
		return nil, notFound("car", err)
	}
	return car, nil
}

// CreateCar stores a new car. upload, when set, wins over req.Image.
func (s *CarService) CreateCar(ctx context.Context, p Principal, req transport.CarRequest, upload *models.Image) (*models.Car, error) {
	if !p.IsAdmin {
		return nil, ErrForbidden
	}
	if err := s.validate(&req, upload); err != nil {
		return nil, err
	}

	car := models.Car{
		Brandname:      req.Brandname,
		Cartype:        req.Cartype,
		Price:          req.Price.Float(),
		Productionarea: req.Productionarea,
		Image:          pickImage(req.Image, upload),
	}
	if err := s.Repo.CreateCar(ctx, &car); err != nil {
		return nil, fmt.Errorf("create car: %w", err)
	}
	s.reindex(ctx, car)
	return &car, nil
}

func (s *CarService) UpdateCar(ctx context.Context, p Principal, id uuid.UUID, req transport.CarRequest, upload *models.Image) (*models.Car, error) {
	car, err := s.GetCar(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsAdmin {
		return nil, ErrForbidden
	}
	if err := s.validate(&req, upload); err != nil {
		return nil, err
	}

	car.Brandname = req.Brandname
	car.Cartype = req.Cartype
	car.Price = req.Price.Float()
	car.Productionarea = req.Productionarea
	if img := pickImage(req.Image, upload); img != nil {
		car.Image = img
	}
	if err := s.Repo.UpdateCar(ctx, car); err != nil {
		return nil, fmt.Errorf("update car: %w", err)
	}
	s.reindex(ctx, *car)
	return car, nil
}

func (s *CarService) DeleteCar(ctx context.Context, p Principal, id uuid.UUID) error {
	if _, err := s.GetCar(ctx, id); err != nil {
		return err
	}
	if !p.IsAdmin {
		return ErrForbidden
	}
	if err := s.Repo.DeleteCar(ctx, id); err != nil {
		return notFound("car", err)
	}
	if s.Index != nil {
		if err := s.Index.DeleteCar(ctx, id); err != nil {
			logging.FromContext(ctx).Warn("car_unindex_failed", "car_id", id, "error", err)
		}
	}
	return nil
}

// reindex failures are logged only; the database stays the source of truth.
func (s *CarService) reindex(ctx context.Context, car models.Car) {
	if s.Index == nil {
		return
	}
	if err := s.Index.IndexCar(ctx, car); err != nil {
		logging.FromContext(ctx).Warn("car_index_failed", "car_id", car.ID, "error", err)
	}
}

func (s *CarService) validate(req *transport.CarRequest, upload *models.Image) error {
	structErr := s.Validator.Validate(req)
	var ruleErrs validation.Errors
	if img := pickImage(req.Image, upload); img != nil {
		switch {
		case !strings.HasPrefix(img.ContentType, "image/"):
			ruleErrs = append(ruleErrs, validation.FieldError{Field: "image", Msg: "Not an image! Please upload only images."})
		case len(img.Data) > MaxImageSize:
			ruleErrs = append(ruleErrs, validation.FieldError{Field: "image", Msg: "Image must be at most 10MB"})
		}
	}
	return validation.Merge(structErr, ruleErrs)
}

func pickImage(fromBody, upload *models.Image) *models.Image {
	if upload != nil {
		return upload
	}
	if fromBody != nil && len(fromBody.Data) > 0 {
		return fromBody
	}
	return nil
}
