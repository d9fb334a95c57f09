package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/car_dealership/internal/models"
)

var carSummaryColumns = []string{"id", "brandname", "cartype", "price", "productionarea"}

func (r *GormRepo) GetCar(ctx context.Context, id uuid.UUID) (*models.Car, error) {
	var car models.Car
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&car).Error; err != nil {
		return nil, err
	}
	return &car, nil
}

func (r *GormRepo) ListCars(ctx context.Context) ([]models.Car, error) {
	items := make([]models.Car, 0)
	if err := r.DB.WithContext(ctx).Order("brandname ASC").Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo) CreateCar(ctx context.Context, car *models.Car) error {
	return r.DB.WithContext(ctx).Create(car).Error
}

func (r *GormRepo) UpdateCar(ctx context.Context, car *models.Car) error {
	return r.DB.WithContext(ctx).Save(car).Error
}

func (r *GormRepo) DeleteCar(ctx context.Context, id uuid.UUID) error {
	res := r.DB.WithContext(ctx).Delete(&models.Car{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CarBrandExists reports whether any car's brandname contains brand,
// ignoring case.
func (r *GormRepo) CarBrandExists(ctx context.Context, brand string) (bool, error) {
	return anyRow(r.carsByBrand(ctx, brand))
}

// carsByBrand selects the ids of cars whose brandname contains brand. It is
// used both for the existence check and as a sales record subquery.
func (r *GormRepo) carsByBrand(ctx context.Context, brand string) *gorm.DB {
	return r.DB.WithContext(ctx).
		Model(&models.Car{}).
		Select("id").
		Where(ilike("brandname"), containsPattern(brand))
}

// CarsByIDs loads the summary columns of the given cars, keyed by id.
// Unknown ids are absent from the result.
func (r *GormRepo) CarsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Car, error) {
	out := make(map[uuid.UUID]models.Car, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var cars []models.Car
	if err := r.DB.WithContext(ctx).Select(carSummaryColumns).Where("id IN ?", ids).Find(&cars).Error; err != nil {
		return nil, err
	}
	for _, c := range cars {
		out[c.ID] = c
	}
	return out, nil
}

func (r *GormRepo) ExistingCarIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]bool, error) {
	return existingIDs(ctx, r.DB, &models.Car{}, ids)
}

func existingIDs(ctx context.Context, db *gorm.DB, model any, ids []uuid.UUID) (map[uuid.UUID]bool, error) {
	out := make(map[uuid.UUID]bool, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var found []uuid.UUID
	if err := db.WithContext(ctx).Model(model).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
		return nil, err
	}
	for _, id := range found {
		out[id] = true
	}
	return out, nil
}
