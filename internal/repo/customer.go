package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/car_dealership/internal/models"
)

func (r *GormRepo) GetCustomer(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&customer).Error; err != nil {
		return nil, err
	}
	if err := r.attachCarIDs(ctx, []*models.Customer{&customer}); err != nil {
		return nil, err
	}
	return &customer, nil
}

// ListCustomers pages through customers ordered by firstname. A nil owner
// lists every customer.
func (r *GormRepo) ListCustomers(ctx context.Context, owner *uuid.UUID, offset, limit int) (int64, []models.Customer, error) {
	scope := func() *gorm.DB {
		tx := r.DB.WithContext(ctx).Model(&models.Customer{})
		if owner != nil {
			tx = tx.Where("created_by = ?", *owner)
		}
		return tx
	}

	var total int64
	if err := scope().Count(&total).Error; err != nil {
		return 0, nil, err
	}

	items := make([]models.Customer, 0, limit)
	if err := scope().Order("firstname ASC").Order("id ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return 0, nil, err
	}

	ptrs := make([]*models.Customer, len(items))
	for i := range items {
		ptrs[i] = &items[i]
	}
	if err := r.attachCarIDs(ctx, ptrs); err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

func (r *GormRepo) CreateCustomer(ctx context.Context, customer *models.Customer) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(customer).Error; err != nil {
			return err
		}
		return replaceCustomerCars(tx, customer)
	})
}

func (r *GormRepo) UpdateCustomer(ctx context.Context, customer *models.Customer) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(customer).Error; err != nil {
			return err
		}
		if err := tx.Where("customer_id = ?", customer.ID).Delete(&models.CustomerCar{}).Error; err != nil {
			return err
		}
		return replaceCustomerCars(tx, customer)
	})
}

func (r *GormRepo) DeleteCustomer(ctx context.Context, id uuid.UUID) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.Customer{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Where("customer_id = ?", id).Delete(&models.CustomerCar{}).Error
	})
}

// CustomerNameExists reports whether any customer's firstname contains
// name, ignoring case.
func (r *GormRepo) CustomerNameExists(ctx context.Context, name string) (bool, error) {
	return anyRow(r.customersByFirstname(ctx, name))
}

func (r *GormRepo) customersByFirstname(ctx context.Context, name string) *gorm.DB {
	return r.DB.WithContext(ctx).
		Model(&models.Customer{}).
		Select("id").
		Where(ilike("firstname"), containsPattern(name))
}

// CustomersByIDs loads id, firstname and lastname of the given customers.
func (r *GormRepo) CustomersByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Customer, error) {
	out := make(map[uuid.UUID]models.Customer, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var customers []models.Customer
	if err := r.DB.WithContext(ctx).Select("id", "firstname", "lastname").Where("id IN ?", ids).Find(&customers).Error; err != nil {
		return nil, err
	}
	for _, c := range customers {
		out[c.ID] = c
	}
	return out, nil
}

func (r *GormRepo) ExistingCustomerIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]bool, error) {
	return existingIDs(ctx, r.DB, &models.Customer{}, ids)
}

func replaceCustomerCars(tx *gorm.DB, customer *models.Customer) error {
	if len(customer.CarIDs) == 0 {
		return nil
	}
	rows := make([]models.CustomerCar, 0, len(customer.CarIDs))
	unique := make([]uuid.UUID, 0, len(customer.CarIDs))
	seen := make(map[uuid.UUID]bool, len(customer.CarIDs))
	for _, carID := range customer.CarIDs {
		if seen[carID] {
			continue
		}
		seen[carID] = true
		unique = append(unique, carID)
		rows = append(rows, models.CustomerCar{CustomerID: customer.ID, CarID: carID, Position: len(rows)})
	}
	customer.CarIDs = unique
	return tx.Create(&rows).Error
}

func (r *GormRepo) attachCarIDs(ctx context.Context, customers []*models.Customer) error {
	if len(customers) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(customers))
	byID := make(map[uuid.UUID]*models.Customer, len(customers))
	for i, c := range customers {
		ids[i] = c.ID
		c.CarIDs = []uuid.UUID{}
		byID[c.ID] = c
	}

	var rows []models.CustomerCar
	if err := r.DB.WithContext(ctx).
		Where("customer_id IN ?", ids).
		Order("customer_id ASC").Order("position ASC").
		Find(&rows).Error; err != nil {
		return err
	}
	for _, row := range rows {
		if c, ok := byID[row.CustomerID]; ok {
			c.CarIDs = append(c.CarIDs, row.CarID)
		}
	}
	return nil
}
