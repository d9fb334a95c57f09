package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/car_dealership/internal/models"
	"github.com/Skotchmaster/car_dealership/internal/query"
)

const salesRecordsTable = "sales_records"

// SalesRecordQuery is a compiled listing request. Filter.CarBrand and
// Filter.BuyerName are matched through subqueries on cars and customers.
type SalesRecordQuery struct {
	Filter query.Filter
	Sort   *query.Sort
	Offset int
	Limit  int
}

func (r *GormRepo) GetSalesRecord(ctx context.Context, id uuid.UUID) (*models.SalesRecord, error) {
	var rec models.SalesRecord
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *GormRepo) CreateSalesRecord(ctx context.Context, rec *models.SalesRecord) error {
	return r.DB.WithContext(ctx).Create(rec).Error
}

func (r *GormRepo) UpdateSalesRecord(ctx context.Context, rec *models.SalesRecord) error {
	return r.DB.WithContext(ctx).Save(rec).Error
}

func (r *GormRepo) DeleteSalesRecord(ctx context.Context, id uuid.UUID) error {
	res := r.DB.WithContext(ctx).Delete(&models.SalesRecord{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListSalesRecords runs the page fetch and the total count concurrently
// over the same filter.
func (r *GormRepo) ListSalesRecords(ctx context.Context, q SalesRecordQuery) (int64, []models.SalesRecord, error) {
	var (
		total int64
		items = make([]models.SalesRecord, 0, q.Limit)
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := r.salesRecordScope(gctx, q).Count(&total).Error; err != nil {
			return fmt.Errorf("count sales records: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		tx := applySalesRecordSort(r.salesRecordScope(gctx, q), q.Sort)
		if err := tx.Offset(q.Offset).Limit(q.Limit).Find(&items).Error; err != nil {
			return fmt.Errorf("fetch sales records: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

func (r *GormRepo) salesRecordScope(ctx context.Context, q SalesRecordQuery) *gorm.DB {
	col := func(name string) string { return salesRecordsTable + "." + name }

	tx := r.DB.WithContext(ctx).Model(&models.SalesRecord{})
	f := q.Filter

	if f.CarBrand != "" {
		tx = tx.Where(col("car_id")+" IN (?)", r.carsByBrand(ctx, f.CarBrand))
	}
	if f.BuyerName != "" {
		tx = tx.Where(col("buyer_id")+" IN (?)", r.customersByFirstname(ctx, f.BuyerName))
	}
	if f.Salesman != "" {
		tx = tx.Where(ilike(col("salesman")), containsPattern(f.Salesman))
	}
	if f.StartDate != nil {
		tx = tx.Where(col("purchase_date")+" >= ?", *f.StartDate)
	}
	if f.EndDate != nil {
		tx = tx.Where(col("purchase_date")+" <= ?", *f.EndDate)
	}
	if f.MinPrice != nil {
		tx = tx.Where(col("transaction_price")+" >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		tx = tx.Where(col("transaction_price")+" <= ?", *f.MaxPrice)
	}
	return tx
}

// applySalesRecordSort orders by the requested field, newest purchase first
// when none is given. id breaks ties so pages are stable.
func applySalesRecordSort(tx *gorm.DB, s *query.Sort) *gorm.DB {
	primary := clause.OrderByColumn{
		Column: clause.Column{Table: salesRecordsTable, Name: "purchase_date"},
		Desc:   true,
	}

	if s != nil {
		primary.Desc = s.Desc
		switch s.Field {
		case query.SortDate:
		case query.SortTransactionPrice:
			primary.Column = clause.Column{Table: salesRecordsTable, Name: "transaction_price"}
		case query.SortSalesman:
			primary.Column = clause.Column{Table: salesRecordsTable, Name: "salesman"}
		case query.SortCar:
			tx = tx.Select(salesRecordsTable + ".*").
				Joins("LEFT JOIN cars ON cars.id = " + salesRecordsTable + ".car_id")
			primary.Column = clause.Column{Table: "cars", Name: "brandname"}
		case query.SortBuyer:
			tx = tx.Select(salesRecordsTable + ".*").
				Joins("LEFT JOIN customers ON customers.id = " + salesRecordsTable + ".buyer_id")
			primary.Column = clause.Column{Table: "customers", Name: "firstname"}
		}
	}

	return tx.Order(primary).Order(clause.OrderByColumn{
		Column: clause.Column{Table: salesRecordsTable, Name: "id"},
	})
}
