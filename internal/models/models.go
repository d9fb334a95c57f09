package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"     json:"id"`
	Username     string    `gorm:"uniqueIndex;not null"     json:"username"`
	PasswordHash string    `gorm:"not null"                 json:"-"`
	IsAdmin      bool      `gorm:"not null;default:false"   json:"is_admin"`
	CreatedAt    time.Time `json:"-"`
}

type Car struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Brandname        string    `gorm:"not null;index"       json:"brandname"`
	Cartype          string    `gorm:"not null"             json:"cartype"`
	Price            float64   `gorm:"not null"             json:"price"`
	Productionarea   string    `gorm:"not null"             json:"productionarea"`
	Image            *Image    `gorm:"-"                    json:"image,omitempty"`
	ImageData        []byte    `json:"-"`
	ImageContentType string    `json:"-"`
	CreatedAt        time.Time `json:"-"`
	UpdatedAt        time.Time `json:"-"`
}

// Image is serialised with Data as base64 by encoding/json.
type Image struct {
	Data        []byte `json:"data"`
	ContentType string `json:"contentType"`
}

type Customer struct {
	ID        uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	Firstname string      `gorm:"not null;index"       json:"firstname"`
	Lastname  string      `gorm:"not null"             json:"lastname"`
	CreatedBy uuid.UUID   `gorm:"type:uuid;index"      json:"createdBy"`
	CarIDs    []uuid.UUID `gorm:"-"                    json:"cars"`
	CreatedAt time.Time   `json:"-"`
	UpdatedAt time.Time   `json:"-"`
}

// CustomerCar is the join row behind Customer.CarIDs.
type CustomerCar struct {
	CustomerID uuid.UUID `gorm:"type:uuid;primaryKey"`
	CarID      uuid.UUID `gorm:"type:uuid;primaryKey;index"`
	Position   int       `gorm:"not null;default:0"`
}

type SalesRecord struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CarID            uuid.UUID `gorm:"type:uuid;not null;index" json:"car"`
	BuyerID          uuid.UUID `gorm:"type:uuid;not null;index" json:"buyer"`
	Salesman         string    `gorm:"not null;index"       json:"salesman"`
	PurchaseDate     time.Time `gorm:"not null;index"       json:"purchasedate"`
	TransactionPrice float64   `gorm:"not null;index"       json:"transactionprice"`
	CreatedAt        time.Time `json:"-"`
	UpdatedAt        time.Time `json:"-"`
}

func (u *User) BeforeCreate(*gorm.DB) error        { u.ID = ensureID(u.ID); return nil }
func (c *Car) BeforeCreate(*gorm.DB) error         { c.ID = ensureID(c.ID); return nil }
func (c *Customer) BeforeCreate(*gorm.DB) error    { c.ID = ensureID(c.ID); return nil }
func (s *SalesRecord) BeforeCreate(*gorm.DB) error { s.ID = ensureID(s.ID); return nil }

func (c *Car) BeforeSave(*gorm.DB) error {
	if c.Image != nil {
		c.ImageData = c.Image.Data
		c.ImageContentType = c.Image.ContentType
	}
	return nil
}

func (c *Car) AfterFind(*gorm.DB) error {
	if len(c.ImageData) > 0 {
		c.Image = &Image{Data: c.ImageData, ContentType: c.ImageContentType}
	}
	return nil
}

func ensureID(id uuid.UUID) uuid.UUID {
	if id == uuid.Nil {
		return uuid.New()
	}
	return id
}

// All lists every table for AutoMigrate.
func All() []any {
	return []any{&User{}, &Car{}, &Customer{}, &CustomerCar{}, &SalesRecord{}}
}
