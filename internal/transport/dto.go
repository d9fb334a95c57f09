package transport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/car_dealership/internal/models"
	"github.com/Skotchmaster/car_dealership/internal/util"
	"github.com/Skotchmaster/car_dealership/internal/validation"
)

// Amount is a money value that arrives either as a JSON number, a JSON
// string or a form field. It stays textual until validated.
type Amount string

func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*a = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = Amount(s)
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("amount: %w", err)
		}
		*a = Amount(n.String())
	}
	return nil
}

// Float returns the parsed value; callers validate first.
func (a Amount) Float() float64 {
	f, _ := validation.ParseAmount(string(a))
	return f
}

type RegisterRequest struct {
	Username string `json:"username" form:"username" validate:"required" msg:"username is required"`
	Password string `json:"password" form:"password" validate:"required" msg:"password is required"`
	IsAdmin  bool   `json:"is_admin" form:"is_admin"`
}

func (r *RegisterRequest) Normalize() { r.Username = strings.TrimSpace(r.Username) }

type LoginRequest struct {
	Username string `json:"username" form:"username" validate:"required" msg:"username is required"`
	Password string `json:"password" form:"password" validate:"required" msg:"password is required"`
}

func (r *LoginRequest) Normalize() { r.Username = strings.TrimSpace(r.Username) }

type AuthResponse struct {
	Message  string    `json:"message,omitempty"`
	Token    string    `json:"token"`
	UserID   uuid.UUID `json:"user_id"`
	IsAdmin  bool      `json:"is_admin"`
	Username string    `json:"username"`
}

type CarRequest struct {
	Brandname      string        `json:"brandname"      form:"brandname"      validate:"required" msg:"brandname must be specified."`
	Cartype        string        `json:"cartype"        form:"cartype"        validate:"required" msg:"cartype name must be specified."`
	Price          Amount        `json:"price"          form:"price"          validate:"required,amount" msg_required:"price must be specified." msg:"Price must be a valid number"`
	Productionarea string        `json:"productionarea" form:"productionarea" validate:"required" msg:"productionarea name must be specified."`
	Image          *models.Image `json:"image"          form:"-"`
}

func (r *CarRequest) Normalize() {
	r.Brandname = strings.TrimSpace(r.Brandname)
	r.Cartype = strings.TrimSpace(r.Cartype)
	r.Price = Amount(strings.TrimSpace(string(r.Price)))
	r.Productionarea = strings.TrimSpace(r.Productionarea)
}

type CustomerRequest struct {
	Firstname string `json:"firstname" validate:"required" msg:"firstname must be specified."`
	Lastname  string `json:"lastname"  validate:"required" msg:"lastname name must be specified."`
	// Cars left out of an update keeps the stored list; an empty list clears it.
	Cars []string `json:"cars" validate:"omitempty,dive,uuid" msg:"Invalid car ID format: %v"`
}

func (r *CustomerRequest) Normalize() {
	r.Firstname = strings.TrimSpace(r.Firstname)
	r.Lastname = strings.TrimSpace(r.Lastname)
	for i := range r.Cars {
		r.Cars[i] = strings.ToLower(strings.TrimSpace(r.Cars[i]))
	}
}

// CarIDs parses Cars; only meaningful after validation.
func (r *CustomerRequest) CarIDs() []uuid.UUID {
	if r.Cars == nil {
		return nil
	}
	out := make([]uuid.UUID, 0, len(r.Cars))
	for _, s := range r.Cars {
		if id, err := uuid.Parse(s); err == nil {
			out = append(out, id)
		}
	}
	return out
}

type SalesRecordRequest struct {
	Car              string `json:"car"              validate:"required,uuid" msg:"Invalid car ID format"`
	Buyer            string `json:"buyer"            validate:"required,uuid" msg:"Invalid buyer ID format"`
	Salesman         string `json:"salesman"         validate:"required" msg:"Salesman name is required"`
	PurchaseDate     string `json:"purchasedate"     validate:"omitempty,isodate" msg:"Invalid date format"`
	TransactionPrice Amount `json:"transactionprice" validate:"required,amount" msg:"Transaction price must be a number"`
}

func (r *SalesRecordRequest) Normalize() {
	r.Car = strings.ToLower(strings.TrimSpace(r.Car))
	r.Buyer = strings.ToLower(strings.TrimSpace(r.Buyer))
	r.Salesman = strings.TrimSpace(r.Salesman)
	r.PurchaseDate = strings.TrimSpace(r.PurchaseDate)
	r.TransactionPrice = Amount(strings.TrimSpace(string(r.TransactionPrice)))
}

func (r *SalesRecordRequest) CarID() (uuid.UUID, bool) {
	id, err := uuid.Parse(r.Car)
	return id, err == nil
}

func (r *SalesRecordRequest) BuyerID() (uuid.UUID, bool) {
	id, err := uuid.Parse(r.Buyer)
	return id, err == nil
}

// Purchased returns the parsed purchase date, or false when none was sent.
func (r *SalesRecordRequest) Purchased() (time.Time, bool) {
	if r.PurchaseDate == "" {
		return time.Time{}, false
	}
	return validation.ParseDate(r.PurchaseDate)
}

type CarSummary struct {
	ID             uuid.UUID `json:"id"`
	Brandname      string    `json:"brandname"`
	Cartype        string    `json:"cartype"`
	Price          float64   `json:"price"`
	Productionarea string    `json:"productionarea"`
}

func NewCarSummary(c models.Car) *CarSummary {
	return &CarSummary{
		ID:             c.ID,
		Brandname:      c.Brandname,
		Cartype:        c.Cartype,
		Price:          c.Price,
		Productionarea: c.Productionarea,
	}
}

type BuyerSummary struct {
	ID        uuid.UUID `json:"id"`
	Firstname string    `json:"firstname"`
	Lastname  string    `json:"lastname"`
}

type UserSummary struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
}

// SalesRecordView is a sales record with its car and buyer projected in.
// Car or Buyer is null when the reference no longer resolves.
type SalesRecordView struct {
	ID               uuid.UUID     `json:"id"`
	Car              *CarSummary   `json:"car"`
	Buyer            *BuyerSummary `json:"buyer"`
	Salesman         string        `json:"salesman"`
	PurchaseDate     time.Time     `json:"purchasedate"`
	TransactionPrice float64       `json:"transactionprice"`
}

type CustomerView struct {
	ID        uuid.UUID    `json:"id"`
	Firstname string       `json:"firstname"`
	Lastname  string       `json:"lastname"`
	Cars      []CarSummary `json:"cars"`
	CreatedBy *UserSummary `json:"createdBy"`
}

// Page is the listing envelope. Message is set only for empty results.
type Page[T any] struct {
	Message    string    `json:"message,omitempty"`
	Data       []T       `json:"data"`
	Pagination util.Meta `json:"pagination"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type ValidationResponse struct {
	Errors validation.Errors `json:"errors"`
}

type QueryErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details"`
}
