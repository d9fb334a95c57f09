package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/car_dealership/internal/carquery"
	"github.com/Skotchmaster/car_dealership/internal/db"
	"github.com/Skotchmaster/car_dealership/internal/handlers"
	"github.com/Skotchmaster/car_dealership/internal/logging"
	authmw "github.com/Skotchmaster/car_dealership/internal/middleware/auth"
	"github.com/Skotchmaster/car_dealership/internal/mykafka"
	"github.com/Skotchmaster/car_dealership/internal/repo"
	"github.com/Skotchmaster/car_dealership/internal/service"
	"github.com/Skotchmaster/car_dealership/internal/transport"
	"github.com/Skotchmaster/car_dealership/internal/validation"
)

var jwtSecret = []byte("test-jwt-secret")

type event struct {
	Topic string
	Key   string
	Body  map[string]any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []event
}

func (p *recordingPublisher) PublishEvent(_ context.Context, topic, key string, e any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	body, _ := e.(map[string]any)
	p.events = append(p.events, event{Topic: topic, Key: key, Body: body})
	return nil
}

func (p *recordingPublisher) types(topic string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		if e.Topic == topic {
			out = append(out, e.Body["type"].(string))
		}
	}
	return out
}

type fakeSearcher struct{ query string }

func (f *fakeSearcher) Search(_ context.Context, q string, from, size int) (int64, []transport.CarSummary, error) {
	f.query = q
	return 1, []transport.CarSummary{{Brandname: "Toyota"}}, nil
}

type app struct {
	e      *echo.Echo
	events *recordingPublisher
	search *fakeSearcher
}

func newApp(t *testing.T, rateLimit bool, carQueryURL string) *app {
	t.Helper()
	gdb, err := db.OpenMemory(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})

	r := repo.New(gdb)
	v := validation.New()
	events := &recordingPublisher{}
	search := &fakeSearcher{}

	d := &Deps{
		Auth: authmw.NewAuthMiddleware(jwtSecret),
		AuthHandler: &handlers.AuthHandler{
			Svc:      &service.AuthService{Repo: r, Validator: v, JWTSecret: jwtSecret, TokenTTL: time.Hour, AllowAdminSignup: true},
			Producer: events,
		},
		CarHandler:         &handlers.CarHandler{Svc: &service.CarService{Repo: r, Validator: v}, Producer: events},
		CarInfoHandler:     handlers.NewCarInfoHandler(carquery.NewClient(carQueryURL)),
		CustomerHandler:    &handlers.CustomerHandler{Svc: &service.CustomerService{Repo: r, Validator: v}, Producer: events},
		SalesRecordHandler: &handlers.SalesRecordHandler{Svc: &service.SalesRecordService{Repo: r, Validator: v}, Producer: events},
		SearchHandler:      handlers.NewSearchHandler(search),
		Ready: func(ctx context.Context) error {
			sqlDB, err := gdb.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		RateLimit: rateLimit,
	}
	return &app{
		e:      NewServer(logging.NewWithWriter("error", io.Discard), d),
		events: events,
		search: search,
	}
}

func (a *app) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func (a *app) register(t *testing.T, username string, admin bool) transport.AuthResponse {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/auth/register", "", map[string]any{
		"username": username, "password": "secret", "is_admin": admin,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var res transport.AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return res
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[transport.ErrorResponse](t, rec).Error
}

func TestHealth(t *testing.T) {
	a := newApp(t, false, "")
	assert.Equal(t, http.StatusOK, a.do(t, http.MethodGet, "/health/live", "", nil).Code)
	assert.Equal(t, http.StatusOK, a.do(t, http.MethodGet, "/health/ready", "", nil).Code)
}

func TestAuthFlow(t *testing.T) {
	a := newApp(t, false, "")

	res := a.register(t, "sam", false)
	assert.Equal(t, "User registered successfully", res.Message)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "sam", res.Username)
	assert.False(t, res.IsAdmin)

	rec := a.do(t, http.MethodPost, "/api/auth/register", "", map[string]any{"username": "sam", "password": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Username is already taken", errorBody(t, rec))

	rec = a.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{"username": "sam", "password": "secret"})
	require.Equal(t, http.StatusOK, rec.Code)
	login := decode[transport.AuthResponse](t, rec)
	assert.Equal(t, res.UserID, login.UserID)
	assert.Empty(t, login.Message)
	assert.Contains(t, rec.Header().Get(echo.HeaderSetCookie), authmw.AccessCookie+"=")

	rec = a.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{"username": "sam", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid credentials", errorBody(t, rec))

	rec = a.do(t, http.MethodPost, "/api/auth/register", "", map[string]any{"username": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, decode[transport.ValidationResponse](t, rec).Errors, 2)

	assert.Equal(t, []string{"user_registered"}, a.events.types(mykafka.TopicUserEvents))
}

func TestCars(t *testing.T) {
	a := newApp(t, false, "")
	admin := a.register(t, "boss", true).Token
	user := a.register(t, "clerk", false).Token

	rec := a.do(t, http.MethodPost, "/api/cars", "", map[string]any{"brandname": "BMW"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "No token provided", errorBody(t, rec))

	rec = a.do(t, http.MethodPost, "/api/cars", user, map[string]any{"brandname": "BMW"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Access denied. Only administrators can create cars.", errorBody(t, rec))

	rec = a.do(t, http.MethodPost, "/api/cars", admin, map[string]any{"brandname": "BMW", "price": "abc"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	verrs := decode[transport.ValidationResponse](t, rec).Errors
	assert.Contains(t, verrs, validation.FieldError{Field: "price", Msg: "Price must be a valid number"})
	assert.Contains(t, verrs, validation.FieldError{Field: "cartype", Msg: "cartype name must be specified."})

	for _, brand := range []string{"Toyota", "BMW"} {
		rec = a.do(t, http.MethodPost, "/api/cars", admin, map[string]any{
			"brandname": brand, "cartype": "sedan", "price": 25000, "productionarea": "Japan",
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec = a.do(t, http.MethodGet, "/api/cars", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]transport.CarSummary](t, rec)
	require.Len(t, list, 2)
	assert.Equal(t, "BMW", list[0].Brandname)
	assert.Equal(t, "Toyota", list[1].Brandname)
	id := list[0].ID.String()

	rec = a.do(t, http.MethodGet, "/api/cars/not-a-uuid", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid car ID format", errorBody(t, rec))

	rec = a.do(t, http.MethodGet, "/api/cars/"+id, "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(t, http.MethodGet, "/api/cars/"+id, user, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode[map[string]transport.CarSummary](t, rec)
	assert.Equal(t, "BMW", detail["car"].Brandname)

	rec = a.do(t, http.MethodGet, "/api/cars/"+uuid.NewString(), user, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Car not found", errorBody(t, rec))

	rec = a.do(t, http.MethodPut, "/api/cars/"+uuid.NewString(), user, map[string]any{})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do(t, http.MethodPut, "/api/cars/"+id, user, map[string]any{})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Access denied. Only administrators can update cars.", errorBody(t, rec))

	rec = a.do(t, http.MethodPut, "/api/cars/"+id, admin, map[string]any{
		"brandname": "BMW", "cartype": "coupe", "price": "41000", "productionarea": "Germany",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "coupe", decode[transport.CarSummary](t, rec).Cartype)

	rec = a.do(t, http.MethodDelete, "/api/cars/"+id, user, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(t, http.MethodDelete, "/api/cars/"+id, admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Car deleted successfully", decode[transport.MessageResponse](t, rec).Message)

	rec = a.do(t, http.MethodDelete, "/api/cars/"+id, admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	assert.Equal(t, []string{"car_created", "car_created", "car_updated", "car_deleted"}, a.events.types(mykafka.TopicCarEvents))
}

func multipartCar(t *testing.T, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range map[string]string{"brandname": "Audi", "cartype": "suv", "price": "30000", "productionarea": "Germany"} {
		require.NoError(t, w.WriteField(k, v))
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="image"; filename="car.bin"`)
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestCars_MultipartImage(t *testing.T) {
	a := newApp(t, false, "")
	admin := a.register(t, "boss", true).Token

	post := func(contentType string, data []byte) *httptest.ResponseRecorder {
		body, ct := multipartCar(t, contentType, data)
		req := httptest.NewRequest(http.MethodPost, "/api/cars", body)
		req.Header.Set(echo.HeaderContentType, ct)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+admin)
		rec := httptest.NewRecorder()
		a.e.ServeHTTP(rec, req)
		return rec
	}

	rec := post("image/png", []byte{0x89, 'P', 'N', 'G'})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var car struct {
		Brandname string `json:"brandname"`
		Price     float64
		Image     struct {
			Data        []byte `json:"data"`
			ContentType string `json:"contentType"`
		} `json:"image"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &car))
	assert.Equal(t, "Audi", car.Brandname)
	assert.EqualValues(t, 30000, car.Price)
	assert.Equal(t, "image/png", car.Image.ContentType)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, car.Image.Data)

	rec = post("text/plain", []byte("hello"))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, validation.Errors{{Field: "image", Msg: "Not an image! Please upload only images."}},
		decode[transport.ValidationResponse](t, rec).Errors)
}

func TestCustomers(t *testing.T) {
	a := newApp(t, false, "")
	admin := a.register(t, "boss", true).Token
	alice := a.register(t, "alice", false).Token
	bob := a.register(t, "bob", false).Token

	rec := a.do(t, http.MethodPost, "/api/cars", admin, map[string]any{
		"brandname": "Toyota", "cartype": "sedan", "price": 1, "productionarea": "Japan",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	carID := decode[transport.CarSummary](t, rec).ID

	rec = a.do(t, http.MethodGet, "/api/customer", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	missing := uuid.NewString()
	rec = a.do(t, http.MethodPost, "/api/customer", alice, map[string]any{
		"firstname": "Amy", "lastname": "Doe", "cars": []string{missing},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, validation.Errors{{Field: "cars", Msg: "Car(s) not found: " + missing}},
		decode[transport.ValidationResponse](t, rec).Errors)

	rec = a.do(t, http.MethodPost, "/api/customer", alice, map[string]any{
		"firstname": "Amy", "lastname": "Doe", "cars": []string{carID.String()},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[struct {
		Message  string                 `json:"message"`
		Customer transport.CustomerView `json:"customer"`
	}](t, rec)
	assert.Equal(t, "Customer created successfully", created.Message)
	require.Len(t, created.Customer.Cars, 1)
	assert.Equal(t, "Toyota", created.Customer.Cars[0].Brandname)
	require.NotNil(t, created.Customer.CreatedBy)
	assert.Equal(t, "alice", created.Customer.CreatedBy.Username)
	id := created.Customer.ID.String()

	rec = a.do(t, http.MethodPost, "/api/customer", bob, map[string]any{"firstname": "Bea", "lastname": "Roe"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = a.do(t, http.MethodGet, "/api/customer?limit=0", alice, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	qerr := decode[transport.QueryErrorResponse](t, rec)
	assert.Equal(t, "Invalid pagination parameters", qerr.Error)

	rec = a.do(t, http.MethodGet, "/api/customer", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[transport.Page[transport.CustomerView]](t, rec)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "Amy", page.Data[0].Firstname)
	assert.EqualValues(t, 1, page.Pagination.Total)

	rec = a.do(t, http.MethodGet, "/api/customer", admin, nil)
	assert.Len(t, decode[transport.Page[transport.CustomerView]](t, rec).Data, 2)

	rec = a.do(t, http.MethodGet, "/api/customer/"+id, bob, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Access denied", errorBody(t, rec))

	rec = a.do(t, http.MethodGet, "/api/customer/"+uuid.NewString(), bob, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Customer not found", errorBody(t, rec))

	rec = a.do(t, http.MethodPut, "/api/customer/"+id, bob, map[string]any{"firstname": "X", "lastname": "Y"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(t, http.MethodPut, "/api/customer/"+id, alice, map[string]any{"firstname": "Amelia", "lastname": "Doe"})
	require.Equal(t, http.StatusOK, rec.Code)
	var updated struct {
		Firstname string   `json:"firstname"`
		Cars      []string `json:"cars"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "Amelia", updated.Firstname)
	assert.Equal(t, []string{carID.String()}, updated.Cars)

	rec = a.do(t, http.MethodGet, "/api/customer/"+id, admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodDelete, "/api/customer/"+id, alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Customer deleted successfully", decode[transport.MessageResponse](t, rec).Message)

	assert.Equal(t, []string{"customer_created", "customer_created", "customer_updated", "customer_deleted"},
		a.events.types(mykafka.TopicCustomerEvents))
}

func TestSalesRecords(t *testing.T) {
	a := newApp(t, false, "")
	admin := a.register(t, "boss", true).Token
	user := a.register(t, "clerk", false).Token

	newCar := func(brand string) string {
		rec := a.do(t, http.MethodPost, "/api/cars", admin, map[string]any{
			"brandname": brand, "cartype": "sedan", "price": 1, "productionarea": "Japan",
		})
		require.Equal(t, http.StatusCreated, rec.Code)
		return decode[transport.CarSummary](t, rec).ID.String()
	}
	toyota, bmw := newCar("Toyota"), newCar("BMW")

	rec := a.do(t, http.MethodPost, "/api/customer", user, map[string]any{"firstname": "Alen", "lastname": "Jimmy"})
	require.Equal(t, http.StatusCreated, rec.Code)
	buyer := decode[struct {
		Customer transport.CustomerView `json:"customer"`
	}](t, rec).Customer.ID.String()

	sale := map[string]any{"car": toyota, "buyer": buyer, "salesman": "Sam", "purchasedate": "2024-03-01", "transactionprice": 19500}
	rec = a.do(t, http.MethodPost, "/api/salesrecord", user, sale)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Access denied. Only administrators can create sales records.", errorBody(t, rec))

	rec = a.do(t, http.MethodPost, "/api/salesrecord", user, map[string]any{"car": "x"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(t, http.MethodPost, "/api/salesrecord", admin, map[string]any{"car": "x", "buyer": uuid.NewString(), "transactionprice": "cheap"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, validation.Errors{
		{Field: "car", Msg: "Invalid car ID format"},
		{Field: "salesman", Msg: "Salesman name is required"},
		{Field: "transactionprice", Msg: "Transaction price must be a number"},
		{Field: "buyer", Msg: "Customer not found"},
	}, decode[transport.ValidationResponse](t, rec).Errors)

	rec = a.do(t, http.MethodPost, "/api/salesrecord", admin, sale)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		ID uuid.UUID `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	for _, s := range []map[string]any{
		{"car": toyota, "buyer": buyer, "salesman": "Tom", "purchasedate": "2024-03-02", "transactionprice": 9000},
		{"car": bmw, "buyer": buyer, "salesman": "Sam", "purchasedate": "2024-03-03", "transactionprice": 48000},
	} {
		require.Equal(t, http.StatusCreated, a.do(t, http.MethodPost, "/api/salesrecord", admin, s).Code)
	}

	rec = a.do(t, http.MethodGet, "/api/salesrecord?carBrand=toyota&salesman=Sam", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[transport.Page[transport.SalesRecordView]](t, rec)
	require.Len(t, page.Data, 1)
	assert.Equal(t, created.ID, page.Data[0].ID)
	assert.Equal(t, "Toyota", page.Data[0].Car.Brandname)
	assert.Equal(t, "Alen", page.Data[0].Buyer.Firstname)

	rec = a.do(t, http.MethodGet, "/api/salesrecord?sortBy=transactionprice&sortOrder=desc&limit=2", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page = decode[transport.Page[transport.SalesRecordView]](t, rec)
	require.Len(t, page.Data, 2)
	assert.EqualValues(t, 48000, page.Data[0].TransactionPrice)
	assert.Equal(t, int64(2), page.Pagination.TotalPages)

	rec = a.do(t, http.MethodGet, "/api/salesrecord?carBrand=nonexistentbrand", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page = decode[transport.Page[transport.SalesRecordView]](t, rec)
	assert.Empty(t, page.Data)
	assert.Contains(t, page.Message, "No cars found with the specified brand")
	assert.Contains(t, rec.Body.String(), `"data":[]`)

	rec = a.do(t, http.MethodGet, "/api/salesrecord?sortBy=unknown_value&minPrice=abc", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var qerr struct {
		Error   string   `json:"error"`
		Details []string `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &qerr))
	assert.Equal(t, "Invalid query parameters", qerr.Error)
	assert.Equal(t, []string{
		"Invalid minimum price format",
		"Invalid sort field: unknown_value. Valid fields are: date, transactionprice, car, buyer, salesman",
	}, qerr.Details)

	rec = a.do(t, http.MethodGet, "/api/salesrecord?carBrand=toyota&minPrice=10000", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page = decode[transport.Page[transport.SalesRecordView]](t, rec)
	require.Len(t, page.Data, 1)
	assert.Equal(t, created.ID, page.Data[0].ID)
	assert.EqualValues(t, 1, page.Pagination.Total)

	rec = a.do(t, http.MethodGet, "/api/salesrecord?carBrand=nope&limit=500&page=0", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid pagination parameters", decode[transport.QueryErrorResponse](t, rec).Error)

	rec = a.do(t, http.MethodGet, "/api/salesrecord?limit=101", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid pagination parameters", decode[transport.QueryErrorResponse](t, rec).Error)

	path := "/api/salesrecord/" + created.ID.String()
	rec = a.do(t, http.MethodGet, path, user, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Sam", decode[transport.SalesRecordView](t, rec).Salesman)

	rec = a.do(t, http.MethodGet, "/api/salesrecord/"+uuid.NewString(), user, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Sales record not found", errorBody(t, rec))

	rec = a.do(t, http.MethodPut, path, user, sale)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	sale["salesman"] = "Samantha"
	rec = a.do(t, http.MethodPut, path, admin, sale)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodDelete, path, user, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = a.do(t, http.MethodDelete, path, admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Sales record deleted successfully", decode[transport.MessageResponse](t, rec).Message)

	assert.Equal(t,
		[]string{"salesrecord_created", "salesrecord_created", "salesrecord_created", "salesrecord_updated", "salesrecord_deleted"},
		a.events.types(mykafka.TopicSalesRecordEvents))
}

func TestCarSearchAndInfo(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "toyota", r.URL.Query().Get("make"))
		_, _ = io.WriteString(w, `?({"Trims":[{"make_display":"Toyota","model_name":"Camry","model_engine_power_ps":"178","make_country":"Japan"}]});`)
	}))
	defer upstream.Close()

	a := newApp(t, false, upstream.URL+"/")

	rec := a.do(t, http.MethodGet, "/api/cars/info/search?brandname=Toyota", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var info struct {
		Success bool             `json:"success"`
		Count   int              `json:"count"`
		Data    []map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.True(t, info.Success)
	assert.Equal(t, 1, info.Count)
	assert.Equal(t, "Japan", info.Data[0]["productionarea"])

	rec = a.do(t, http.MethodGet, "/api/cars/search?q=toy", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "toy", a.search.query)
	assert.Contains(t, rec.Body.String(), `"total":1`)

	rec = a.do(t, http.MethodGet, "/api/cars/search", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCarInfo_UpstreamGarbage(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "<html>down</html>")
	}))
	defer upstream.Close()

	a := newApp(t, false, upstream.URL+"/")
	rec := a.do(t, http.MethodGet, "/api/cars/info/search?brandname=bmw", "", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "Invalid API response format", body["error"])
	assert.Equal(t, "The external API returned an unexpected format", body["message"])
}

func TestAuthRateLimit(t *testing.T) {
	a := newApp(t, true, "")

	var last *httptest.ResponseRecorder
	for i := 0; i < 11; i++ {
		last = a.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{"username": "x", "password": "y"})
	}
	assert.Equal(t, http.StatusTooManyRequests, last.Code)
	assert.Equal(t, "Too many login attempts, please try again after an hour.", errorBody(t, last))
}
