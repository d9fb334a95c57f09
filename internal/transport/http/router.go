package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/Skotchmaster/car_dealership/internal/handlers"
	authmw "github.com/Skotchmaster/car_dealership/internal/middleware/auth"
	loggingmw "github.com/Skotchmaster/car_dealership/internal/middleware/logging"
	"github.com/Skotchmaster/car_dealership/internal/transport"
	"github.com/Skotchmaster/car_dealership/internal/validation"
)

type Deps struct {
	Auth               *authmw.AuthMiddleware
	AuthHandler        *handlers.AuthHandler
	CarHandler         *handlers.CarHandler
	CarInfoHandler     *handlers.CarInfoHandler
	CustomerHandler    *handlers.CustomerHandler
	SalesRecordHandler *handlers.SalesRecordHandler
	// SearchHandler is nil when no Elasticsearch is configured.
	SearchHandler *handlers.SearchHandler
	Ready         func(ctx context.Context) error
	RateLimit     bool
}

// NewServer builds the echo instance with the shared middleware chain and
// every route registered.
func NewServer(log *slog.Logger, d *Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handlers.ErrorHandler
	e.Validator = validation.New()

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(loggingmw.RequestLogger(log))
	e.Use(middleware.CORS())
	e.Use(middleware.BodyLimit("12M"))

	Register(e, d)
	return e
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready != nil {
			ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
			defer cancel()
			if err := d.Ready(ctx); err != nil {
				return c.NoContent(http.StatusServiceUnavailable)
			}
		}
		return c.NoContent(http.StatusOK)
	})

	api := e.Group("/api")
	if d.RateLimit {
		api.Use(rateLimiter(150, 15*time.Minute, "Too many API requests, please try again later."))
	}

	auth := api.Group("/auth")
	if d.RateLimit {
		auth.Use(rateLimiter(10, time.Hour, "Too many login attempts, please try again after an hour."))
	}
	auth.POST("/register", d.AuthHandler.Register)
	auth.POST("/login", d.AuthHandler.Login)
	auth.POST("/logout", d.AuthHandler.LogOut)

	carID := authmw.ValidUUIDParam("id", "Invalid car ID format")
	cars := api.Group("/cars")
	cars.GET("", d.CarHandler.ListCars)
	cars.POST("", d.CarHandler.CreateCar, d.Auth.AdminOnly("Access denied. Only administrators can create cars."))
	cars.GET("/info/search", d.CarInfoHandler.Search)
	if d.SearchHandler != nil {
		cars.GET("/search", d.SearchHandler.Search)
	}
	cars.GET("/:id", d.CarHandler.GetCar, carID, d.Auth.RequireAuth)
	cars.PUT("/:id", d.CarHandler.UpdateCar, carID, d.Auth.RequireAuth)
	cars.DELETE("/:id", d.CarHandler.DeleteCar, carID, d.Auth.RequireAuth)

	customerID := authmw.ValidUUIDParam("id", "Invalid customer ID format")
	customers := api.Group("/customer")
	customers.GET("", d.CustomerHandler.ListCustomers, d.Auth.RequireAuth)
	customers.POST("", d.CustomerHandler.CreateCustomer, d.Auth.RequireAuth)
	customers.GET("/:id", d.CustomerHandler.GetCustomer, customerID, d.Auth.RequireAuth)
	customers.PUT("/:id", d.CustomerHandler.UpdateCustomer, customerID, d.Auth.RequireAuth)
	customers.DELETE("/:id", d.CustomerHandler.DeleteCustomer, customerID, d.Auth.RequireAuth)

	recordID := authmw.ValidUUIDParam("id", "Invalid sales record ID format")
	records := api.Group("/salesrecord")
	records.GET("", d.SalesRecordHandler.ListSalesRecords)
	records.POST("", d.SalesRecordHandler.CreateSalesRecord, d.Auth.AdminOnly("Access denied. Only administrators can create sales records."))
	records.GET("/:id", d.SalesRecordHandler.GetSalesRecord, recordID, d.Auth.RequireAuth)
	records.PUT("/:id", d.SalesRecordHandler.UpdateSalesRecord, recordID, d.Auth.RequireAuth)
	records.DELETE("/:id", d.SalesRecordHandler.DeleteSalesRecord, recordID, d.Auth.RequireAuth)
}

// rateLimiter allows max requests per window and client IP.
func rateLimiter(max int, window time.Duration, message string) echo.MiddlewareFunc {
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Every(window / time.Duration(max)),
		Burst:     max,
		ExpiresIn: window,
	})
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		DenyHandler: func(c echo.Context, _ string, _ error) error {
			return c.JSON(http.StatusTooManyRequests, transport.ErrorResponse{Error: message})
		},
	})
}
