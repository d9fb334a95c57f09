package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/car_dealership/internal/logging"
	authmw "github.com/Skotchmaster/car_dealership/internal/middleware/auth"
	"github.com/Skotchmaster/car_dealership/internal/mykafka"
	"github.com/Skotchmaster/car_dealership/internal/service"
	"github.com/Skotchmaster/car_dealership/internal/transport"
	"github.com/Skotchmaster/car_dealership/internal/validation"
)

// ErrorHandler renders every error as JSON. String messages become
// {"error": msg}; structured messages are written as they are.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	var body any = transport.ErrorResponse{Error: "Internal server error"}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		switch m := he.Message.(type) {
		case string:
			body = transport.ErrorResponse{Error: m}
		case error:
			body = transport.ErrorResponse{Error: m.Error()}
		case nil:
			body = transport.ErrorResponse{Error: http.StatusText(code)}
		default:
			body = m
		}
	}

	var werr error
	if c.Request().Method == http.MethodHead {
		werr = c.NoContent(code)
	} else {
		werr = c.JSON(code, body)
	}
	if werr != nil {
		logging.FromContext(c.Request().Context()).Error("error_response_failed", "error", werr)
	}
}

func validationFailed(err error) *echo.HTTPError {
	var errs validation.Errors
	errors.As(err, &errs)
	return echo.NewHTTPError(http.StatusBadRequest, transport.ValidationResponse{Errors: errs})
}

func principal(c echo.Context) (service.Principal, error) {
	p, ok := authmw.PrincipalFrom(c)
	if !ok {
		return service.Principal{}, echo.NewHTTPError(http.StatusUnauthorized, "No token provided")
	}
	return p, nil
}

func pathID(c echo.Context, message string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, message)
	}
	return id, nil
}

// publish sends a domain event after a successful mutation. Delivery
// failures are logged and never fail the request.
func publish(c echo.Context, p mykafka.Publisher, topic string, key uuid.UUID, event map[string]any) {
	if p == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := p.PublishEvent(ctx, topic, fmt.Sprint(key), event); err != nil {
		logging.FromContext(ctx).Error("kafka_publish_failed", "topic", topic, "type", event["type"], "error", err)
	}
}
