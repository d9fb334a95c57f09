package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/car_dealership/internal/logging"
	"github.com/Skotchmaster/car_dealership/internal/models"
	"github.com/Skotchmaster/car_dealership/internal/mykafka"
	"github.com/Skotchmaster/car_dealership/internal/service"
	"github.com/Skotchmaster/car_dealership/internal/transport"
)

type CarHandler struct {
	Svc      *service.CarService
	Producer mykafka.Publisher
}

func (h *CarHandler) ListCars(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "car.list_cars")

	cars, err := h.Svc.ListCars(ctx)
	if err != nil {
		l.Error("list_cars_error", "status", 500, "reason", "cannot list cars", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot list cars")
	}
	return c.JSON(http.StatusOK, cars)
}

func (h *CarHandler) GetCar(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "car.get_car")

	id, err := pathID(c, "Invalid car ID format")
	if err != nil {
		return err
	}

	car, err := h.Svc.GetCar(ctx, id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			l.Warn("get_car_failed", "status", 404, "car_id", id)
			return echo.NewHTTPError(http.StatusNotFound, "Car not found")
		}
		l.Error("get_car_failed", "status", 500, "reason", "cannot get car", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot get car")
	}
	return c.JSON(http.StatusOK, echo.Map{"car": car})
}

func (h *CarHandler) CreateCar(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "car.create_car")

	p, err := principal(c)
	if err != nil {
		return err
	}

	var req transport.CarRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("car_create_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	upload, err := readImage(c)
	if err != nil {
		l.Warn("car_create_error", "status", 400, "reason", "invalid image", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid image upload")
	}

	car, err := h.Svc.CreateCar(ctx, p, req, upload)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrForbidden):
			l.Warn("car_create_error", "status", 403, "reason", "not an admin", "user_id", p.UserID)
			return echo.NewHTTPError(http.StatusForbidden, "Access denied. Only administrators can create cars.")
		case errors.Is(err, service.ErrValidation):
			l.Warn("car_create_error", "status", 400, "reason", "invalid body", "error", err)
			return validationFailed(err)
		default:
			l.Error("car_create_error", "status", 500, "reason", "cannot add car to db", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "cannot add car to db")
		}
	}

	publish(c, h.Producer, mykafka.TopicCarEvents, car.ID, map[string]any{
		"type":      "car_created",
		"carID":     car.ID,
		"brandname": car.Brandname,
		"price":     car.Price,
		"userID":    p.UserID,
	})

	l.Info("create_car_success", "car_id", car.ID)
	return c.JSON(http.StatusCreated, car)
}

func (h *CarHandler) UpdateCar(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "car.update_car")

	id, err := pathID(c, "Invalid car ID format")
	if err != nil {
		return err
	}
	p, err := principal(c)
	if err != nil {
		return err
	}

	var req transport.CarRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("car_update_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	upload, err := readImage(c)
	if err != nil {
		l.Warn("car_update_error", "status", 400, "reason", "invalid image", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid image upload")
	}

	car, err := h.Svc.UpdateCar(ctx, p, id, req, upload)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			l.Warn("car_update_error", "status", 404, "car_id", id)
			return echo.NewHTTPError(http.StatusNotFound, "Car not found")
		case errors.Is(err, service.ErrForbidden):
			l.Warn("car_update_error", "status", 403, "reason", "not an admin", "user_id", p.UserID)
			return echo.NewHTTPError(http.StatusForbidden, "Access denied. Only administrators can update cars.")
		case errors.Is(err, service.ErrValidation):
			l.Warn("car_update_error", "status", 400, "reason", "invalid body", "error", err)
			return validationFailed(err)
		default:
			l.Error("car_update_error", "status", 500, "reason", "cannot update car", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "cannot update car")
		}
	}

	publish(c, h.Producer, mykafka.TopicCarEvents, car.ID, map[string]any{
		"type":      "car_updated",
		"carID":     car.ID,
		"brandname": car.Brandname,
		"price":     car.Price,
		"userID":    p.UserID,
	})

	l.Info("update_car_success", "car_id", car.ID)
	return c.JSON(http.StatusOK, car)
}

func (h *CarHandler) DeleteCar(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "car.delete_car")

	id, err := pathID(c, "Invalid car ID format")
	if err != nil {
		return err
	}
	p, err := principal(c)
	if err != nil {
		return err
	}

	if err := h.Svc.DeleteCar(ctx, p, id); err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			l.Warn("car_delete_error", "status", 404, "car_id", id)
			return echo.NewHTTPError(http.StatusNotFound, "Car not found")
		case errors.Is(err, service.ErrForbidden):
			l.Warn("car_delete_error", "status", 403, "reason", "not an admin", "user_id", p.UserID)
			return echo.NewHTTPError(http.StatusForbidden, "Access denied. Only administrators can delete cars.")
		default:
			l.Error("car_delete_error", "status", 500, "reason", "cannot delete car from db", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "cannot delete car from db")
		}
	}

	publish(c, h.Producer, mykafka.TopicCarEvents, id, map[string]any{
		"type":   "car_deleted",
		"carID":  id,
		"userID": p.UserID,
	})

	l.Info("delete_car_success", "car_id", id)
	return c.JSON(http.StatusOK, transport.MessageResponse{Message: "Car deleted successfully"})
}

// readImage returns the optional multipart "image" file. Oversized files are
// read one byte past the limit so the service can reject them.
func readImage(c echo.Context) (*models.Image, error) {
	if !strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		return nil, nil
	}
	fh, err := c.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, err
	}

	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, service.MaxImageSize+1))
	if err != nil {
		return nil, err
	}
	return &models.Image{Data: data, ContentType: fh.Header.Get(echo.HeaderContentType)}, nil
}
