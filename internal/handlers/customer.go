package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/car_dealership/internal/logging"
	"github.com/Skotchmaster/car_dealership/internal/mykafka"
	"github.com/Skotchmaster/car_dealership/internal/service"
	"github.com/Skotchmaster/car_dealership/internal/transport"
	"github.com/Skotchmaster/car_dealership/internal/util"
)

const msgNotCreator = "Access denied, you are not the creator of this customer or you are not an admin"

type CustomerHandler struct {
	Svc      *service.CustomerService
	Producer mykafka.Publisher
}

func (h *CustomerHandler) ListCustomers(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "customer.list_customers")

	p, err := principal(c)
	if err != nil {
		return err
	}

	page, err := util.ParsePage(c.QueryParam("page"), c.QueryParam("limit"))
	if err != nil {
		l.Warn("list_customers_error", "status", 400, "reason", "invalid pagination", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, transport.QueryErrorResponse{
			Error:   "Invalid pagination parameters",
			Details: util.PaginationRules,
		})
	}

	res, err := h.Svc.ListCustomers(ctx, p, page)
	if err != nil {
		l.Error("list_customers_error", "status", 500, "reason", "cannot list customers", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot list customers")
	}
	return c.JSON(http.StatusOK, res)
}

func (h *CustomerHandler) GetCustomer(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "customer.get_customer")

	id, err := pathID(c, "Invalid customer ID format")
	if err != nil {
		return err
	}
	p, err := principal(c)
	if err != nil {
		return err
	}

	customer, err := h.Svc.GetCustomer(ctx, p, id)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			l.Warn("get_customer_failed", "status", 404, "customer_id", id)
			return echo.NewHTTPError(http.StatusNotFound, "Customer not found")
		case errors.Is(err, service.ErrForbidden):
			l.Warn("get_customer_failed", "status", 403, "customer_id", id, "user_id", p.UserID)
			return echo.NewHTTPError(http.StatusForbidden, "Access denied")
		default:
			l.Error("get_customer_failed", "status", 500, "reason", "cannot get customer", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "cannot get customer")
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"customer": customer})
}

func (h *CustomerHandler) CreateCustomer(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "customer.create_customer")

	p, err := principal(c)
	if err != nil {
		return err
	}

	var req transport.CustomerRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("customer_create_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	customer, err := h.Svc.CreateCustomer(ctx, p, req)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			l.Warn("customer_create_error", "status", 400, "reason", "invalid body", "error", err)
			return validationFailed(err)
		}
		l.Error("customer_create_error", "status", 500, "reason", "cannot add customer to db", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot add customer to db")
	}

	publish(c, h.Producer, mykafka.TopicCustomerEvents, customer.ID, map[string]any{
		"type":       "customer_created",
		"customerID": customer.ID,
		"userID":     p.UserID,
	})

	l.Info("create_customer_success", "customer_id", customer.ID)
	return c.JSON(http.StatusCreated, echo.Map{
		"message":  "Customer created successfully",
		"customer": customer,
	})
}

func (h *CustomerHandler) UpdateCustomer(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "customer.update_customer")

	id, err := pathID(c, "Invalid customer ID format")
	if err != nil {
		return err
	}
	p, err := principal(c)
	if err != nil {
		return err
	}

	var req transport.CustomerRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("customer_update_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	customer, err := h.Svc.UpdateCustomer(ctx, p, id, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			l.Warn("customer_update_error", "status", 404, "customer_id", id)
			return echo.NewHTTPError(http.StatusNotFound, "Customer not found")
		case errors.Is(err, service.ErrForbidden):
			l.Warn("customer_update_error", "status", 403, "customer_id", id, "user_id", p.UserID)
			return echo.NewHTTPError(http.StatusForbidden, msgNotCreator)
		case errors.Is(err, service.ErrValidation):
			l.Warn("customer_update_error", "status", 400, "reason", "invalid body", "error", err)
			return validationFailed(err)
		default:
			l.Error("customer_update_error", "status", 500, "reason", "cannot update customer", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "cannot update customer")
		}
	}

	publish(c, h.Producer, mykafka.TopicCustomerEvents, customer.ID, map[string]any{
		"type":       "customer_updated",
		"customerID": customer.ID,
		"userID":     p.UserID,
	})

	l.Info("update_customer_success", "customer_id", customer.ID)
	return c.JSON(http.StatusOK, customer)
}

func (h *CustomerHandler) DeleteCustomer(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "customer.delete_customer")

	id, err := pathID(c, "Invalid customer ID format")
	if err != nil {
		return err
	}
	p, err := principal(c)
	if err != nil {
		return err
	}

	if err := h.Svc.DeleteCustomer(ctx, p, id); err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			l.Warn("customer_delete_error", "status", 404, "customer_id", id)
			return echo.NewHTTPError(http.StatusNotFound, "Customer not found")
		case errors.Is(err, service.ErrForbidden):
			l.Warn("customer_delete_error", "status", 403, "customer_id", id, "user_id", p.UserID)
			return echo.NewHTTPError(http.StatusForbidden, msgNotCreator)
		default:
			l.Error("customer_delete_error", "status", 500, "reason", "cannot delete customer", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "cannot delete customer")
		}
	}

	publish(c, h.Producer, mykafka.TopicCustomerEvents, id, map[string]any{
		"type":       "customer_deleted",
		"customerID": id,
		"userID":     p.UserID,
	})

	l.Info("delete_customer_success", "customer_id", id)
	return c.JSON(http.StatusOK, transport.MessageResponse{Message: "Customer deleted successfully"})
}
