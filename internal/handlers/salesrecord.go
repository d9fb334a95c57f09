package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/car_dealership/internal/logging"
	"github.com/Skotchmaster/car_dealership/internal/mykafka"
	"github.com/Skotchmaster/car_dealership/internal/query"
	"github.com/Skotchmaster/car_dealership/internal/service"
	"github.com/Skotchmaster/car_dealership/internal/transport"
	"github.com/Skotchmaster/car_dealership/internal/util"
)

type SalesRecordHandler struct {
	Svc      *service.SalesRecordService
	Producer mykafka.Publisher
}

func (h *SalesRecordHandler) ListSalesRecords(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "salesrecord.list_sales_records")

	res, err := h.Svc.ListSalesRecords(ctx, c.QueryParams())
	if err != nil {
		var qerrs query.Errors
		switch {
		case errors.As(err, &qerrs):
			l.Warn("list_sales_records_error", "status", 400, "reason", "invalid query", "error", err)
			return echo.NewHTTPError(http.StatusBadRequest, transport.QueryErrorResponse{
				Error:   "Invalid query parameters",
				Details: []string(qerrs),
			})
		case errors.Is(err, util.ErrInvalidPagination):
			l.Warn("list_sales_records_error", "status", 400, "reason", "invalid pagination", "error", err)
			return echo.NewHTTPError(http.StatusBadRequest, transport.QueryErrorResponse{
				Error:   "Invalid pagination parameters",
				Details: util.PaginationRules,
			})
		default:
			l.Error("list_sales_records_error", "status", 500, "reason", "cannot list sales records", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "cannot list sales records")
		}
	}

	l.Debug("list_sales_records_success", "total", res.Pagination.Total)
	return c.JSON(http.StatusOK, res)
}

func (h *SalesRecordHandler) GetSalesRecord(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "salesrecord.get_sales_record")

	id, err := pathID(c, "Invalid sales record ID format")
	if err != nil {
		return err
	}

	rec, err := h.Svc.GetSalesRecord(ctx, id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			l.Warn("get_sales_record_failed", "status", 404, "sales_record_id", id)
			return echo.NewHTTPError(http.StatusNotFound, "Sales record not found")
		}
		l.Error("get_sales_record_failed", "status", 500, "reason", "cannot get sales record", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot get sales record")
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *SalesRecordHandler) CreateSalesRecord(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "salesrecord.create_sales_record")

	p, err := principal(c)
	if err != nil {
		return err
	}

	var req transport.SalesRecordRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("sales_record_create_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	rec, err := h.Svc.CreateSalesRecord(ctx, p, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrForbidden):
			l.Warn("sales_record_create_error", "status", 403, "reason", "not an admin", "user_id", p.UserID)
			return echo.NewHTTPError(http.StatusForbidden, "Access denied. Only administrators can create sales records.")
		case errors.Is(err, service.ErrValidation):
			l.Warn("sales_record_create_error", "status", 400, "reason", "invalid body", "error", err)
			return validationFailed(err)
		default:
			l.Error("sales_record_create_error", "status", 500, "reason", "cannot add sales record to db", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "cannot add sales record to db")
		}
	}

	publish(c, h.Producer, mykafka.TopicSalesRecordEvents, rec.ID, map[string]any{
		"type":             "salesrecord_created",
		"salesRecordID":    rec.ID,
		"carID":            rec.CarID,
		"buyerID":          rec.BuyerID,
		"transactionprice": rec.TransactionPrice,
		"userID":           p.UserID,
	})

	l.Info("create_sales_record_success", "sales_record_id", rec.ID)
	return c.JSON(http.StatusCreated, rec)
}

func (h *SalesRecordHandler) UpdateSalesRecord(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "salesrecord.update_sales_record")

	id, err := pathID(c, "Invalid sales record ID format")
	if err != nil {
		return err
	}
	p, err := principal(c)
	if err != nil {
		return err
	}

	var req transport.SalesRecordRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("sales_record_update_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	rec, err := h.Svc.UpdateSalesRecord(ctx, p, id, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			l.Warn("sales_record_update_error", "status", 404, "sales_record_id", id)
			return echo.NewHTTPError(http.StatusNotFound, "Sales record not found")
		case errors.Is(err, service.ErrForbidden):
			l.Warn("sales_record_update_error", "status", 403, "reason", "not an admin", "user_id", p.UserID)
			return echo.NewHTTPError(http.StatusForbidden, "Access denied. Only administrators can update sales records.")
		case errors.Is(err, service.ErrValidation):
			l.Warn("sales_record_update_error", "status", 400, "reason", "invalid body", "error", err)
			return validationFailed(err)
		default:
			l.Error("sales_record_update_error", "status", 500, "reason", "cannot update sales record", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "cannot update sales record")
		}
	}

	publish(c, h.Producer, mykafka.TopicSalesRecordEvents, rec.ID, map[string]any{
		"type":             "salesrecord_updated",
		"salesRecordID":    rec.ID,
		"transactionprice": rec.TransactionPrice,
		"userID":           p.UserID,
	})

	l.Info("update_sales_record_success", "sales_record_id", rec.ID)
	return c.JSON(http.StatusOK, rec)
}

func (h *SalesRecordHandler) DeleteSalesRecord(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "salesrecord.delete_sales_record")

	id, err := pathID(c, "Invalid sales record ID format")
	if err != nil {
		return err
	}
	p, err := principal(c)
	if err != nil {
		return err
	}

	if err := h.Svc.DeleteSalesRecord(ctx, p, id); err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			l.Warn("sales_record_delete_error", "status", 404, "sales_record_id", id)
			return echo.NewHTTPError(http.StatusNotFound, "Sales record not found")
		case errors.Is(err, service.ErrForbidden):
			l.Warn("sales_record_delete_error", "status", 403, "reason", "not an admin", "user_id", p.UserID)
			return echo.NewHTTPError(http.StatusForbidden, "Access denied. Only administrators can delete sales records.")
		default:
			l.Error("sales_record_delete_error", "status", 500, "reason", "cannot delete sales record", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "cannot delete sales record")
		}
	}

	publish(c, h.Producer, mykafka.TopicSalesRecordEvents, id, map[string]any{
		"type":          "salesrecord_deleted",
		"salesRecordID": id,
		"userID":        p.UserID,
	})

	l.Info("delete_sales_record_success", "sales_record_id", id)
	return c.JSON(http.StatusOK, transport.MessageResponse{Message: "Sales record deleted successfully"})
}
