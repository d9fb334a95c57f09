package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/car_dealership/internal/logging"
	"github.com/Skotchmaster/car_dealership/internal/transport"
	"github.com/Skotchmaster/car_dealership/internal/util"
)

type CarSearcher interface {
	Search(ctx context.Context, query string, from, size int) (int64, []transport.CarSummary, error)
}

type SearchHandler struct {
	Index CarSearcher
}

func NewSearchHandler(index CarSearcher) *SearchHandler {
	return &SearchHandler{Index: index}
}

func (h *SearchHandler) Search(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "car.search")

	q := strings.TrimSpace(c.QueryParam("q"))
	if q == "" {
		l.Warn("car_search_error", "status", 400, "reason", "empty query")
		return echo.NewHTTPError(http.StatusBadRequest, "Search query is required")
	}

	page := util.ParseIntDefault(c.QueryParam("page"), util.DefaultPage)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	from, size := util.Calculate(page, size)

	total, cars, err := h.Index.Search(ctx, q, from, size)
	if err != nil {
		l.Error("car_search_error", "status", 500, "reason", "search failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "search failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"total": total, "cars": cars})
}
