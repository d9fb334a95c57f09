package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/car_dealership/internal/carquery"
	"github.com/Skotchmaster/car_dealership/internal/logging"
)

type CarInfoHandler struct {
	Client *carquery.Client
}

func NewCarInfoHandler(client *carquery.Client) *CarInfoHandler {
	return &CarInfoHandler{Client: client}
}

// Search looks up trims for brandname/cartype on CarQuery. Upstream
// failures are reported in the body instead of failing the whole API.
func (h *CarInfoHandler) Search(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "car.info_search")

	q := carquery.Query{
		Brandname:      c.QueryParam("brandname"),
		Cartype:        c.QueryParam("cartype"),
		Productionarea: c.QueryParam("productionarea"),
	}

	trims, err := h.Client.Search(ctx, q)
	if err != nil {
		var rerr *carquery.ResponseError
		if errors.As(err, &rerr) {
			l.Error("car_info_search_error", "status", 500, "reason", rerr.Reason, "error", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{
				"error":   rerr.Reason,
				"message": rerr.Message,
			})
		}
		l.Error("car_info_search_error", "status", 500, "reason", "upstream unreachable", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"success": false,
			"error":   "Failed to fetch car information",
			"message": err.Error(),
		})
	}

	l.Info("car_info_search_success", "count", len(trims))
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"count":   len(trims),
		"data":    trims,
	})
}
