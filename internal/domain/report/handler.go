package report

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clinsight/clinsight/internal/domain/records"
	"github.com/clinsight/clinsight/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/reports/continuity", h.Continuity)
	api.GET("/reports/slots", h.Slots)
	api.GET("/reports/quality", h.Quality)
	api.GET("/cohort/patients", h.CohortPatients)
}

func rangeFromQuery(c echo.Context) (DateRange, error) {
	rng := DateRange{From: c.QueryParam("from"), To: c.QueryParam("to")}
	for _, bound := range []string{rng.From, rng.To} {
		if bound == "" {
			continue
		}
		if _, err := records.ParseDate(bound); err != nil {
			return rng, echo.NewHTTPError(http.StatusBadRequest, "from/to must be ISO dates (yyyy-mm-dd)")
		}
	}
	return rng, nil
}

// Continuity serves the cohort-continuity report: baseline, status
// partition, and the four distributions.
func (h *Handler) Continuity(c echo.Context) error {
	rng, err := rangeFromQuery(c)
	if err != nil {
		return err
	}
	rep, err := h.svc.ComputeAll(c.Request().Context(), rng)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"range":         rep.Range,
		"baseline_date": rep.BaselineDate,
		"cohort_size":   rep.CohortSize,
		"status_totals": rep.StatusTotals,
		"distributions": rep.Distribution,
	})
}

// Slots serves the weekday/hour demand-and-revenue grid.
func (h *Handler) Slots(c echo.Context) error {
	rng, err := rangeFromQuery(c)
	if err != nil {
		return err
	}
	rep, err := h.svc.ComputeAll(c.Request().Context(), rng)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"range":     rep.Range,
		"slots":     rep.Slots,
		"unmatched": rep.Quality.Unmatched,
	})
}

// Quality serves the data-quality signals: unmatched counters plus
// per-family snapshot counts and freshness.
func (h *Handler) Quality(c echo.Context) error {
	rng, err := rangeFromQuery(c)
	if err != nil {
		return err
	}
	rep, err := h.svc.ComputeAll(c.Request().Context(), rng)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, rep.Quality)
}

// CohortPatients serves the paginated anonymized profile list.
func (h *Handler) CohortPatients(c echo.Context) error {
	rng, err := rangeFromQuery(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	patients, total, err := h.svc.CohortPatients(c.Request().Context(), rng, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(patients, total, pg.Limit, pg.Offset))
}
