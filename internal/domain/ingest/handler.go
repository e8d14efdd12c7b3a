package ingest

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clinsight/clinsight/internal/domain/records"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/imports/visits", h.ImportVisits)
	api.POST("/imports/reservations", h.ImportReservations)
	api.POST("/imports/diagnoses", h.ImportDiagnoses)
	api.POST("/imports/listings", h.ImportListings)
	api.POST("/imports/surveys", h.ImportSurveys)
}

func (h *Handler) ImportVisits(c echo.Context) error {
	var batch []records.VisitRecord
	if err := bindBatch(c, &batch); err != nil {
		return err
	}
	res, err := h.svc.ImportVisits(c.Request().Context(), batch)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) ImportReservations(c echo.Context) error {
	var batch []records.ReservationRecord
	if err := bindBatch(c, &batch); err != nil {
		return err
	}
	res, err := h.svc.ImportReservations(c.Request().Context(), batch)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) ImportDiagnoses(c echo.Context) error {
	var batch []records.DiagnosisRecord
	if err := bindBatch(c, &batch); err != nil {
		return err
	}
	res, err := h.svc.ImportDiagnoses(c.Request().Context(), batch)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) ImportListings(c echo.Context) error {
	var batch []records.ListingRecord
	if err := bindBatch(c, &batch); err != nil {
		return err
	}
	res, err := h.svc.ImportListings(c.Request().Context(), batch)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) ImportSurveys(c echo.Context) error {
	var batch []records.SurveyRecord
	if err := bindBatch(c, &batch); err != nil {
		return err
	}
	res, err := h.svc.ImportSurveys(c.Request().Context(), batch)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, res)
}

// bindBatch decodes the request body into a family slice. An unparseable
// or empty payload is the one import failure that surfaces as an HTTP
// error; malformed individual rows are soft-skipped downstream.
func bindBatch[R any](c echo.Context, batch *[]R) error {
	if err := c.Bind(batch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "body must be a JSON array of records")
	}
	if len(*batch) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "empty import payload")
	}
	return nil
}
