package report

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func getJSON(t *testing.T, h func(echo.Context) error, query string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?"+query, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func TestContinuityHandler(t *testing.T) {
	h := NewHandler(newTestService(seededRepo()))

	rec := getJSON(t, h.Continuity, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var body struct {
		BaselineDate string         `json:"baseline_date"`
		CohortSize   int            `json:"cohort_size"`
		StatusTotals map[string]int `json:"status_totals"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.BaselineDate != "2025-06-30" || body.CohortSize != 2 {
		t.Errorf("body = %+v", body)
	}
	if body.StatusTotals["regular"] != 2 {
		t.Errorf("status totals = %v", body.StatusTotals)
	}
}

func TestContinuityHandler_BadRange(t *testing.T) {
	h := NewHandler(newTestService(seededRepo()))
	rec := getJSON(t, h.Continuity, "from=04/01/2025")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestSlotsHandler(t *testing.T) {
	h := NewHandler(newTestService(seededRepo()))

	rec := getJSON(t, h.Slots, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Slots []Slot `json:"slots"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Slots) != 8*24 {
		t.Errorf("slots = %d, want full grid", len(body.Slots))
	}
}

func TestCohortPatientsHandler_Pagination(t *testing.T) {
	h := NewHandler(newTestService(seededRepo()))

	rec := getJSON(t, h.CohortPatients, "limit=1&offset=0")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Data    []json.RawMessage `json:"data"`
		Total   int               `json:"total"`
		HasMore bool              `json:"has_more"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Total != 2 || len(body.Data) != 1 || !body.HasMore {
		t.Errorf("body = %+v", body)
	}
}
