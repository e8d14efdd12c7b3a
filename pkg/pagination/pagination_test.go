package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func paramsFor(t *testing.T, query string) Params {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?"+query, nil)
	rec := httptest.NewRecorder()
	return FromContext(e.NewContext(req, rec))
}

func TestFromContext(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantLimit  int
		wantOffset int
	}{
		{"defaults", "", DefaultLimit, 0},
		{"explicit", "limit=20&offset=40", 20, 40},
		{"zero limit", "limit=0", DefaultLimit, 0},
		{"negative offset", "offset=-5", DefaultLimit, 0},
		{"limit clamped", "limit=9999", MaxLimit, 0},
		{"garbage", "limit=abc&offset=xyz", DefaultLimit, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := paramsFor(t, tt.query)
			if p.Limit != tt.wantLimit || p.Offset != tt.wantOffset {
				t.Errorf("params = %+v, want limit=%d offset=%d", p, tt.wantLimit, tt.wantOffset)
			}
		})
	}
}

func TestNewResponse_HasMore(t *testing.T) {
	if r := NewResponse(nil, 100, 50, 0); !r.HasMore {
		t.Error("first page of 100 should have more")
	}
	if r := NewResponse(nil, 100, 50, 50); r.HasMore {
		t.Error("last page should not have more")
	}
	if r := NewResponse(nil, 0, 50, 0); r.HasMore {
		t.Error("empty set should not have more")
	}
}
