package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func newContext(t *testing.T, query string) echo.Context {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments?"+query, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec)
}

func TestFromContext_Defaults(t *testing.T) {
	p := FromContext(newContext(t, ""))
	if p.Limit != DefaultLimit {
		t.Errorf("expected default limit %d, got %d", DefaultLimit, p.Limit)
	}
	if p.Offset != 0 {
		t.Errorf("expected offset 0, got %d", p.Offset)
	}
}

func TestFromContext_ExplicitParams(t *testing.T) {
	p := FromContext(newContext(t, "limit=50&offset=30"))
	if p.Limit != 50 {
		t.Errorf("expected limit 50, got %d", p.Limit)
	}
	if p.Offset != 30 {
		t.Errorf("expected offset 30, got %d", p.Offset)
	}
}

func TestFromContext_ClampsToMaxLimit(t *testing.T) {
	p := FromContext(newContext(t, "limit=10000"))
	if p.Limit != MaxLimit {
		t.Errorf("expected limit clamped to %d, got %d", MaxLimit, p.Limit)
	}
}

func TestFromContext_NegativeValues(t *testing.T) {
	p := FromContext(newContext(t, "limit=-5&offset=-10"))
	if p.Limit != DefaultLimit {
		t.Errorf("expected default limit for negative input, got %d", p.Limit)
	}
	if p.Offset != 0 {
		t.Errorf("expected offset 0 for negative input, got %d", p.Offset)
	}
}

func TestNewResponse_HasMore(t *testing.T) {
	tests := []struct {
		name    string
		total   int
		limit   int
		offset  int
		hasMore bool
	}{
		{"first page of many", 100, 20, 0, true},
		{"last page", 100, 20, 80, false},
		{"exact fit", 20, 20, 0, false},
		{"empty result", 0, 20, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := NewResponse(nil, tt.total, tt.limit, tt.offset)
			if resp.HasMore != tt.hasMore {
				t.Errorf("HasMore = %v, want %v", resp.HasMore, tt.hasMore)
			}
		})
	}
}

func TestParams_Offsets(t *testing.T) {
	p := Params{Limit: 20, Offset: 10}
	if got := p.NextOffset(); got != 30 {
		t.Errorf("NextOffset = %d, want 30", got)
	}
	if got := p.PreviousOffset(); got != 0 {
		t.Errorf("PreviousOffset = %d, want 0", got)
	}
	if !p.HasPrevious() {
		t.Error("expected HasPrevious to be true")
	}
	if !p.HasNext(100) {
		t.Error("expected HasNext(100) to be true")
	}
	if p.HasNext(25) {
		t.Error("expected HasNext(25) to be false")
	}
}
