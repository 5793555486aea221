package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func contextWithQuery(q string) echo.Context {
	e := echo.New()
	return e.NewContext(httptest.NewRequest(http.MethodGet, "/?"+q, nil), httptest.NewRecorder())
}

func TestFromContext(t *testing.T) {
	tests := []struct {
		query  string
		limit  int
		offset int
	}{
		{"", DefaultLimit, 0},
		{"limit=10&offset=30", 10, 30},
		{"limit=500", MaxLimit, 0},
		{"limit=-1&offset=-5", DefaultLimit, 0},
		{"limit=5&skip=15", 5, 15},
		{"limit=abc", DefaultLimit, 0},
	}
	for _, tt := range tests {
		p := FromContext(contextWithQuery(tt.query))
		if p.Limit != tt.limit || p.Offset != tt.offset {
			t.Errorf("FromContext(%q) = %+v, want limit=%d offset=%d", tt.query, p, tt.limit, tt.offset)
		}
	}
}

func TestNewResponse_HasMore(t *testing.T) {
	r := NewResponse([]string{"a"}, 25, New(10, 10))
	if !r.HasMore {
		t.Error("expected more results")
	}
	r = NewResponse([]string{"a"}, 20, New(10, 10))
	if r.HasMore {
		t.Error("expected last page")
	}
}

func TestWindow(t *testing.T) {
	tests := []struct {
		p          Params
		n          int
		start, end int
	}{
		{New(10, 0), 5, 0, 5},
		{New(2, 2), 5, 2, 4},
		{New(10, 20), 5, 5, 5},
	}
	for _, tt := range tests {
		s, e := tt.p.Window(tt.n)
		if s != tt.start || e != tt.end {
			t.Errorf("%+v.Window(%d) = %d,%d want %d,%d", tt.p, tt.n, s, e, tt.start, tt.end)
		}
	}
}
