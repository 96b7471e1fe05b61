package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/net/html"
)

const dashboardPage = `<!DOCTYPE html>
<html>
<body>
  <div class="header">Node Dashboard</div>
  <div id="earnings-today">
    <span class="label">Today</span>
    <span class="value">$12.47</span>
  </div>
  <div id="uptime" class="stat big">99.2%</div>
  <div class="stat network-score">1,234.5 pts</div>
</body>
</html>`

func parse(t *testing.T, s string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return doc
}

func TestDocument(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(dashboardPage))
	}))
	defer server.Close()

	s := New(time.Second, false)
	defer s.Close()

	doc, err := s.Document(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Document error: %v", err)
	}
	if FindByID(doc, "earnings-today") == nil {
		t.Error("fetched document missing expected element")
	}
}

func TestDocument_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	s := New(time.Second, false)
	defer s.Close()

	if _, err := s.Document(context.Background(), server.URL); err == nil {
		t.Error("Document returned nil error for HTTP 503")
	}
}

func TestDocument_Unreachable(t *testing.T) {
	s := New(200*time.Millisecond, false)
	defer s.Close()

	if _, err := s.Document(context.Background(), "http://127.0.0.1:1"); err == nil {
		t.Error("Document returned nil error for unreachable host")
	}
}

func TestFindByID(t *testing.T) {
	doc := parse(t, dashboardPage)

	n := FindByID(doc, "uptime")
	if n == nil {
		t.Fatal("FindByID(uptime) = nil")
	}
	if got := Text(n); got != "99.2%" {
		t.Errorf("Text = %q, want 99.2%%", got)
	}

	if FindByID(doc, "absent") != nil {
		t.Error("FindByID found a nonexistent id")
	}
}

func TestFindByClass(t *testing.T) {
	doc := parse(t, dashboardPage)

	n := FindByClass(doc, "network-score")
	if n == nil {
		t.Fatal("FindByClass(network-score) = nil")
	}
	if got := Text(n); got != "1,234.5 pts" {
		t.Errorf("Text = %q", got)
	}

	// Multi-class attributes match on any one class.
	if FindByClass(doc, "big") == nil {
		t.Error("FindByClass did not match within a multi-class attribute")
	}

	if FindByClass(doc, "absent") != nil {
		t.Error("FindByClass found a nonexistent class")
	}
}

func TestText_Nested(t *testing.T) {
	doc := parse(t, dashboardPage)
	n := FindByID(doc, "earnings-today")
	if got := Text(n); got != "Today $12.47" {
		t.Errorf("Text = %q, want collapsed nested text", got)
	}
	if got := Text(nil); got != "" {
		t.Errorf("Text(nil) = %q", got)
	}
}

func TestNumber(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"$12.47", 12.47, false},
		{"99.2%", 99.2, false},
		{"1,234.5 pts", 1234.5, false},
		{"$1,234,567.89 / day", 1234567.89, false},
		{"-3.5", -3.5, false},
		{"42", 42, false},
		{"Earnings: 7.25 USD", 7.25, false},
		{"no digits here", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Number(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Number(%q) = %v, want error", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Number(%q) error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("Number(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
