package helium

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/IgorGanapolsky/ai-nodes-sub001/internal/adapter"
	"github.com/IgorGanapolsky/ai-nodes-sub001/internal/telemetry"
)

const hotspotJSON = `{
	"data": {
		"address": "112qB3YaH5bZkCnKA5uRH7tBtGNv2Y5B4smv1jsmvGUzgKT71QpE",
		"name": "tall-crimson-fox",
		"reward_scale": 0.85,
		"status": {"online": "online", "timestamp": "2026-08-30T12:00:00Z"},
		"geocode": {"short_country": "US", "short_city": "Austin"}
	}
}`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestAdapter(t *testing.T, serverURL string, nodeIDs ...string) *Adapter {
	t.Helper()
	a := New(adapter.Settings{
		BaseURL:           serverURL,
		NodeIDs:           nodeIDs,
		RetryAttempts:     1,
		RetryBaseDelay:    time.Millisecond,
		RateLimitRequests: 1000,
	}, testLogger())
	if err := a.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() failed: %v", err)
	}
	t.Cleanup(a.Dispose)
	return a
}

func TestNodeStatusMapping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/hotspots/") {
			t.Errorf("path = %q, want /hotspots/...", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(hotspotJSON))
	}))
	defer server.Close()

	a := newTestAdapter(t, server.URL, "hotspot-1")
	statuses, err := a.NodeStatus(context.Background(), "hotspot-1")
	if err != nil {
		t.Fatalf("NodeStatus() failed: %v", err)
	}

	status := statuses[0]
	if !status.Online {
		t.Error("online hotspot should map to online")
	}
	if status.Utilization != 0.85 {
		t.Errorf("Utilization = %v, want reward scale 0.85", status.Utilization)
	}
	if status.Region != "Austin, US" {
		t.Errorf("Region = %q, want Austin, US", status.Region)
	}
	if status.LastSeen.IsZero() {
		t.Error("LastSeen should come from the status timestamp")
	}
	if status.Network != "helium" || status.Source != telemetry.TierLive {
		t.Errorf("stamped %q/%q, want helium/live", status.Network, status.Source)
	}
}

func TestOfflineHotspot(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data": {"address": "abc", "reward_scale": 0.3, "status": {"online": "offline"}}}`))
	}))
	defer server.Close()

	a := newTestAdapter(t, server.URL, "abc")
	statuses, err := a.NodeStatus(context.Background(), "abc")
	if err != nil {
		t.Fatalf("NodeStatus() failed: %v", err)
	}
	if statuses[0].Online {
		t.Error("offline hotspot should map to offline")
	}
}

func TestEarningsMapping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/rewards/sum") {
			t.Errorf("path = %q, want .../rewards/sum", r.URL.Path)
		}
		if got := r.URL.Query().Get("min_time"); got != "-30 day" {
			t.Errorf("min_time = %q, want -30 day", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data": {"total": 6.0, "sum": 6.0, "avg": 0.2}}`))
	}))
	defer server.Close()

	a := newTestAdapter(t, server.URL, "hotspot-1")
	earnings, err := a.Earnings(context.Background(), telemetry.PeriodMonthly, "hotspot-1")
	if err != nil {
		t.Fatalf("Earnings() failed: %v", err)
	}
	if earnings.Total != 6.0 {
		t.Errorf("Total = %v, want 6", earnings.Total)
	}
	if earnings.Currency != "HNT" {
		t.Errorf("Currency = %q, want HNT", earnings.Currency)
	}
	if earnings.Breakdown["proof_of_coverage"] != 6.0 {
		t.Errorf("Breakdown = %v, want proof_of_coverage 6", earnings.Breakdown)
	}
	if earnings.ProjectedMonthly != 6.0 {
		t.Errorf("ProjectedMonthly = %v, want 6 for a monthly period", earnings.ProjectedMonthly)
	}
}

func TestMetricsSumsActivity(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if strings.HasSuffix(r.URL.Path, "/activity/count") {
			w.Write([]byte(`{"data": {"poc_receipts_v1": 140, "rewards_v2": 60, "state_channel_close_v1": 25}}`))
			return
		}
		w.Write([]byte(hotspotJSON))
	}))
	defer server.Close()

	a := newTestAdapter(t, server.URL, "hotspot-1")
	metrics, err := a.Metrics(context.Background(), "hotspot-1")
	if err != nil {
		t.Fatalf("Metrics() failed: %v", err)
	}
	m := metrics[0]
	if m.RequestsServed != 225 {
		t.Errorf("RequestsServed = %v, want summed activity 225", m.RequestsServed)
	}
	if m.Utilization != 0.85 {
		t.Errorf("Utilization = %v, want reward scale 0.85", m.Utilization)
	}
}

func TestOptimizePricingUsesDailyRewardRate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if strings.HasSuffix(r.URL.Path, "/rewards/sum") {
			w.Write([]byte(`{"data": {"total": 0.4}}`))
			return
		}
		w.Write([]byte(hotspotJSON))
	}))
	defer server.Close()

	a := newTestAdapter(t, server.URL, "hotspot-1")
	strategy, err := a.OptimizePricing(context.Background(), telemetry.PricingParams{TargetUtilization: 0.85}, "hotspot-1")
	if err != nil {
		t.Fatalf("OptimizePricing() failed: %v", err)
	}
	if strategy.CurrentPrice != 0.4 {
		t.Errorf("CurrentPrice = %v, want daily reward rate 0.4", strategy.CurrentPrice)
	}
	if strategy.SuggestedPrice != 0.4 {
		t.Errorf("SuggestedPrice = %v, want 0.4 at target utilization", strategy.SuggestedPrice)
	}
	if strategy.Currency != "HNT" {
		t.Errorf("Currency = %q, want HNT", strategy.Currency)
	}
}

func TestValidateCredentialsWithoutValidator(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("public API check should not call the upstream")
	}))
	defer server.Close()

	a := newTestAdapter(t, server.URL, "hotspot-1")
	report, err := a.ValidateCredentials(context.Background())
	if err != nil {
		t.Fatalf("ValidateCredentials() failed: %v", err)
	}
	if !report.Valid {
		t.Error("a public API needs no credential and should report valid")
	}
	if len(report.Limitations) == 0 {
		t.Error("report should note that no credential check exists")
	}
}

func TestFallsBackToSynthetic(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	a := newTestAdapter(t, server.URL, "hotspot-1")
	earnings, err := a.Earnings(context.Background(), telemetry.PeriodDaily, "hotspot-1")
	if err != nil {
		t.Fatalf("Earnings() failed: %v", err)
	}
	if earnings.Source != telemetry.TierSynthetic {
		t.Errorf("Source = %q, want synthetic", earnings.Source)
	}
	if earnings.Currency != "HNT" {
		t.Errorf("Currency = %q, want HNT even when synthesized", earnings.Currency)
	}
	if earnings.Total <= 0 {
		t.Errorf("Total = %v, want > 0", earnings.Total)
	}
}

func TestSyntheticDeterminism(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	a := newTestAdapter(t, server.URL, "hotspot-1")
	first, err := a.Metrics(context.Background(), "hotspot-1")
	if err != nil {
		t.Fatalf("Metrics() failed: %v", err)
	}
	second, err := a.Metrics(context.Background(), "hotspot-1")
	if err != nil {
		t.Fatalf("Metrics() failed: %v", err)
	}
	if first[0].Utilization != second[0].Utilization {
		t.Errorf("synthetic utilization differs across calls: %v vs %v", first[0].Utilization, second[0].Utilization)
	}
	if first[0].RequestsServed != second[0].RequestsServed {
		t.Errorf("synthetic activity differs across calls: %v vs %v", first[0].RequestsServed, second[0].RequestsServed)
	}
}
