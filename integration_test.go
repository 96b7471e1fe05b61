package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/IgorGanapolsky/ai-nodes-sub001/internal/adapter"
	"github.com/IgorGanapolsky/ai-nodes-sub001/internal/coordinator"
	"github.com/IgorGanapolsky/ai-nodes-sub001/internal/grass"
	"github.com/IgorGanapolsky/ai-nodes-sub001/internal/helium"
	"github.com/IgorGanapolsky/ai-nodes-sub001/internal/ionet"
	"github.com/IgorGanapolsky/ai-nodes-sub001/internal/telemetry"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestIntegration_AllNetworks runs a full collection pass across all three
// networks against mock HTTP servers.
func TestIntegration_AllNetworks(t *testing.T) {
	ionetServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/earnings"):
			w.Write([]byte(`{"total": 42.5, "currency": "IO", "rewards": {"compute": 40.0, "uptime": 2.5}}`))
		case strings.HasSuffix(r.URL.Path, "/metrics"):
			w.Write([]byte(`{"cpu_percent": 55.0, "utilization": 0.8, "jobs_served": 1200}`))
		default:
			w.Write([]byte(`{"device_id": "gpu-1", "status": "up", "uptime_percent": 99.1, "utilization": 0.8, "region": "us-east"}`))
		}
	}))
	defer ionetServer.Close()

	heliumServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/rewards/sum"):
			w.Write([]byte(`{"data": {"total": 1.25, "sum": 1.25, "avg": 0.05}}`))
		case strings.HasSuffix(r.URL.Path, "/activity/count"):
			w.Write([]byte(`{"data": {"poc_receipts": 120, "rewards": 24}}`))
		default:
			w.Write([]byte(`{"data": {"address": "hotspot-1", "name": "tall-crimson-fox", "reward_scale": 0.9, "status": {"online": "online"}, "geocode": {"short_country": "US", "short_city": "Austin"}}}`))
		}
	}))
	defer heliumServer.Close()

	grassServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if strings.HasSuffix(r.URL.Path, "/earnings") {
			w.Write([]byte(`{"points": 88.0, "referral_points": 12.0}`))
			return
		}
		w.Write([]byte(`{"node_id": "node-1", "connected": true, "uptime_percent": 97.0, "throughput_mbps": 42.0, "score": 85.0, "country": "US"}`))
	}))
	defer grassServer.Close()

	adapters := []adapter.Adapter{
		ionet.New(adapter.Settings{
			APIKey:  "test_ionet_key",
			BaseURL: ionetServer.URL,
			NodeIDs: []string{"gpu-1", "gpu-2"},
		}, discardLogger()),
		helium.New(adapter.Settings{
			BaseURL: heliumServer.URL,
			NodeIDs: []string{"hotspot-1"},
		}, discardLogger()),
		grass.New(adapter.Settings{
			APIKey:  "test_grass_key",
			BaseURL: grassServer.URL,
			NodeIDs: []string{"node-1"},
		}, discardLogger()),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, a := range adapters {
		if err := a.Initialize(ctx); err != nil {
			t.Fatalf("Initialize(%s) failed: %v", a.Network(), err)
		}
		defer a.Dispose()
	}

	coord := coordinator.New(adapters, discardLogger())
	snapshots, err := coord.Collect(ctx, telemetry.PeriodDaily)
	if err != nil {
		t.Fatalf("Collect() failed: %v", err)
	}

	if len(snapshots) != 4 {
		t.Fatalf("expected 4 snapshots, got %d", len(snapshots))
	}

	byNode := make(map[string]coordinator.Snapshot)
	for _, snap := range snapshots {
		if snap.Err != nil {
			t.Fatalf("snapshot %s/%s carries error: %v", snap.Network, snap.NodeID, snap.Err)
		}
		if snap.Earnings.Source != telemetry.TierLive {
			t.Errorf("%s/%s earnings tier = %q, want live", snap.Network, snap.NodeID, snap.Earnings.Source)
		}
		byNode[snap.Network+"/"+snap.NodeID] = snap
	}

	if got := byNode["ionet/gpu-1"].Earnings.Total; got != 42.5 {
		t.Errorf("ionet earnings total = %v, want 42.5", got)
	}
	if got := byNode["helium/hotspot-1"].Earnings.Currency; got != "HNT" {
		t.Errorf("helium earnings currency = %q, want HNT", got)
	}
	if got := byNode["grass/node-1"].Earnings.Total; got != 100.0 {
		t.Errorf("grass earnings total = %v, want 100", got)
	}
	if !byNode["helium/hotspot-1"].Status.Online {
		t.Error("helium hotspot should report online")
	}
}

// TestIntegration_ConcurrentCollection verifies adapters are queried in
// parallel rather than one after another.
func TestIntegration_ConcurrentCollection(t *testing.T) {
	slowServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/rewards/sum"):
			w.Write([]byte(`{"data": {"total": 0.5}}`))
		case strings.HasSuffix(r.URL.Path, "/activity/count"):
			w.Write([]byte(`{"data": {}}`))
		default:
			w.Write([]byte(`{"data": {"address": "h", "reward_scale": 0.7, "status": {"online": "online"}}}`))
		}
	}))
	defer slowServer.Close()

	// Three single-node helium adapters, each paying ~400ms of latency
	// for its node (status + rewards + activity + hotspot).
	var adapters []adapter.Adapter
	for _, id := range []string{"h", "h", "h"} {
		a := helium.New(adapter.Settings{
			BaseURL:           slowServer.URL,
			NodeIDs:           []string{id},
			RateLimitRequests: 100,
		}, discardLogger())
		if err := a.Initialize(context.Background()); err != nil {
			t.Fatalf("Initialize failed: %v", err)
		}
		defer a.Dispose()
		adapters = append(adapters, a)
	}

	coord := coordinator.New(adapters, discardLogger())

	start := time.Now()
	if _, err := coord.Collect(context.Background(), telemetry.PeriodDaily); err != nil {
		t.Fatalf("Collect() failed: %v", err)
	}
	duration := time.Since(start)

	// Sequential would take ~1.2s; concurrent should stay near one
	// adapter's worth of latency.
	if duration > 900*time.Millisecond {
		t.Errorf("adapters likely ran sequentially, pass took %v", duration)
	}
}

// TestIntegration_SyntheticFallback drives a network whose API is down and
// verifies the pass still completes on synthesized data.
func TestIntegration_SyntheticFallback(t *testing.T) {
	var calls atomic.Int64
	downServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer downServer.Close()

	a := ionet.New(adapter.Settings{
		APIKey:            "test_key",
		BaseURL:           downServer.URL,
		NodeIDs:           []string{"gpu-1"},
		RetryAttempts:     2,
		RetryBaseDelay:    time.Millisecond,
		RateLimitRequests: 100,
	}, discardLogger())
	if err := a.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer a.Dispose()

	coord := coordinator.New([]adapter.Adapter{a}, discardLogger())
	snapshots, err := coord.Collect(context.Background(), telemetry.PeriodDaily)
	if err != nil {
		t.Fatalf("Collect() failed: %v", err)
	}

	if len(snapshots) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(snapshots))
	}
	snap := snapshots[0]
	if snap.Err != nil {
		t.Fatalf("snapshot should not carry an error, got %v", snap.Err)
	}
	if snap.Earnings.Source != telemetry.TierSynthetic {
		t.Errorf("earnings tier = %q, want synthetic", snap.Earnings.Source)
	}
	if snap.Earnings.Total <= 0 {
		t.Errorf("synthetic earnings total = %v, want > 0", snap.Earnings.Total)
	}
	if calls.Load() == 0 {
		t.Error("live tier was never attempted")
	}
}

// TestIntegration_ScrapedFallback drives Grass with a dead API but a
// reachable dashboard and verifies answers come from the scraped tier.
func TestIntegration_ScrapedFallback(t *testing.T) {
	downServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer downServer.Close()

	dashboard := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body>
			<div id="earnings-today">95.5 points</div>
			<div id="uptime">98.2%</div>
			<div id="bandwidth">37.4</div>
			<div id="network-score">91</div>
		</body></html>`))
	}))
	defer dashboard.Close()

	a := grass.New(adapter.Settings{
		APIKey:            "test_key",
		BaseURL:           downServer.URL,
		NodeIDs:           []string{"node-1"},
		RetryAttempts:     2,
		RetryBaseDelay:    time.Millisecond,
		RateLimitRequests: 100,
		ScrapeEnabled:     true,
		ScrapeTimeout:     2 * time.Second,
		DashboardURL:      dashboard.URL,
	}, discardLogger())
	if err := a.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer a.Dispose()

	ctx := context.Background()
	earnings, err := a.Earnings(ctx, telemetry.PeriodDaily, "node-1")
	if err != nil {
		t.Fatalf("Earnings() failed: %v", err)
	}
	if earnings.Source != telemetry.TierScraped {
		t.Errorf("earnings tier = %q, want scraped", earnings.Source)
	}
	if earnings.Total != 95.5 {
		t.Errorf("earnings total = %v, want 95.5", earnings.Total)
	}

	statuses, err := a.NodeStatus(ctx, "node-1")
	if err != nil {
		t.Fatalf("NodeStatus() failed: %v", err)
	}
	if len(statuses) != 1 || statuses[0].Source != telemetry.TierScraped {
		t.Errorf("status tier = %v, want one scraped record", statuses)
	}
	if statuses[0].UptimePercent != 98.2 {
		t.Errorf("scraped uptime = %v, want 98.2", statuses[0].UptimePercent)
	}
}

// TestIntegration_NoCredential verifies a credential-gated network never
// touches its API without a key and still answers every question.
func TestIntegration_NoCredential(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	a := ionet.New(adapter.Settings{
		BaseURL: server.URL,
		NodeIDs: []string{"gpu-1"},
	}, discardLogger())
	if err := a.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer a.Dispose()

	coord := coordinator.New([]adapter.Adapter{a}, discardLogger())
	snapshots, err := coord.Collect(context.Background(), telemetry.PeriodDaily)
	if err != nil {
		t.Fatalf("Collect() failed: %v", err)
	}
	if len(snapshots) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(snapshots))
	}
	if snapshots[0].Earnings.Source != telemetry.TierSynthetic {
		t.Errorf("earnings tier = %q, want synthetic", snapshots[0].Earnings.Source)
	}
	if calls.Load() != 0 {
		t.Errorf("API received %d calls despite missing credential", calls.Load())
	}

	report, err := a.ValidateCredentials(context.Background())
	if err != nil {
		t.Fatalf("ValidateCredentials() failed: %v", err)
	}
	if report.Valid {
		t.Error("credential report should be invalid without a key")
	}
}

// TestIntegration_ContextTimeout verifies a hung upstream cannot stall a
// collection pass past its deadline.
func TestIntegration_ContextTimeout(t *testing.T) {
	hangingServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer hangingServer.Close()

	a := ionet.New(adapter.Settings{
		APIKey:            "test_key",
		BaseURL:           hangingServer.URL,
		NodeIDs:           []string{"gpu-1"},
		Timeout:           5 * time.Second,
		RetryAttempts:     1,
		RateLimitRequests: 100,
	}, discardLogger())
	if err := a.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer a.Dispose()

	coord := coordinator.New([]adapter.Adapter{a}, discardLogger())
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	snapshots, err := coord.Collect(ctx, telemetry.PeriodDaily)
	duration := time.Since(start)

	if err != nil {
		t.Fatalf("Collect() failed: %v", err)
	}
	if duration > time.Second {
		t.Errorf("pass ignored its deadline, took %v", duration)
	}
	// Once the context is gone even the synthetic tier is off the table,
	// so whatever arrived must carry errors rather than fabricated data.
	for _, snap := range snapshots {
		if snap.Err == nil && snap.Earnings.Source == telemetry.TierLive {
			t.Errorf("live data reported from a hung server: %+v", snap)
		}
	}
}
