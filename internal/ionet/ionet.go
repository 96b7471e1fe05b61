// Package ionet adapts io.net GPU worker telemetry. The live tier talks to
// the structured REST API and requires an API key; without one every answer
// comes from the synthetic tier.
package ionet

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"resty.dev/v3"

	"github.com/IgorGanapolsky/ai-nodes-sub001/internal/adapter"
	"github.com/IgorGanapolsky/ai-nodes-sub001/internal/connector"
	"github.com/IgorGanapolsky/ai-nodes-sub001/internal/synth"
	"github.com/IgorGanapolsky/ai-nodes-sub001/internal/telemetry"
)

const network = "ionet"

// DefaultBaseURL is the production io.net API endpoint.
const DefaultBaseURL = "https://api.io.net/v1"

// deviceResponse is the io.net device summary.
type deviceResponse struct {
	DeviceID      string    `json:"device_id"`
	Status        string    `json:"status"` // up, down, paused
	UptimePercent float64   `json:"uptime_percent"`
	Utilization   float64   `json:"utilization"`
	Region        string    `json:"region"`
	Version       string    `json:"version"`
	LastSeen      time.Time `json:"last_seen"`
	HourlyPrice   float64   `json:"hourly_price"`
}

// earningsResponse is the io.net rewards summary for a device.
type earningsResponse struct {
	Total    float64            `json:"total"`
	Currency string             `json:"currency"`
	Rewards  map[string]float64 `json:"rewards"`
}

// metricsResponse is the io.net device utilization report.
type metricsResponse struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	DiskPercent   float64 `json:"disk_percent"`
	BandwidthMbps float64 `json:"bandwidth_mbps"`
	JobsServed    int64   `json:"jobs_served"`
	Utilization   float64 `json:"utilization"`
}

type userResponse struct {
	UserID      string   `json:"user_id"`
	Permissions []string `json:"permissions"`
}

// Adapter implements the network adapter contract for io.net.
type Adapter struct {
	*adapter.Base
	settings adapter.Settings
	client   *resty.Client
}

// New creates an uninitialized io.net adapter.
func New(settings adapter.Settings, logger *slog.Logger) *Adapter {
	if settings.BaseURL == "" {
		settings.BaseURL = DefaultBaseURL
	}

	a := &Adapter{settings: settings}
	a.client = connector.NewHTTPClient(settings.BaseURL, settings.Timeout).
		SetHeader("Authorization", "Bearer "+settings.APIKey)

	conn := connector.New(a.fetchLive, nil, a.synthesize, logger)
	a.Base = adapter.NewBase(network, settings.NodeIDs, conn, a.validateCredentials)
	return a
}

// Initialize readies the underlying connector.
func (a *Adapter) Initialize(ctx context.Context) error {
	return a.Connector().Initialize(adapter.BuildConfig(network, true, a.settings))
}

func (a *Adapter) fetchLive(ctx context.Context, req connector.Request) (any, error) {
	switch req.Method {
	case adapter.MethodStatus:
		return a.fetchStatus(ctx, req.Target)
	case adapter.MethodEarnings:
		return a.fetchEarnings(ctx, req.Target, telemetry.Period(req.Params["period"]))
	case adapter.MethodMetrics:
		return a.fetchMetrics(ctx, req.Target)
	case adapter.MethodPricing:
		return a.fetchPricing(ctx, req.Target, adapter.ParsePricingParams(req.Params))
	default:
		return nil, connector.NewValidationError(fmt.Sprintf("unsupported method %q", req.Method))
	}
}

func (a *Adapter) fetchStatus(ctx context.Context, deviceID string) (telemetry.NodeStatus, error) {
	device, err := a.fetchDevice(ctx, deviceID)
	if err != nil {
		return telemetry.NodeStatus{}, err
	}

	return telemetry.NodeStatus{
		NodeID:        deviceID,
		Online:        device.Status == "up",
		UptimePercent: device.UptimePercent,
		Utilization:   device.Utilization,
		Region:        device.Region,
		Version:       device.Version,
		LastSeen:      device.LastSeen,
	}, nil
}

func (a *Adapter) fetchDevice(ctx context.Context, deviceID string) (*deviceResponse, error) {
	var device deviceResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetPathParam("id", deviceID).
		SetResult(&device).
		Get("/devices/{id}")
	if err != nil {
		return nil, connector.NewTransientError(err)
	}
	if !resp.IsSuccess() {
		return nil, connector.ClassifyStatus(resp.StatusCode())
	}
	if device.Status == "" {
		return nil, connector.NewValidationError("device status missing from response")
	}
	return &device, nil
}

func (a *Adapter) fetchEarnings(ctx context.Context, deviceID string, period telemetry.Period) (telemetry.Earnings, error) {
	var result earningsResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetPathParam("id", deviceID).
		SetQueryParam("period", string(period)).
		SetResult(&result).
		Get("/devices/{id}/earnings")
	if err != nil {
		return telemetry.Earnings{}, connector.NewTransientError(err)
	}
	if !resp.IsSuccess() {
		return telemetry.Earnings{}, connector.ClassifyStatus(resp.StatusCode())
	}
	if result.Currency == "" {
		return telemetry.Earnings{}, connector.NewValidationError("earnings currency missing from response")
	}

	days := period.Days()
	return telemetry.Earnings{
		NodeID:           deviceID,
		Period:           period,
		Total:            result.Total,
		Currency:         result.Currency,
		Breakdown:        result.Rewards,
		ProjectedMonthly: result.Total / float64(days) * 30,
	}, nil
}

func (a *Adapter) fetchMetrics(ctx context.Context, deviceID string) (telemetry.NodeMetrics, error) {
	var result metricsResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetPathParam("id", deviceID).
		SetResult(&result).
		Get("/devices/{id}/metrics")
	if err != nil {
		return telemetry.NodeMetrics{}, connector.NewTransientError(err)
	}
	if !resp.IsSuccess() {
		return telemetry.NodeMetrics{}, connector.ClassifyStatus(resp.StatusCode())
	}

	return telemetry.NodeMetrics{
		NodeID:         deviceID,
		CPUPercent:     result.CPUPercent,
		MemoryPercent:  result.MemoryPercent,
		DiskPercent:    result.DiskPercent,
		BandwidthMbps:  result.BandwidthMbps,
		RequestsServed: result.JobsServed,
		Utilization:    result.Utilization,
		CollectedAt:    time.Now(),
	}, nil
}

// fetchPricing derives a recommendation from live device data. An empty
// deviceID averages the configured fleet.
func (a *Adapter) fetchPricing(ctx context.Context, deviceID string, params telemetry.PricingParams) (telemetry.PricingStrategy, error) {
	ids := []string{deviceID}
	if deviceID == "" {
		ids = a.settings.NodeIDs
		if len(ids) == 0 {
			return telemetry.PricingStrategy{}, connector.NewValidationError("no devices configured for fleet pricing")
		}
	}

	var price, utilization float64
	for _, id := range ids {
		device, err := a.fetchDevice(ctx, id)
		if err != nil {
			return telemetry.PricingStrategy{}, err
		}
		price += device.HourlyPrice
		utilization += device.Utilization
	}
	price /= float64(len(ids))
	utilization /= float64(len(ids))

	suggested, confidence, rationale := adapter.SuggestPrice(price, utilization, params)
	return telemetry.PricingStrategy{
		NodeID:              deviceID,
		CurrentPrice:        price,
		SuggestedPrice:      suggested,
		Currency:            "USD",
		ExpectedUtilization: utilization,
		Confidence:          confidence,
		Rationale:           rationale,
	}, nil
}

func (a *Adapter) validateCredentials(ctx context.Context) (telemetry.CredentialReport, error) {
	var user userResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetResult(&user).
		Get("/users/me")
	if err != nil {
		return telemetry.CredentialReport{}, connector.NewTransientError(err)
	}
	if !resp.IsSuccess() {
		return telemetry.CredentialReport{}, connector.ClassifyStatus(resp.StatusCode())
	}

	permissions := user.Permissions
	if len(permissions) == 0 {
		permissions = []string{"read"}
	}
	return telemetry.CredentialReport{Valid: true, Permissions: permissions}, nil
}

// synthesize is the terminal tier: deterministic per-device telemetry in
// io.net's shape.
func (a *Adapter) synthesize(req connector.Request) any {
	id := req.Target
	if id == "" {
		id = network + ":fleet"
	}

	switch req.Method {
	case adapter.MethodEarnings:
		return synthEarnings(id, telemetry.Period(req.Params["period"]))
	case adapter.MethodMetrics:
		return synthMetrics(id)
	case adapter.MethodPricing:
		return synthPricing(id, adapter.ParsePricingParams(req.Params))
	default:
		return synthStatus(id)
	}
}

func synthStatus(id string) telemetry.NodeStatus {
	lastSeenAgo := time.Duration(synth.IntValue(id, synth.MetricLastSeen, 1, 120)) * time.Minute
	return telemetry.NodeStatus{
		NodeID:        id,
		Online:        synth.Bool(id, synth.MetricOnline, 0.93),
		UptimePercent: synth.Value(id, synth.MetricUptime, 95, 100),
		Utilization:   synth.Value(id, synth.MetricUtilization, 0.30, 0.95),
		Region:        synth.Pick(id, synth.MetricRegion, []string{"us-east", "us-west", "eu-central", "ap-southeast"}),
		Version:       synth.Pick(id, synth.MetricVersion, []string{"0.2.8", "0.2.9", "0.3.0"}),
		LastSeen:      time.Now().Add(-lastSeenAgo),
	}
}

func synthEarnings(id string, period telemetry.Period) telemetry.Earnings {
	daily := synth.Value(id, synth.MetricEarningsBase, 4, 45)
	total := daily * float64(period.Days())
	computeShare := synth.Value(id, synth.MetricEarningsSplit, 0.6, 0.9)
	bonus := synth.Value(id, synth.MetricEarningsBonus, 0, 0.1) * total

	return telemetry.Earnings{
		NodeID:   id,
		Period:   period,
		Total:    total + bonus,
		Currency: "IO",
		Breakdown: map[string]float64{
			"compute":      total * computeShare,
			"uptime":       total * (1 - computeShare),
			"uptime_bonus": bonus,
		},
		ProjectedMonthly: daily * 30,
	}
}

func synthMetrics(id string) telemetry.NodeMetrics {
	return telemetry.NodeMetrics{
		NodeID:         id,
		CPUPercent:     synth.Value(id, synth.MetricCPU, 15, 90),
		MemoryPercent:  synth.Value(id, synth.MetricMemory, 25, 85),
		DiskPercent:    synth.Value(id, synth.MetricDisk, 10, 70),
		BandwidthMbps:  synth.Value(id, synth.MetricBandwidth, 100, 950),
		RequestsServed: synth.IntValue(id, synth.MetricRequests, 200, 40000),
		Utilization:    synth.Value(id, synth.MetricUtilization, 0.30, 0.95),
		CollectedAt:    time.Now(),
	}
}

func synthPricing(id string, params telemetry.PricingParams) telemetry.PricingStrategy {
	price := synth.Value(id, synth.MetricPrice, 0.15, 2.40)
	utilization := synth.Value(id, synth.MetricUtilization, 0.30, 0.95)

	suggested, confidence, rationale := adapter.SuggestPrice(price, utilization, params)
	return telemetry.PricingStrategy{
		NodeID:              id,
		CurrentPrice:        price,
		SuggestedPrice:      suggested,
		Currency:            "USD",
		ExpectedUtilization: utilization,
		Confidence:          confidence,
		Rationale:           rationale,
	}
}
