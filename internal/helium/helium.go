// Package helium adapts Helium IoT hotspot telemetry. The network exposes a
// public API, so the live tier works without a credential; the synthetic
// tier still covers outages.
package helium

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

const network = "helium"

// DefaultBaseURL is the public Helium blockchain API.
const DefaultBaseURL = "https://api.helium.io/v1"

type hotspotResponse struct {
	Data struct {
		Address     string  `json:"address"`
		Name        string  `json:"name"`
		RewardScale float64 `json:"reward_scale"`
		Status      struct {
			Online    string    `json:"online"` // "online" or "offline"
			Timestamp time.Time `json:"timestamp"`
		} `json:"status"`
		Geocode struct {
			ShortCountry string `json:"short_country"`
			ShortCity    string `json:"short_city"`
		} `json:"geocode"`
	} `json:"data"`
}

type rewardsResponse struct {
	Data struct {
		Total float64 `json:"total"`
		Sum   float64 `json:"sum"`
		Avg   float64 `json:"avg"`
	} `json:"data"`
}

type activityResponse struct {
	Data map[string]int64 `json:"data"`
}

// Adapter implements the network adapter contract for Helium hotspots.
type Adapter struct {
	*adapter.Base
	settings adapter.Settings
	client   *resty.Client
}

// New creates an uninitialized Helium adapter.
func New(settings adapter.Settings, logger *slog.Logger) *Adapter {
	if settings.BaseURL == "" {
		settings.BaseURL = DefaultBaseURL
	}

	a := &Adapter{settings: settings}
	a.client = connector.NewHTTPClient(settings.BaseURL, settings.Timeout)

	conn := connector.New(a.fetchLive, nil, a.synthesize, logger)
	// The public API needs no credential check.
	a.Base = adapter.NewBase(network, settings.NodeIDs, conn, nil)
	return a
}

// Initialize readies the underlying connector. Helium never requires a
// credential.
func (a *Adapter) Initialize(ctx context.Context) error {
	return a.Connector().Initialize(adapter.BuildConfig(network, false, a.settings))
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

func (a *Adapter) fetchHotspot(ctx context.Context, address string) (*hotspotResponse, error) {
	var hotspot hotspotResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetPathParam("address", address).
		SetResult(&hotspot).
		Get("/hotspots/{address}")
	if err != nil {
		return nil, connector.NewTransientError(err)
	}
	if !resp.IsSuccess() {
		return nil, connector.ClassifyStatus(resp.StatusCode())
	}
	if hotspot.Data.Address == "" {
		return nil, connector.NewValidationError("hotspot address missing from response")
	}
	return &hotspot, nil
}

func (a *Adapter) fetchStatus(ctx context.Context, address string) (telemetry.NodeStatus, error) {
	hotspot, err := a.fetchHotspot(ctx, address)
	if err != nil {
		return telemetry.NodeStatus{}, err
	}

	region := hotspot.Data.Geocode.ShortCity
	if hotspot.Data.Geocode.ShortCountry != "" {
		region = fmt.Sprintf("%s, %s", hotspot.Data.Geocode.ShortCity, hotspot.Data.Geocode.ShortCountry)
	}

	return telemetry.NodeStatus{
		NodeID: address,
		Online: hotspot.Data.Status.Online == "online",
		// Helium has no uptime figure; reward scale is the closest
		// public proxy for how much of the hotspot's capacity counts.
		Utilization: hotspot.Data.RewardScale,
		Region:      region,
		LastSeen:    hotspot.Data.Status.Timestamp,
	}, nil
}

func (a *Adapter) fetchRewards(ctx context.Context, address string, period telemetry.Period) (float64, error) {
	var rewards rewardsResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetPathParam("address", address).
		SetQueryParam("min_time", fmt.Sprintf("-%d day", period.Days())).
		SetResult(&rewards).
		Get("/hotspots/{address}/rewards/sum")
	if err != nil {
		return 0, connector.NewTransientError(err)
	}
	if !resp.IsSuccess() {
		return 0, connector.ClassifyStatus(resp.StatusCode())
	}
	return rewards.Data.Total, nil
}

func (a *Adapter) fetchEarnings(ctx context.Context, address string, period telemetry.Period) (telemetry.Earnings, error) {
	total, err := a.fetchRewards(ctx, address, period)
	if err != nil {
		return telemetry.Earnings{}, err
	}

	days := period.Days()
	return telemetry.Earnings{
		NodeID:           address,
		Period:           period,
		Total:            total,
		Currency:         "HNT",
		Breakdown:        map[string]float64{"proof_of_coverage": total},
		ProjectedMonthly: total / float64(days) * 30,
	}, nil
}

func (a *Adapter) fetchMetrics(ctx context.Context, address string) (telemetry.NodeMetrics, error) {
	var activity activityResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetPathParam("address", address).
		SetResult(&activity).
		Get("/hotspots/{address}/activity/count")
	if err != nil {
		return telemetry.NodeMetrics{}, connector.NewTransientError(err)
	}
	if !resp.IsSuccess() {
		return telemetry.NodeMetrics{}, connector.ClassifyStatus(resp.StatusCode())
	}

	var served int64
	for _, count := range activity.Data {
		served += count
	}

	hotspot, err := a.fetchHotspot(ctx, address)
	if err != nil {
		return telemetry.NodeMetrics{}, err
	}

	// A hotspot is a radio, not a server; packet activity and reward
	// scale are the only utilization signals the chain exposes.
	return telemetry.NodeMetrics{
		NodeID:         address,
		RequestsServed: served,
		Utilization:    hotspot.Data.RewardScale,
		CollectedAt:    time.Now(),
	}, nil
}

// fetchPricing treats the hotspot's observed daily reward rate as its
// current price and its reward scale as utilization.
func (a *Adapter) fetchPricing(ctx context.Context, address string, params telemetry.PricingParams) (telemetry.PricingStrategy, error) {
	ids := []string{address}
	if address == "" {
		ids = a.settings.NodeIDs
		if len(ids) == 0 {
			return telemetry.PricingStrategy{}, connector.NewValidationError("no hotspots configured for fleet pricing")
		}
	}

	var rate, utilization float64
	for _, id := range ids {
		daily, err := a.fetchRewards(ctx, id, telemetry.PeriodDaily)
		if err != nil {
			return telemetry.PricingStrategy{}, err
		}
		hotspot, err := a.fetchHotspot(ctx, id)
		if err != nil {
			return telemetry.PricingStrategy{}, err
		}
		rate += daily
		utilization += hotspot.Data.RewardScale
	}
	rate /= float64(len(ids))
	utilization /= float64(len(ids))

	suggested, confidence, rationale := adapter.SuggestPrice(rate, utilization, params)
	return telemetry.PricingStrategy{
		NodeID:              address,
		CurrentPrice:        rate,
		SuggestedPrice:      suggested,
		Currency:            "HNT",
		ExpectedUtilization: utilization,
		Confidence:          confidence,
		Rationale:           rationale,
	}, nil
}

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
	lastSeenAgo := time.Duration(synth.IntValue(id, synth.MetricLastSeen, 2, 240)) * time.Minute
	return telemetry.NodeStatus{
		NodeID:        id,
		Online:        synth.Bool(id, synth.MetricOnline, 0.9),
		UptimePercent: synth.Value(id, synth.MetricUptime, 90, 100),
		Utilization:   synth.Value(id, synth.MetricUtilization, 0.2, 1.0),
		Region:        synth.Pick(id, synth.MetricRegion, []string{"Austin, US", "Berlin, DE", "Seoul, KR", "Lisbon, PT"}),
		LastSeen:      time.Now().Add(-lastSeenAgo),
	}
}

func synthEarnings(id string, period telemetry.Period) telemetry.Earnings {
	daily := synth.Value(id, synth.MetricEarningsBase, 0.05, 1.8)
	total := daily * float64(period.Days())
	return telemetry.Earnings{
		NodeID:           id,
		Period:           period,
		Total:            total,
		Currency:         "HNT",
		Breakdown:        map[string]float64{"proof_of_coverage": total},
		ProjectedMonthly: daily * 30,
	}
}

func synthMetrics(id string) telemetry.NodeMetrics {
	return telemetry.NodeMetrics{
		NodeID:         id,
		RequestsServed: synth.IntValue(id, synth.MetricRequests, 20, 3000),
		Utilization:    synth.Value(id, synth.MetricUtilization, 0.2, 1.0),
		CollectedAt:    time.Now(),
	}
}

func synthPricing(id string, params telemetry.PricingParams) telemetry.PricingStrategy {
	rate := synth.Value(id, synth.MetricPrice, 0.05, 1.8)
	utilization := synth.Value(id, synth.MetricUtilization, 0.2, 1.0)

	suggested, confidence, rationale := adapter.SuggestPrice(rate, utilization, params)
	return telemetry.PricingStrategy{
		NodeID:              id,
		CurrentPrice:        rate,
		SuggestedPrice:      suggested,
		Currency:            "HNT",
		ExpectedUtilization: utilization,
		Confidence:          confidence,
		Rationale:           rationale,
	}
}
