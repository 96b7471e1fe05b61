// Package grass adapts Grass bandwidth-sharing node telemetry. Grass has no
// stable public API: the live tier works only with a (rarely issued) API
// key, so the scraped dashboard is the practical source and synthesis the
// terminal one.
package grass

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"resty.dev/v3"

	"github.com/IgorGanapolsky/ai-nodes-sub001/internal/adapter"
	"github.com/IgorGanapolsky/ai-nodes-sub001/internal/connector"
	"github.com/IgorGanapolsky/ai-nodes-sub001/internal/scrape"
	"github.com/IgorGanapolsky/ai-nodes-sub001/internal/synth"
	"github.com/IgorGanapolsky/ai-nodes-sub001/internal/telemetry"
)

const network = "grass"

// DefaultBaseURL is the Grass API endpoint used by the live tier.
const DefaultBaseURL = "https://api.getgrass.io/v1"

// Element ids the dashboard scrape relies on. A dashboard redesign breaks
// these, which is exactly what the synthetic tier is for.
const (
	idEarningsToday = "earnings-today"
	idUptime        = "uptime"
	idBandwidth     = "bandwidth"
	idNetworkScore  = "network-score"
)

type nodeResponse struct {
	NodeID        string  `json:"node_id"`
	Connected     bool    `json:"connected"`
	UptimePercent float64 `json:"uptime_percent"`
	Throughput    float64 `json:"throughput_mbps"`
	Score         float64 `json:"score"` // 0..100 network quality score
	Country       string  `json:"country"`
}

type nodeEarningsResponse struct {
	Points   float64 `json:"points"`
	Referral float64 `json:"referral_points"`
}

// Adapter implements the network adapter contract for Grass.
type Adapter struct {
	*adapter.Base
	settings adapter.Settings
	client   *resty.Client
	scraper  *scrape.Scraper
}

// New creates an uninitialized Grass adapter.
func New(settings adapter.Settings, logger *slog.Logger) *Adapter {
	if settings.BaseURL == "" {
		settings.BaseURL = DefaultBaseURL
	}

	a := &Adapter{settings: settings}
	a.client = connector.NewHTTPClient(settings.BaseURL, settings.Timeout).
		SetHeader("X-API-Key", settings.APIKey)
	a.scraper = scrape.New(settings.ScrapeTimeout, settings.ScrapeHeadless)

	conn := connector.New(a.fetchLive, a.fetchScraped, a.synthesize, logger)
	a.Base = adapter.NewBase(network, settings.NodeIDs, conn, a.validateCredentials)
	return a
}

// Initialize readies the underlying connector. The live tier requires an
// API key; without one Grass serves synthetic data only.
func (a *Adapter) Initialize(ctx context.Context) error {
	return a.Connector().Initialize(adapter.BuildConfig(network, true, a.settings))
}

// Dispose releases the connector and the scraper's HTTP client.
func (a *Adapter) Dispose() {
	a.Base.Dispose()
	a.scraper.Close()
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

func (a *Adapter) fetchNode(ctx context.Context, nodeID string) (*nodeResponse, error) {
	var node nodeResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetPathParam("id", nodeID).
		SetResult(&node).
		Get("/nodes/{id}")
	if err != nil {
		return nil, connector.NewTransientError(err)
	}
	if !resp.IsSuccess() {
		return nil, connector.ClassifyStatus(resp.StatusCode())
	}
	if node.NodeID == "" {
		return nil, connector.NewValidationError("node id missing from response")
	}
	return &node, nil
}

func (a *Adapter) fetchStatus(ctx context.Context, nodeID string) (telemetry.NodeStatus, error) {
	node, err := a.fetchNode(ctx, nodeID)
	if err != nil {
		return telemetry.NodeStatus{}, err
	}

	return telemetry.NodeStatus{
		NodeID:        nodeID,
		Online:        node.Connected,
		UptimePercent: node.UptimePercent,
		Utilization:   node.Score / 100,
		Region:        node.Country,
		LastSeen:      time.Now(),
	}, nil
}

func (a *Adapter) fetchEarnings(ctx context.Context, nodeID string, period telemetry.Period) (telemetry.Earnings, error) {
	var result nodeEarningsResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetPathParam("id", nodeID).
		SetQueryParam("period", string(period)).
		SetResult(&result).
		Get("/nodes/{id}/earnings")
	if err != nil {
		return telemetry.Earnings{}, connector.NewTransientError(err)
	}
	if !resp.IsSuccess() {
		return telemetry.Earnings{}, connector.ClassifyStatus(resp.StatusCode())
	}

	days := period.Days()
	total := result.Points + result.Referral
	return telemetry.Earnings{
		NodeID:   nodeID,
		Period:   period,
		Total:    total,
		Currency: "GRASS",
		Breakdown: map[string]float64{
			"bandwidth": result.Points,
			"referral":  result.Referral,
		},
		ProjectedMonthly: total / float64(days) * 30,
	}, nil
}

func (a *Adapter) fetchMetrics(ctx context.Context, nodeID string) (telemetry.NodeMetrics, error) {
	node, err := a.fetchNode(ctx, nodeID)
	if err != nil {
		return telemetry.NodeMetrics{}, err
	}

	return telemetry.NodeMetrics{
		NodeID:        nodeID,
		BandwidthMbps: node.Throughput,
		Utilization:   node.Score / 100,
		CollectedAt:   time.Now(),
	}, nil
}

func (a *Adapter) fetchPricing(ctx context.Context, nodeID string, params telemetry.PricingParams) (telemetry.PricingStrategy, error) {
	ids := []string{nodeID}
	if nodeID == "" {
		ids = a.settings.NodeIDs
		if len(ids) == 0 {
			return telemetry.PricingStrategy{}, connector.NewValidationError("no nodes configured for fleet pricing")
		}
	}

	var utilization float64
	for _, id := range ids {
		node, err := a.fetchNode(ctx, id)
		if err != nil {
			return telemetry.PricingStrategy{}, err
		}
		utilization += node.Score / 100
	}
	utilization /= float64(len(ids))

	// Grass pays per shared gigabyte; the point rate stands in for price.
	const pointRate = 1.0
	suggested, confidence, rationale := adapter.SuggestPrice(pointRate, utilization, params)
	return telemetry.PricingStrategy{
		NodeID:              nodeID,
		CurrentPrice:        pointRate,
		SuggestedPrice:      suggested,
		Currency:            "GRASS",
		ExpectedUtilization: utilization,
		Confidence:          confidence,
		Rationale:           rationale,
	}, nil
}

// fetchScraped extracts account-level figures from the operator dashboard.
// The dashboard has no per-node breakdown, so every target receives the
// account aggregate, tagged as scraped.
func (a *Adapter) fetchScraped(ctx context.Context, req connector.Request) (any, error) {
	if a.settings.DashboardURL == "" {
		return nil, errors.New("no dashboard URL configured")
	}

	doc, err := a.scraper.Document(ctx, a.settings.DashboardURL)
	if err != nil {
		return nil, err
	}

	switch req.Method {
	case adapter.MethodStatus:
		uptime, err := scrapedNumber(doc, idUptime)
		if err != nil {
			return nil, err
		}
		utilization, err := scrapedNumber(doc, idNetworkScore)
		if err != nil {
			return nil, err
		}
		return telemetry.NodeStatus{
			NodeID:        req.Target,
			Online:        uptime > 0,
			UptimePercent: uptime,
			Utilization:   utilization / 100,
			LastSeen:      time.Now(),
		}, nil

	case adapter.MethodEarnings:
		daily, err := scrapedNumber(doc, idEarningsToday)
		if err != nil {
			return nil, err
		}
		period := telemetry.Period(req.Params["period"])
		total := daily * float64(period.Days())
		return telemetry.Earnings{
			NodeID:           req.Target,
			Period:           period,
			Total:            total,
			Currency:         "GRASS",
			Breakdown:        map[string]float64{"bandwidth": total},
			ProjectedMonthly: daily * 30,
		}, nil

	case adapter.MethodMetrics:
		bandwidth, err := scrapedNumber(doc, idBandwidth)
		if err != nil {
			return nil, err
		}
		utilization, err := scrapedNumber(doc, idNetworkScore)
		if err != nil {
			return nil, err
		}
		return telemetry.NodeMetrics{
			NodeID:        req.Target,
			BandwidthMbps: bandwidth,
			Utilization:   utilization / 100,
			CollectedAt:   time.Now(),
		}, nil

	case adapter.MethodPricing:
		utilization, err := scrapedNumber(doc, idNetworkScore)
		if err != nil {
			return nil, err
		}
		suggested, confidence, rationale := adapter.SuggestPrice(1.0, utilization/100, adapter.ParsePricingParams(req.Params))
		return telemetry.PricingStrategy{
			NodeID:              req.Target,
			CurrentPrice:        1.0,
			SuggestedPrice:      suggested,
			Currency:            "GRASS",
			ExpectedUtilization: utilization / 100,
			Confidence:          confidence,
			Rationale:           rationale,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported method %q", req.Method)
	}
}

func scrapedNumber(doc *scrape.Node, id string) (float64, error) {
	n := scrape.FindByID(doc, id)
	if n == nil {
		return 0, fmt.Errorf("element #%s not found in dashboard", id)
	}
	return scrape.Number(scrape.Text(n))
}

func (a *Adapter) validateCredentials(ctx context.Context) (telemetry.CredentialReport, error) {
	resp, err := a.client.R().
		SetContext(ctx).
		Get("/account")
	if err != nil {
		return telemetry.CredentialReport{}, connector.NewTransientError(err)
	}
	if !resp.IsSuccess() {
		return telemetry.CredentialReport{}, connector.ClassifyStatus(resp.StatusCode())
	}
	return telemetry.CredentialReport{
		Valid:       true,
		Permissions: []string{"read"},
		Limitations: []string{"per-node earnings unavailable; dashboard reports account totals"},
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
	lastSeenAgo := time.Duration(synth.IntValue(id, synth.MetricLastSeen, 1, 60)) * time.Minute
	return telemetry.NodeStatus{
		NodeID:        id,
		Online:        synth.Bool(id, synth.MetricOnline, 0.95),
		UptimePercent: synth.Value(id, synth.MetricUptime, 92, 100),
		Utilization:   synth.Value(id, synth.MetricUtilization, 0.4, 1.0),
		Region:        synth.Pick(id, synth.MetricRegion, []string{"US", "DE", "BR", "JP", "IN"}),
		LastSeen:      time.Now().Add(-lastSeenAgo),
	}
}

func synthEarnings(id string, period telemetry.Period) telemetry.Earnings {
	daily := synth.Value(id, synth.MetricEarningsBase, 10, 120)
	referralShare := synth.Value(id, synth.MetricEarningsSplit, 0, 0.15)
	total := daily * float64(period.Days())
	return telemetry.Earnings{
		NodeID:   id,
		Period:   period,
		Total:    total,
		Currency: "GRASS",
		Breakdown: map[string]float64{
			"bandwidth": total * (1 - referralShare),
			"referral":  total * referralShare,
		},
		ProjectedMonthly: daily * 30,
	}
}

func synthMetrics(id string) telemetry.NodeMetrics {
	return telemetry.NodeMetrics{
		NodeID:        id,
		BandwidthMbps: synth.Value(id, synth.MetricBandwidth, 5, 120),
		Utilization:   synth.Value(id, synth.MetricUtilization, 0.4, 1.0),
		CollectedAt:   time.Now(),
	}
}

func synthPricing(id string, params telemetry.PricingParams) telemetry.PricingStrategy {
	utilization := synth.Value(id, synth.MetricUtilization, 0.4, 1.0)
	suggested, confidence, rationale := adapter.SuggestPrice(1.0, utilization, params)
	return telemetry.PricingStrategy{
		NodeID:              id,
		CurrentPrice:        1.0,
		SuggestedPrice:      suggested,
		Currency:            "GRASS",
		ExpectedUtilization: utilization,
		Confidence:          confidence,
		Rationale:           rationale,
	}
}
