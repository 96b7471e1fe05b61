package adapter

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/IgorGanapolsky/ai-nodes-sub001/internal/connector"
	"github.com/IgorGanapolsky/ai-nodes-sub001/internal/telemetry"
)

// Logical request methods understood by every tier implementation.
const (
	MethodStatus   = "status"
	MethodEarnings = "earnings"
	MethodMetrics  = "metrics"
	MethodPricing  = "pricing"
)

// ValidateFunc pings the upstream with the configured credential. Only
// adapters with a live tier supply one.
type ValidateFunc func(ctx context.Context) (telemetry.CredentialReport, error)

// Base carries the plumbing shared by every network adapter: resolving
// node ids, driving the connector, and mapping tier payloads back into the
// canonical shapes. Network packages compose it with their own request
// construction and response mapping; there is no inheritance hierarchy.
type Base struct {
	network  string
	nodeIDs  []string
	conn     *connector.Connector
	validate ValidateFunc
}

// NewBase wires a Base around a connector. validate may be nil for
// networks without a credentialed API.
func NewBase(network string, nodeIDs []string, conn *connector.Connector, validate ValidateFunc) *Base {
	return &Base{
		network:  network,
		nodeIDs:  append([]string(nil), nodeIDs...),
		conn:     conn,
		validate: validate,
	}
}

// Network returns the network identifier.
func (b *Base) Network() string {
	return b.network
}

// Connector exposes the underlying connector for the owning adapter.
func (b *Base) Connector() *connector.Connector {
	return b.conn
}

func (b *Base) resolve(nodeID string) []string {
	if nodeID == "" {
		return b.nodeIDs
	}
	return []string{nodeID}
}

// NodeStatus fetches liveness for one node or, with an empty nodeID, every
// configured node.
func (b *Base) NodeStatus(ctx context.Context, nodeID string) ([]telemetry.NodeStatus, error) {
	ids := b.resolve(nodeID)
	out := make([]telemetry.NodeStatus, 0, len(ids))
	for _, id := range ids {
		res, err := b.conn.Do(ctx, connector.Request{Method: MethodStatus, Target: id})
		if err != nil {
			return nil, err
		}
		status, ok := res.Value.(telemetry.NodeStatus)
		if !ok {
			return nil, connector.NewValidationError(fmt.Sprintf("status tier returned %T", res.Value))
		}
		status.Network = b.network
		status.Source = res.Tier
		out = append(out, status)
	}
	return out, nil
}

// Earnings fetches rewards for one node over the period. With an empty
// nodeID it aggregates the whole fleet; the aggregate is tagged with the
// weakest tier that contributed to it.
func (b *Base) Earnings(ctx context.Context, period telemetry.Period, nodeID string) (telemetry.Earnings, error) {
	if period == "" {
		period = telemetry.PeriodDaily
	}

	ids := b.resolve(nodeID)
	total := telemetry.Earnings{
		NodeID:    nodeID,
		Network:   b.network,
		Period:    period,
		Breakdown: map[string]float64{},
		Source:    telemetry.TierLive,
	}
	for _, id := range ids {
		res, err := b.conn.Do(ctx, connector.Request{
			Method: MethodEarnings,
			Target: id,
			Params: map[string]string{"period": string(period)},
		})
		if err != nil {
			return telemetry.Earnings{}, err
		}
		e, ok := res.Value.(telemetry.Earnings)
		if !ok {
			return telemetry.Earnings{}, connector.NewValidationError(fmt.Sprintf("earnings tier returned %T", res.Value))
		}

		total.Total += e.Total
		total.ProjectedMonthly += e.ProjectedMonthly
		for k, v := range e.Breakdown {
			total.Breakdown[k] += v
		}
		if total.Currency == "" {
			total.Currency = e.Currency
		}
		total.Source = weakerTier(total.Source, res.Tier)
	}
	return total, nil
}

// Metrics fetches resource utilization for one node or the whole fleet.
func (b *Base) Metrics(ctx context.Context, nodeID string) ([]telemetry.NodeMetrics, error) {
	ids := b.resolve(nodeID)
	out := make([]telemetry.NodeMetrics, 0, len(ids))
	for _, id := range ids {
		res, err := b.conn.Do(ctx, connector.Request{Method: MethodMetrics, Target: id})
		if err != nil {
			return nil, err
		}
		m, ok := res.Value.(telemetry.NodeMetrics)
		if !ok {
			return nil, connector.NewValidationError(fmt.Sprintf("metrics tier returned %T", res.Value))
		}
		m.Network = b.network
		m.Source = res.Tier
		out = append(out, m)
	}
	return out, nil
}

// OptimizePricing recommends a price for the node, or a fleet-level
// strategy when nodeID is empty.
func (b *Base) OptimizePricing(ctx context.Context, params telemetry.PricingParams, nodeID string) (telemetry.PricingStrategy, error) {
	res, err := b.conn.Do(ctx, connector.Request{
		Method: MethodPricing,
		Target: nodeID,
		Params: pricingParams(params),
	})
	if err != nil {
		return telemetry.PricingStrategy{}, err
	}
	strategy, ok := res.Value.(telemetry.PricingStrategy)
	if !ok {
		return telemetry.PricingStrategy{}, connector.NewValidationError(fmt.Sprintf("pricing tier returned %T", res.Value))
	}
	strategy.Network = b.network
	strategy.Source = res.Tier
	return strategy, nil
}

// ValidateCredentials reports the credential state. A connector without a
// credential reports invalid with an explanatory limitation rather than an
// error; a transient upstream failure leaves the verdict inconclusive.
func (b *Base) ValidateCredentials(ctx context.Context) (telemetry.CredentialReport, error) {
	if b.conn.State() != connector.StateReady {
		return telemetry.CredentialReport{}, connector.NewNotInitializedError(b.network)
	}

	if b.conn.SynthOnly() {
		return telemetry.CredentialReport{
			Valid:       false,
			Limitations: []string{"no credential configured; all data is synthetic"},
		}, nil
	}
	if b.validate == nil {
		return telemetry.CredentialReport{
			Valid:       true,
			Permissions: []string{"read"},
			Limitations: []string{"network exposes a public API; no credential check available"},
		}, nil
	}

	report, err := b.validate(ctx)
	if err != nil {
		classified := connector.Classify(err)
		if classified.Kind == connector.KindAuthFailure {
			b.conn.SetCredentialValid(false)
			return telemetry.CredentialReport{
				Valid:       false,
				Limitations: []string{classified.Message},
			}, nil
		}
		return telemetry.CredentialReport{
			Valid:       true,
			Limitations: []string{"validation inconclusive: " + classified.Message},
		}, nil
	}

	b.conn.SetCredentialValid(report.Valid)
	return report, nil
}

// NodeIDs lists the configured node identifiers.
func (b *Base) NodeIDs(ctx context.Context) ([]string, error) {
	if b.conn.State() != connector.StateReady {
		return nil, connector.NewNotInitializedError(b.network)
	}
	return append([]string(nil), b.nodeIDs...), nil
}

// Health proxies the connector diagnostic.
func (b *Base) Health(ctx context.Context) telemetry.Health {
	return b.conn.Health()
}

// Dispose releases the connector.
func (b *Base) Dispose() {
	b.conn.Dispose()
}

// SuggestPrice is the pricing heuristic every network shares: move the
// price toward the configured ceiling when utilization runs above target
// and toward the floor when it runs below, with confidence shrinking as
// the utilization gap widens.
func SuggestPrice(current, utilization float64, params telemetry.PricingParams) (suggested, confidence float64, rationale string) {
	target := params.TargetUtilization
	if target <= 0 || target > 1 {
		target = 0.75
	}

	gap := utilization - target
	suggested = current * (1 + 0.5*gap)
	if params.FloorPrice > 0 && suggested < params.FloorPrice {
		suggested = params.FloorPrice
	}
	if params.CeilingPrice > 0 && suggested > params.CeilingPrice {
		suggested = params.CeilingPrice
	}

	confidence = 1 - math.Min(1, math.Abs(gap))
	switch {
	case gap > 0.05:
		rationale = fmt.Sprintf("utilization %.0f%% above target %.0f%%; demand supports a higher price", utilization*100, target*100)
	case gap < -0.05:
		rationale = fmt.Sprintf("utilization %.0f%% below target %.0f%%; lowering price to attract demand", utilization*100, target*100)
	default:
		rationale = fmt.Sprintf("utilization %.0f%% near target %.0f%%; holding price", utilization*100, target*100)
	}
	return suggested, confidence, rationale
}

func pricingParams(p telemetry.PricingParams) map[string]string {
	return map[string]string{
		"target_utilization": fmt.Sprintf("%.4f", p.TargetUtilization),
		"floor_price":        fmt.Sprintf("%.6f", p.FloorPrice),
		"ceiling_price":      fmt.Sprintf("%.6f", p.CeilingPrice),
	}
}

// ParsePricingParams recovers PricingParams from a request's canonicalized
// parameter map inside a tier implementation.
func ParsePricingParams(params map[string]string) telemetry.PricingParams {
	parse := func(key string) float64 {
		v, err := strconv.ParseFloat(params[key], 64)
		if err != nil {
			return 0
		}
		return v
	}
	return telemetry.PricingParams{
		TargetUtilization: parse("target_utilization"),
		FloorPrice:        parse("floor_price"),
		CeilingPrice:      parse("ceiling_price"),
	}
}

// weakerTier orders tiers live > scraped > synthetic and returns the
// weaker of the two, so fleet aggregates never overstate their provenance.
func weakerTier(a, b telemetry.Tier) telemetry.Tier {
	rank := func(t telemetry.Tier) int {
		switch t {
		case telemetry.TierLive:
			return 2
		case telemetry.TierScraped:
			return 1
		default:
			return 0
		}
	}
	if rank(b) < rank(a) {
		return b
	}
	return a
}
