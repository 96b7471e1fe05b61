package telemetry

import "time"

// Tier identifies which acquisition tier produced a record. Downstream
// consumers (reporting, billing) must be able to tell demo/fallback data
// from real telemetry, so every output shape carries one.
type Tier string

const (
	// TierLive means the record came from the network's structured API.
	TierLive Tier = "live"
	// TierScraped means the record was extracted from a dashboard page
	// after the structured API was unavailable.
	TierScraped Tier = "scraped"
	// TierSynthetic means the record was generated deterministically,
	// either because no credential is configured or because every other
	// tier failed.
	TierSynthetic Tier = "synthetic"
)

// Period selects the earnings aggregation window.
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

// Days returns the number of days the period covers, defaulting to one.
func (p Period) Days() int {
	switch p {
	case PeriodWeekly:
		return 7
	case PeriodMonthly:
		return 30
	default:
		return 1
	}
}

// NodeStatus is the canonical liveness/health view of a single node.
type NodeStatus struct {
	NodeID        string    `json:"node_id"`
	Network       string    `json:"network"`
	Online        bool      `json:"online"`
	UptimePercent float64   `json:"uptime_percent"`
	Utilization   float64   `json:"utilization"` // 0..1 share of capacity in use
	Region        string    `json:"region"`
	Version       string    `json:"version"`
	LastSeen      time.Time `json:"last_seen"`
	Source        Tier      `json:"source"`
}

// Earnings is the canonical monetary view for a node over a period.
// Breakdown keys are adapter-defined (e.g. "compute", "bandwidth", "bonus")
// and sum to Total.
type Earnings struct {
	NodeID           string             `json:"node_id"`
	Network          string             `json:"network"`
	Period           Period             `json:"period"`
	Total            float64            `json:"total"`
	Currency         string             `json:"currency"`
	Breakdown        map[string]float64 `json:"breakdown"`
	ProjectedMonthly float64            `json:"projected_monthly"`
	Source           Tier               `json:"source"`
}

// NodeMetrics is the canonical resource-utilization view of a node.
type NodeMetrics struct {
	NodeID         string    `json:"node_id"`
	Network        string    `json:"network"`
	CPUPercent     float64   `json:"cpu_percent"`
	MemoryPercent  float64   `json:"memory_percent"`
	DiskPercent    float64   `json:"disk_percent"`
	BandwidthMbps  float64   `json:"bandwidth_mbps"`
	RequestsServed int64     `json:"requests_served"`
	Utilization    float64   `json:"utilization"`
	CollectedAt    time.Time `json:"collected_at"`
	Source         Tier      `json:"source"`
}

// PricingParams constrains a pricing optimization request.
type PricingParams struct {
	TargetUtilization float64 `json:"target_utilization"` // 0..1
	FloorPrice        float64 `json:"floor_price"`
	CeilingPrice      float64 `json:"ceiling_price"`
}

// PricingStrategy is the canonical pricing recommendation for a node.
type PricingStrategy struct {
	NodeID              string  `json:"node_id"`
	Network             string  `json:"network"`
	CurrentPrice        float64 `json:"current_price"`
	SuggestedPrice      float64 `json:"suggested_price"`
	Currency            string  `json:"currency"`
	ExpectedUtilization float64 `json:"expected_utilization"`
	Confidence          float64 `json:"confidence"` // 0..1
	Rationale           string  `json:"rationale"`
	Source              Tier    `json:"source"`
}

// CredentialReport is the result of validating a network credential.
type CredentialReport struct {
	Valid       bool     `json:"valid"`
	Permissions []string `json:"permissions"`
	Limitations []string `json:"limitations"`
}

// HealthStatus grades a connector's ability to serve live data.
type HealthStatus string

const (
	HealthHealthy   HealthStatus = "healthy"
	HealthDegraded  HealthStatus = "degraded"
	HealthUnhealthy HealthStatus = "unhealthy"
)

// Health is a read-only diagnostic snapshot of a connector. It never gates
// requests.
type Health struct {
	Status    HealthStatus  `json:"status"`
	LastCheck time.Time     `json:"last_check"`
	Latency   time.Duration `json:"latency"`
	Errors    []string      `json:"errors"`
}
