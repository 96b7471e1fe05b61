// Package adapter defines the contract every DePIN network adapter
// implements. Adapters translate one network's telemetry into the canonical
// shapes; all resilience (rate limiting, caching, retries, fallback tiers)
// lives in the connector they are built on.
package adapter

import (
	"context"

	"github.com/IgorGanapolsky/ai-nodes-sub001/internal/telemetry"
)

// Adapter is implemented once per network and consumed by the API layer.
// An empty nodeID means all configured nodes. After a successful
// Initialize, the only errors any method may return are NotInitialized
// (use after Dispose) and the caller's context expiring; every upstream
// failure is absorbed by the connector's fallback chain.
type Adapter interface {
	// Network returns the adapter's network identifier, e.g. "ionet".
	Network() string

	// Initialize validates configuration and readies the underlying
	// connector. It must be called exactly once before any other method;
	// a ConfigError leaves the adapter unusable.
	Initialize(ctx context.Context) error

	// NodeStatus reports liveness for one node, or all nodes when nodeID
	// is empty.
	NodeStatus(ctx context.Context, nodeID string) ([]telemetry.NodeStatus, error)

	// Earnings aggregates rewards for a node over the period. An empty
	// nodeID aggregates the whole fleet.
	Earnings(ctx context.Context, period telemetry.Period, nodeID string) (telemetry.Earnings, error)

	// Metrics reports resource utilization for one node, or all nodes
	// when nodeID is empty.
	Metrics(ctx context.Context, nodeID string) ([]telemetry.NodeMetrics, error)

	// OptimizePricing recommends a price for the node under the given
	// constraints.
	OptimizePricing(ctx context.Context, params telemetry.PricingParams, nodeID string) (telemetry.PricingStrategy, error)

	// ValidateCredentials checks the configured credential against the
	// upstream and reports granted permissions and known limitations.
	ValidateCredentials(ctx context.Context) (telemetry.CredentialReport, error)

	// NodeIDs lists the node identifiers this adapter manages.
	NodeIDs(ctx context.Context) ([]string, error)

	// Health is a read-only diagnostic of the adapter's connector.
	Health(ctx context.Context) telemetry.Health

	// Dispose releases the connector's resources. Every call after
	// Dispose fails with NotInitialized.
	Dispose()
}
