// Package testutil provides mock implementations for testing the
// acquisition layer without real network adapters.
package testutil

import (
	"context"

	"github.com/IgorGanapolsky/ai-nodes-sub001/internal/telemetry"
)

// MockAdapter is a configurable implementation of the adapter contract.
// Unset function fields fall back to benign defaults.
type MockAdapter struct {
	NetworkName string

	InitializeFunc      func(ctx context.Context) error
	NodeStatusFunc      func(ctx context.Context, nodeID string) ([]telemetry.NodeStatus, error)
	EarningsFunc        func(ctx context.Context, period telemetry.Period, nodeID string) (telemetry.Earnings, error)
	MetricsFunc         func(ctx context.Context, nodeID string) ([]telemetry.NodeMetrics, error)
	OptimizePricingFunc func(ctx context.Context, params telemetry.PricingParams, nodeID string) (telemetry.PricingStrategy, error)
	ValidateFunc        func(ctx context.Context) (telemetry.CredentialReport, error)
	NodeIDsFunc         func(ctx context.Context) ([]string, error)
	HealthFunc          func(ctx context.Context) telemetry.Health
	DisposeFunc         func()
}

func (m *MockAdapter) Network() string {
	if m.NetworkName != "" {
		return m.NetworkName
	}
	return "mocknet"
}

func (m *MockAdapter) Initialize(ctx context.Context) error {
	if m.InitializeFunc != nil {
		return m.InitializeFunc(ctx)
	}
	return nil
}

func (m *MockAdapter) NodeStatus(ctx context.Context, nodeID string) ([]telemetry.NodeStatus, error) {
	if m.NodeStatusFunc != nil {
		return m.NodeStatusFunc(ctx, nodeID)
	}
	return []telemetry.NodeStatus{{NodeID: nodeID, Network: m.Network(), Online: true, Source: telemetry.TierSynthetic}}, nil
}

func (m *MockAdapter) Earnings(ctx context.Context, period telemetry.Period, nodeID string) (telemetry.Earnings, error) {
	if m.EarningsFunc != nil {
		return m.EarningsFunc(ctx, period, nodeID)
	}
	return telemetry.Earnings{NodeID: nodeID, Network: m.Network(), Period: period, Source: telemetry.TierSynthetic}, nil
}

func (m *MockAdapter) Metrics(ctx context.Context, nodeID string) ([]telemetry.NodeMetrics, error) {
	if m.MetricsFunc != nil {
		return m.MetricsFunc(ctx, nodeID)
	}
	return []telemetry.NodeMetrics{{NodeID: nodeID, Network: m.Network(), Source: telemetry.TierSynthetic}}, nil
}

func (m *MockAdapter) OptimizePricing(ctx context.Context, params telemetry.PricingParams, nodeID string) (telemetry.PricingStrategy, error) {
	if m.OptimizePricingFunc != nil {
		return m.OptimizePricingFunc(ctx, params, nodeID)
	}
	return telemetry.PricingStrategy{NodeID: nodeID, Network: m.Network(), Source: telemetry.TierSynthetic}, nil
}

func (m *MockAdapter) ValidateCredentials(ctx context.Context) (telemetry.CredentialReport, error) {
	if m.ValidateFunc != nil {
		return m.ValidateFunc(ctx)
	}
	return telemetry.CredentialReport{Valid: true}, nil
}

func (m *MockAdapter) NodeIDs(ctx context.Context) ([]string, error) {
	if m.NodeIDsFunc != nil {
		return m.NodeIDsFunc(ctx)
	}
	return []string{"mock-node-1"}, nil
}

func (m *MockAdapter) Health(ctx context.Context) telemetry.Health {
	if m.HealthFunc != nil {
		return m.HealthFunc(ctx)
	}
	return telemetry.Health{Status: telemetry.HealthHealthy}
}

func (m *MockAdapter) Dispose() {
	if m.DisposeFunc != nil {
		m.DisposeFunc()
	}
}
