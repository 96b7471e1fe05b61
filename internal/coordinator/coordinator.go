// Package coordinator fans one collection pass out across every configured
// network adapter and gathers per-node snapshots as they complete.
package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/IgorGanapolsky/ai-nodes-sub001/internal/adapter"
	"github.com/IgorGanapolsky/ai-nodes-sub001/internal/telemetry"
)

// Snapshot is one node's telemetry from one collection pass. Err is set
// when the adapter's acquisition layer could not serve the node at all
// (which, for an initialized adapter, means cancellation or disposal).
type Snapshot struct {
	Network  string
	NodeID   string
	Status   telemetry.NodeStatus
	Earnings telemetry.Earnings
	Metrics  telemetry.NodeMetrics
	Err      error
}

// Coordinator runs collection passes over a set of adapters.
type Coordinator struct {
	adapters []adapter.Adapter
	logger   *slog.Logger
}

// New creates a Coordinator with the given adapters.
func New(adapters []adapter.Adapter, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{adapters: adapters, logger: logger}
}

// Collect queries every adapter concurrently, one goroutine per adapter,
// and returns a snapshot per node. Snapshots arrive in no particular
// order; a failing adapter contributes one error snapshot rather than
// failing the pass.
func (c *Coordinator) Collect(ctx context.Context, period telemetry.Period) ([]Snapshot, error) {
	if len(c.adapters) == 0 {
		return nil, fmt.Errorf("no adapters configured")
	}

	snapshotChan := make(chan Snapshot)
	var wg sync.WaitGroup

	for _, a := range c.adapters {
		wg.Add(1)
		go func(a adapter.Adapter) {
			defer wg.Done()
			c.collectAdapter(ctx, a, period, snapshotChan)
		}(a)
	}

	go func() {
		wg.Wait()
		close(snapshotChan)
	}()

	var snapshots []Snapshot
	for snap := range snapshotChan {
		snapshots = append(snapshots, snap)
	}
	return snapshots, nil
}

func (c *Coordinator) collectAdapter(ctx context.Context, a adapter.Adapter, period telemetry.Period, out chan<- Snapshot) {
	network := a.Network()

	ids, err := a.NodeIDs(ctx)
	if err != nil {
		out <- Snapshot{Network: network, Err: err}
		return
	}
	if len(ids) == 0 {
		c.logger.Debug("no nodes configured", "network", network)
		return
	}

	for _, id := range ids {
		snap := Snapshot{Network: network, NodeID: id}

		statuses, err := a.NodeStatus(ctx, id)
		if err != nil {
			snap.Err = err
			out <- snap
			continue
		}
		if len(statuses) > 0 {
			snap.Status = statuses[0]
		}

		earnings, err := a.Earnings(ctx, period, id)
		if err != nil {
			snap.Err = err
			out <- snap
			continue
		}
		snap.Earnings = earnings

		metrics, err := a.Metrics(ctx, id)
		if err != nil {
			snap.Err = err
			out <- snap
			continue
		}
		if len(metrics) > 0 {
			snap.Metrics = metrics[0]
		}

		out <- snap
	}
}
