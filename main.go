package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IgorGanapolsky/ai-nodes-sub001/internal/adapter"
	"github.com/IgorGanapolsky/ai-nodes-sub001/internal/config"
	"github.com/IgorGanapolsky/ai-nodes-sub001/internal/coordinator"
	"github.com/IgorGanapolsky/ai-nodes-sub001/internal/grass"
	"github.com/IgorGanapolsky/ai-nodes-sub001/internal/helium"
	"github.com/IgorGanapolsky/ai-nodes-sub001/internal/ionet"
	"github.com/IgorGanapolsky/ai-nodes-sub001/internal/telemetry"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Create context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nReceived interrupt signal, shutting down...")
		cancel()
	}()

	// One adapter per network; networks without configured nodes still
	// initialize but contribute nothing to the pass.
	adapters := []adapter.Adapter{
		ionet.New(cfg.Settings(cfg.IoNet), logger),
		helium.New(cfg.Settings(cfg.Helium), logger),
		grass.New(cfg.Settings(cfg.Grass), logger),
	}

	for _, a := range adapters {
		if err := a.Initialize(ctx); err != nil {
			log.Fatalf("Failed to initialize %s adapter: %v", a.Network(), err)
		}
	}
	defer func() {
		for _, a := range adapters {
			a.Dispose()
		}
	}()

	coord := coordinator.New(adapters, logger)

	// Bound the whole pass so a hung upstream cannot stall the CLI.
	collectCtx, collectCancel := context.WithTimeout(ctx, 30*time.Second)
	defer collectCancel()

	fmt.Println("Collecting node telemetry across networks...")
	fmt.Println("============================================")
	snapshots, err := coord.Collect(collectCtx, telemetry.PeriodDaily)
	if err != nil {
		log.Fatalf("Collection failed: %v", err)
	}

	for _, snap := range snapshots {
		if snap.Err != nil {
			fmt.Printf("%s/%s: ERROR - %v\n", snap.Network, snap.NodeID, snap.Err)
			continue
		}
		online := "offline"
		if snap.Status.Online {
			online = "online"
		}
		fmt.Printf("%s/%s [%s]: %s, %.2f %s/day (util %.0f%%)\n",
			snap.Network, snap.NodeID, snap.Earnings.Source, online,
			snap.Earnings.Total, snap.Earnings.Currency,
			snap.Metrics.Utilization*100)
	}

	fmt.Println("============================================")
	fmt.Printf("Collected %d node snapshots\n", len(snapshots))
}
