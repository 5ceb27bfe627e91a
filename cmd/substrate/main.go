// Copyright (C) 2025, Corticalmesh Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

// Command substrate is the composition-root binary: it wires a
// topology, transport, and a handful of cognitive units into a running
// orchestrator, mirroring the teacher's cmd/consensus cobra layout.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/corticalmesh/substrate/config"
	"github.com/corticalmesh/substrate/ids"
	"github.com/corticalmesh/substrate/log"
	"github.com/corticalmesh/substrate/orchestrator"
	subsignal "github.com/corticalmesh/substrate/signal"
	"github.com/corticalmesh/substrate/transport"
	"github.com/corticalmesh/substrate/transport/memory"
	"github.com/corticalmesh/substrate/transport/zmqtransport"
	"github.com/corticalmesh/substrate/unit"
)

var rootCmd = &cobra.Command{
	Use:   "substrate",
	Short: "Run and inspect the hierarchical cognitive substrate",
	Long: `substrate boots the Signal/Gradient/Consensus fabric over a
small demo unit topology and reports the cluster's topology metrics
until interrupted.`,
}

func main() {
	rootCmd.AddCommand(runCmd(), presetsCmd())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func presetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List configuration presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range config.PresetNames() {
				fmt.Println(name)
			}
			return nil
		},
	}
}

func runCmd() *cobra.Command {
	var preset string
	var useZMQ bool
	var routerEndpoint, pubEndpoint string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a demo substrate instance",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, ok := config.GetPreset(preset)
			if !ok {
				return fmt.Errorf("unknown preset %q", preset)
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			logger := log.New("substrate")
			reg := prometheus.NewRegistry()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			transportImpl, err := buildTransport(ctx, useZMQ, routerEndpoint, pubEndpoint, logger, reg)
			if err != nil {
				return err
			}

			orch := orchestrator.New(cfg, logger, reg, transportImpl)
			reflexID, opID := seedDemoUnits(orch)

			go watchEvents(ctx, orch, logger)

			s := subsignal.New(reflexID, opID, []byte("hello"), 1.0, 0.1, map[string]string{"category": "demo"})
			if _, err := orch.Submit(ctx, s); err != nil {
				logger.Error("initial submit failed", "error", err)
			}

			ticker := time.NewTicker(5 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
					defer shutdownCancel()
					return orch.Shutdown(shutdownCtx)
				case <-ticker.C:
					metrics := orch.TopologySnapshot()
					logger.Info("topology", "units", metrics.TotalUnits, "connections", metrics.TotalConnections)
				}
			}
		},
	}
	cmd.Flags().StringVar(&preset, "preset", "default", "configuration preset (default|production|development)")
	cmd.Flags().BoolVar(&useZMQ, "zmq", false, "use the ZeroMQ transport instead of the in-process one")
	cmd.Flags().StringVar(&routerEndpoint, "zmq-router", "tcp://*:5555", "ZMQ ROUTER bind endpoint")
	cmd.Flags().StringVar(&pubEndpoint, "zmq-pub", "tcp://*:5556", "ZMQ PUB bind endpoint")
	return cmd
}

func buildTransport(ctx context.Context, useZMQ bool, routerEndpoint, pubEndpoint string, logger log.Logger, reg prometheus.Registerer) (transport.Transport, error) {
	if !useZMQ {
		return memory.New(logger, reg), nil
	}
	zt, err := zmqtransport.New(logger, zmqtransport.Config{
		NodeID:         "substrate-0",
		RouterEndpoint: routerEndpoint,
		PubEndpoint:    pubEndpoint,
	})
	if err != nil {
		return nil, err
	}
	zt.Start(ctx)
	return zt, nil
}

// seedDemoUnits registers one L1 reflexive unit feeding one L2
// implementation unit, returning their IDs so run's initial Submit has
// somewhere to send.
func seedDemoUnits(orch *orchestrator.Orchestrator) (ids.UnitID, ids.UnitID) {
	reflexDesc := unit.Descriptor{ID: ids.GenerateUnitID(), Layer: unit.L1, Speed: 0.9, Complexity: 0.2}
	opDesc := unit.Descriptor{ID: ids.GenerateUnitID(), Layer: unit.L2, Speed: 0.7, Complexity: 0.4}

	reflex := unit.NewReflexive(reflexDesc, 256, func(in unit.Input) (unit.Output, error) {
		return unit.Output{Content: in.Content, Confidence: 1, TargetLayers: []unit.Layer{unit.L2}}, nil
	})
	op := unit.NewImplementation(opDesc, 64, func(in unit.Input) (unit.Output, error) {
		return unit.Output{Content: in.Content, Confidence: 0.8}, nil
	})

	_ = orch.RegisterUnit(reflex)
	_ = orch.RegisterUnit(op)
	return reflexDesc.ID, opDesc.ID
}

func watchEvents(ctx context.Context, orch *orchestrator.Orchestrator, logger log.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-orch.Observe():
			if !ok {
				return
			}
			if ev.Kind == orchestrator.EventError {
				logger.Error("orchestrator event", "error", ev.Err)
				continue
			}
			logger.Info("reorganization", "kind", ev.Selforganize.Kind, "label", ev.Selforganize.Label)
		}
	}
}
