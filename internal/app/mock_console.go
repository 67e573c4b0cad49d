// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/relabs-tech/sim_sentuator/internal/agent"
	"github.com/relabs-tech/sim_sentuator/internal/config"
	"github.com/relabs-tech/sim_sentuator/internal/sensor"
)

// consolePublisher prints measurements to a terminal.
func consolePublisher(w io.Writer) agent.Publisher {
	return agent.PublisherFunc(func(_ context.Context, m sensor.Measurement) error {
		_, err := fmt.Fprintln(w, FormatMeasurement(m))
		return err
	})
}

// RunMockConsole runs the simulator locally and prints every measurement to w. No
// broker or recorder is used, whatever the configuration says.
func RunMockConsole(ctx context.Context, cfg *config.Config, w io.Writer, logger *zap.SugaredLogger) error {
	local := *cfg
	local.MQTTBroker = ""
	local.RecorderDBPath = ""
	local.AutoEnable = true

	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	sim, err := NewSimulator(ctx, &local, clock.New(), logger.Desugar().WithOptions(zap.IncreaseLevel(zap.WarnLevel)).Sugar(), consolePublisher(w))
	if err != nil {
		return err
	}
	defer sim.Close()

	err = sim.Runner.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
