// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Command simulator runs a simulated sensor that samples image-backed fields at its
// platform's location.
//
// Run:
//
//	go run ./cmd/simulator run
//	go run ./cmd/simulator probe --quantity temperature 100 100
//	go run ./cmd/simulator history --limit 10
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/relabs-tech/sim_sentuator/internal/app"
	"github.com/relabs-tech/sim_sentuator/internal/config"
)

const (
	flagConfig   = "config"
	flagJSONLogs = "json-logs"
	flagDebug    = "debug"
	flagQuantity = "quantity"
	flagField    = "field"
	flagBounds   = "bounds"
	flagRange    = "range"
	flagUnits    = "units"
	flagDB       = "db"
	flagLimit    = "limit"
)

func main() {
	var logger *zap.SugaredLogger

	cliApp := &cli.App{
		Name:  "simulator",
		Usage: "simulated polling sensor over image-backed fields",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Value:   "sim_config.txt",
				Usage:   "path to the KEY=VALUE config file",
			},
			&cli.BoolFlag{
				Name:  flagJSONLogs,
				Usage: "log JSON lines instead of console output",
			},
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			var err error
			logger, err = app.NewLogger("simulator", c.Bool(flagJSONLogs), c.Bool(flagDebug))
			return err
		},
		After: func(*cli.Context) error {
			if logger != nil {
				_ = logger.Sync()
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "poll the configured sensor until interrupted",
				Action: func(c *cli.Context) error {
					if err := config.InitGlobal(c.String(flagConfig)); err != nil {
						return errors.Wrap(err, "failed to load config")
					}
					ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
					defer stop()
					return app.RunSimulator(ctx, config.Get(), logger)
				},
			},
			{
				Name:      "probe",
				Usage:     "sample one field at one point",
				ArgsUsage: "<x> <y> [more coordinates]",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagQuantity, Usage: "configured quantity to sample"},
					&cli.StringFlag{Name: flagField, Usage: "field image to sample instead of a configured quantity"},
					&cli.StringFlag{Name: flagBounds, Value: "0,0,1,1", Usage: "x1,y1,x2,y2 of the field image"},
					&cli.StringFlag{Name: flagRange, Value: "0,1", Usage: "min,max of the rescaled values"},
					&cli.StringFlag{Name: flagUnits, Usage: "units of the field image"},
				},
				Action: probeAction,
			},
			{
				Name:  "history",
				Usage: "print recently recorded measurements",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagDB, Usage: "recorder database, defaults to RECORDER_DB_PATH"},
					&cli.IntFlag{Name: flagLimit, Value: 20, Usage: "how many measurements to print"},
				},
				Action: func(c *cli.Context) error {
					db := c.String(flagDB)
					if db == "" {
						if err := config.InitGlobal(c.String(flagConfig)); err != nil {
							return errors.Wrap(err, "failed to load config")
						}
						db = config.Get().RecorderDBPath
					}
					if db == "" {
						return errors.New("no recorder database: pass --db or set RECORDER_DB_PATH")
					}
					return app.RunHistory(c.Context, c.App.Writer, db, c.Int(flagLimit))
				},
			},
		},
	}

	if err := cliApp.RunContext(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "simulator: %v\n", err)
		os.Exit(1)
	}
}

func probeAction(c *cli.Context) error {
	coords, err := parseFloats(c.Args().Slice())
	if err != nil {
		return errors.Wrap(err, "coordinates")
	}

	var q config.Quantity
	if path := c.String(flagField); path != "" {
		bounds, err := parseFloats(strings.Split(c.String(flagBounds), ","))
		if err != nil || len(bounds) != 4 {
			return errors.Errorf("--%s wants x1,y1,x2,y2, got %q", flagBounds, c.String(flagBounds))
		}
		values, err := parseFloats(strings.Split(c.String(flagRange), ","))
		if err != nil || len(values) != 2 {
			return errors.Errorf("--%s wants min,max, got %q", flagRange, c.String(flagRange))
		}
		q = config.Quantity{
			Name:  path,
			Units: c.String(flagUnits),
			Path:  path,
			X1:    bounds[0], Y1: bounds[1], X2: bounds[2], Y2: bounds[3],
			Min: values[0], Max: values[1],
		}
	} else {
		if err := config.InitGlobal(c.String(flagConfig)); err != nil {
			return errors.Wrap(err, "failed to load config")
		}
		name := c.String(flagQuantity)
		var ok bool
		if q, ok = config.Get().Quantity(name); !ok {
			return errors.Errorf("no quantity %q in config", name)
		}
	}
	return app.RunProbe(c.App.Writer, q, coords)
}

func parseFloats(args []string) ([]float64, error) {
	out := make([]float64, 0, len(args))
	for _, a := range args {
		v, err := strconv.ParseFloat(strings.TrimSpace(a), 64)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
