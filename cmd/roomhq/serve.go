// Copyright 2026 VirtualConnekt
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/virtualconnekt/roomhq"
	"github.com/virtualconnekt/roomhq/internal/config"
)

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the room coordinator",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := commonRun()
			cfg, err := config.LoadConfig(configFile)
			if err != nil {
				return err
			}
			promRegistry := prometheus.NewRegistry()
			promRegistry.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(
					collectors.ProcessCollectorOpts{},
				),
			)
			coordinator, err := roomhq.New(
				roomhq.NewConfig(
					roomhq.WithLogger(logger),
					roomhq.WithDataDir(cfg.DataDir),
					roomhq.WithJurySize(cfg.JurySize),
					roomhq.WithPrometheusRegistry(promRegistry),
				),
			)
			if err != nil {
				return err
			}
			// Metrics listener
			metricsMux := http.NewServeMux()
			metricsMux.Handle(
				"/metrics",
				promhttp.HandlerFor(
					promRegistry,
					promhttp.HandlerOpts{},
				),
			)
			metricsServer := &http.Server{
				Addr:         cfg.MetricsAddress,
				Handler:      metricsMux,
				ReadTimeout:  60 * time.Second,
				WriteTimeout: 60 * time.Second,
			}
			go func() {
				logger.Info(
					"serving metrics",
					"component", programName,
					"address", cfg.MetricsAddress,
				)
				if err := metricsServer.ListenAndServe(); err != nil &&
					err != http.ErrServerClosed {
					logger.Error(
						"metrics listener failed",
						"component", programName,
						"error", err,
					)
					os.Exit(1)
				}
			}()
			// Wait for shutdown signal
			signalCh := make(chan os.Signal, 1)
			signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
			sig := <-signalCh
			logger.Info(
				"shutting down",
				"component", programName,
				"signal", sig.String(),
			)
			_ = metricsServer.Close()
			return coordinator.Close()
		},
	}
}
