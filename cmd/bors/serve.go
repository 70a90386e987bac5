/*
Copyright 2026 The Bors Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/clarketm/bors/dashboard"
	"github.com/clarketm/bors/scheduler"
)

func newServeCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "run the merge queue continuously, driven by a periodic scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			d, err := buildDeployment(ctx, *configPath)
			if err != nil {
				return err
			}
			defer d.closeStore()

			if dump, err := d.cfg.Dump(); err != nil {
				logrus.WithError(err).Warn("could not render config for diagnostics")
			} else {
				logrus.WithField("component", "bors").Debugf("effective configuration:\n%s", dump)
			}

			sched, err := scheduler.New(logrus.WithField("component", "bors"), d.cfg.SyncPeriod, d.driver)
			if err != nil {
				return err
			}
			sched.Start()
			defer sched.Stop()

			go d.driver.Run(ctx)
			defer d.driver.Shutdown()

			dash := dashboard.New(logrus.WithField("component", "bors"), d.engine)

			metricsSrv := &http.Server{Addr: d.cfg.MetricsAddr, Handler: d.recorder.Handler()}
			dashboardSrv := &http.Server{Addr: d.cfg.DashboardAddr, Handler: dash.Handler()}

			go func() {
				if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logrus.WithError(err).Error("metrics server stopped unexpectedly")
				}
			}()
			go func() {
				if err := dashboardSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logrus.WithError(err).Error("dashboard server stopped unexpectedly")
				}
			}()

			// An initial trigger, so the queue doesn't sit idle until
			// the scheduler's first tick.
			d.driver.Trigger()

			<-ctx.Done()
			logrus.Info("shutting down")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
			defer cancel()
			_ = metricsSrv.Shutdown(shutdownCtx)
			_ = dashboardSrv.Shutdown(shutdownCtx)
			return nil
		},
	}
}
