/*
SPDX-License-Identifier: Apache-2.0

Copyright 2024 The Tabula Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    https://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nyneos/tabula/core/config"
	"github.com/nyneos/tabula/demo"
)

var (
	configPath string
	logLevel   string

	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "tabula",
	Short: "tabula - headless table engine for workflow screens",
	Long: `tabula serves configured tables with sorting, filtering, grouping with
subtotals, pagination, row editing and bulk approve/reject/delete.

Tables are read from SQLite or CSV sources described in a YAML config file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}

		zapConfig := zap.NewProductionConfig()
		zapConfig.Level = zap.NewAtomicLevelAt(cfg.ZapLevel())
		logger, err = zapConfig.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// serveCmd runs the HTTP server
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the configured tables over HTTP",
	RunE:  runServe,
}

// seedCmd fills the sqlite tables with generated exposures
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed sqlite tables with demo exposures",
	RunE:  runSeed,
}

// exportCmd writes one table to stdout or a file
var exportCmd = &cobra.Command{
	Use:   "export [table]",
	Short: "Export a table view as CSV, TSV or ASCII",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

var (
	seedRows     int
	exportFormat string
	exportQuery  string
	exportOut    string
	exportUser   string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "tabula.yaml", "Config file (defaults apply when missing)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level override: debug, info, warn, error")

	seedCmd.Flags().IntVarP(&seedRows, "rows", "n", demo.DefaultExposureRows, "Number of rows per table")

	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "csv", "Output format: csv, tsv or ascii")
	exportCmd.Flags().StringVarP(&exportQuery, "query", "q", "", "View query string, e.g. 'grouped=currency&sort=total_open_amount:desc'")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file (default: stdout)")
	exportCmd.Flags().StringVar(&exportUser, "user", "", "Subject whose export permission is checked")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(exportCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := demo.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	srv, err := app.Server()
	if err != nil {
		return err
	}

	// Failed tables are retried on their first request.
	idFields := make(map[string]string, len(cfg.Tables))
	for _, tc := range cfg.Tables {
		idFields[tc.Name] = tc.IDField
	}
	for name, err := range app.Manager.LoadAll(ctx, idFields) {
		logger.Warn("initial load failed", zap.String("table", name), zap.Error(err))
	}

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.ListenAddr))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}

func runSeed(cmd *cobra.Command, args []string) error {
	app, err := demo.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()
	if app.Store == nil {
		return errors.New("no sqlite tables configured")
	}
	return app.SeedAll(cmd.Context(), seedRows)
}

func runExport(cmd *cobra.Command, args []string) error {
	app, err := demo.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	out := cmd.OutOrStdout()
	if exportOut != "" {
		f, err := os.Create(exportOut)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}
	return app.Export(cmd.Context(), out, args[0], exportQuery, exportFormat, exportUser)
}
