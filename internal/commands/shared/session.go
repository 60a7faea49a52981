// Copyright 2025 Tom Barlow
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

package shared

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/tombee/zkctl/internal/controller"
	"github.com/tombee/zkctl/internal/lifecycle"
	internallog "github.com/tombee/zkctl/internal/log"
	"github.com/tombee/zkctl/internal/metrics"
	"github.com/tombee/zkctl/internal/params"
	"github.com/tombee/zkctl/internal/tracing"
)

// otelRegisterer receives the OpenTelemetry metrics bridge.
var otelRegisterer prometheus.Registerer = prometheus.DefaultRegisterer

// SetOTelRegistererForTest replaces the bridge registerer. The bridge can be
// registered only once per registry, so tests running several commands in
// one process pass nil.
func SetOTelRegistererForTest(r prometheus.Registerer) {
	otelRegisterer = r
}

// Session carries the per-invocation logger, telemetry and the controller
// built from the parameter file.
type Session struct {
	Logger        *slog.Logger
	CorrelationID tracing.CorrelationID

	provider *tracing.Provider
}

// NewSession configures logging and telemetry from the global flags.
func NewSession() (*Session, error) {
	cfg := internallog.FromEnv()
	switch {
	case verboseFlag:
		cfg.Level = "debug"
	case quietFlag:
		cfg.Level = "error"
	}
	if os.Getenv("LOG_FORMAT") == "" {
		cfg.Format = internallog.FormatText
	}

	id := tracing.CorrelationIDFromEnv()
	logger := internallog.WithCorrelationID(internallog.New(cfg), id.String())
	slog.SetDefault(logger)

	tcfg := tracing.Config{
		ServiceName:    "zkctl",
		ServiceVersion: version,
		Registerer:     otelRegisterer,
	}
	if traceFlag {
		tcfg.SpanWriter = os.Stderr
		tcfg.PrettyPrint = true
	}
	provider, err := tracing.Setup(tcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to set up telemetry: %w", err)
	}

	return &Session{Logger: logger, CorrelationID: id, provider: provider}, nil
}

// Context returns ctx carrying the session's correlation ID.
func (s *Session) Context(ctx context.Context) context.Context {
	return tracing.ToContext(ctx, s.CorrelationID)
}

// LoadParams reads and validates the parameter set named by the flags.
func (s *Session) LoadParams() (*params.Params, error) {
	p, err := params.Load(GetParamsPath(), GetOverrides())
	if err != nil {
		return nil, err
	}
	s.Logger.Debug("parameters loaded", slog.Any("params", p))
	return p, nil
}

// NewDaemon builds the process supervisor for p.
func (s *Session) NewDaemon(p *params.Params) *lifecycle.Daemon {
	return lifecycle.NewDaemon(
		lifecycle.WithMarker(p.ConfigFile()),
		lifecycle.WithEventLog(p.LogFile()),
		lifecycle.WithLogger(s.Logger),
	)
}

// NewController loads the parameter set and wires a controller to the
// real supervisor.
func (s *Session) NewController() (*controller.Controller, error) {
	p, err := s.LoadParams()
	if err != nil {
		return nil, err
	}
	return controller.New(p, s.NewDaemon(p), controller.WithLogger(s.Logger)), nil
}

// Close flushes spans and writes the metrics textfile when requested.
func (s *Session) Close(ctx context.Context) error {
	var errs []error
	if s.provider != nil {
		errs = append(errs, s.provider.Shutdown(ctx))
	}
	if path := GetMetricsTextfile(); path != "" {
		errs = append(errs, metrics.WriteTextfile(path, prometheus.DefaultGatherer))
	}
	return errors.Join(errs...)
}

// Run opens a session for cmd, calls fn and closes the session even when fn
// fails, so the metrics textfile also records failures.
func Run(cmd *cobra.Command, fn func(ctx context.Context, s *Session) error) error {
	s, err := NewSession()
	if err != nil {
		return err
	}
	ctx := s.Context(cmd.Context())

	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := s.Close(closeCtx); err != nil {
			s.Logger.Warn("failed to flush telemetry", internallog.Error(err))
		}
	}()

	return fn(ctx, s)
}
