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

package controller

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/tombee/zkctl/internal/lifecycle"
	internallog "github.com/tombee/zkctl/internal/log"
	"github.com/tombee/zkctl/internal/materialize"
	"github.com/tombee/zkctl/internal/metrics"
	"github.com/tombee/zkctl/internal/params"
	"github.com/tombee/zkctl/internal/probe"
	"github.com/tombee/zkctl/internal/tracing"
)

const (
	// LaunchGrace is the grace period handed to the supervisor on start.
	LaunchGrace = 5 * time.Second

	// TerminateGrace is how long stop waits before escalating to SIGKILL.
	TerminateGrace = 7 * time.Second

	// ProbeHost is where the health probe connects.
	ProbeHost = "localhost"
)

// Supervisor launches and tracks the managed process by pidfile.
type Supervisor interface {
	Launch(ctx context.Context, spec lifecycle.LaunchSpec) (int, error)
	Terminate(ctx context.Context, pidfile string, grace time.Duration) error
	IsAlive(pidfile string) bool
}

// Controller drives the managed process described by one parameter set.
type Controller struct {
	params      *params.Params
	supervisor  Supervisor
	writer      *materialize.Writer
	resolveUser params.UserResolver
	liveness    params.LivenessFunc
	logger      *slog.Logger

	tracer        trace.Tracer
	probeDuration metric.Float64Histogram
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// WithUserResolver sets the fallback used when the parameter set has no user.
func WithUserResolver(resolve params.UserResolver) Option {
	return func(c *Controller) { c.resolveUser = resolve }
}

// WithProber replaces the network probe. A liveness check carried by the
// parameter set still takes precedence.
func WithProber(fn params.LivenessFunc) Option {
	return func(c *Controller) { c.liveness = fn }
}

// WithWriter sets the file writer used for config and myid.
func WithWriter(w *materialize.Writer) Option {
	return func(c *Controller) { c.writer = w }
}

// New creates a Controller for p.
func New(p *params.Params, supervisor Supervisor, opts ...Option) *Controller {
	c := &Controller{
		params:      p,
		supervisor:  supervisor,
		writer:      materialize.NewWriter(),
		resolveUser: params.CurrentUser,
		liveness:    probe.Probe,
		logger:      slog.Default(),
		tracer:      otel.Tracer(tracing.InstrumentationName),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = internallog.WithComponent(c.logger, "controller")

	hist, err := otel.Meter(tracing.InstrumentationName).Float64Histogram(
		"zkctl.probe.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Duration of status checks including the network probe"),
	)
	if err == nil {
		c.probeDuration = hist
	}
	return c
}

// Params returns the parameter set the controller was built with.
func (c *Controller) Params() *params.Params {
	return c.params
}

// Command returns the launch command line.
func (c *Controller) Command() []string {
	return BuildCommand(c.params)
}

// Render writes the config and myid files without launching anything.
func (c *Controller) Render(ctx context.Context) error {
	_, span := c.tracer.Start(ctx, "zkctl.render")
	defer span.End()

	err := c.render()
	endSpan(span, err)
	return err
}

func (c *Controller) render() error {
	if err := c.writer.WriteConfig(c.params); err != nil {
		metrics.RecordMaterializeFailure("config")
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := c.writer.WriteMyID(c.params); err != nil {
		metrics.RecordMaterializeFailure("myid")
		return fmt.Errorf("failed to write myid: %w", err)
	}
	return nil
}

// Start renders the config and myid files and launches the process. It
// returns once the supervisor reports the process launched and tracked;
// it does not wait for the process to become healthy. A rendering failure
// aborts before anything is launched.
func (c *Controller) Start(ctx context.Context) (pid int, err error) {
	ctx, span := c.tracer.Start(ctx, "zkctl.start",
		trace.WithAttributes(attribute.String("zkctl.pidfile", c.params.PIDFile())))
	logger := internallog.WithOperation(c.logger, "start")
	defer func() {
		metrics.RecordOperation("start", err)
		endSpan(span, err)
	}()

	if err := c.render(); err != nil {
		logger.Error("rendering failed, not launching", internallog.Error(err))
		return 0, err
	}

	user, err := c.params.User(c.resolveUser)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve user: %w", err)
	}

	spec := lifecycle.LaunchSpec{
		Command:     c.Command(),
		PIDFile:     c.params.PIDFile(),
		GracePeriod: LaunchGrace,
		LogFile:     c.params.LogFile(),
		StdoutFile:  c.params.StdoutFile(),
		StderrFile:  c.params.StderrFile(),
		User:        user,
	}
	logger.Debug("launching",
		slog.Any("command", spec.Command),
		slog.String(internallog.PIDFileKey, spec.PIDFile))

	pid, err = c.supervisor.Launch(ctx, spec)
	if err != nil {
		return 0, err
	}

	span.SetAttributes(attribute.Int("zkctl.pid", pid))
	logger.Info("launched",
		slog.Int(internallog.PIDKey, pid),
		slog.String(internallog.PIDFileKey, spec.PIDFile))
	return pid, nil
}

// Stop terminates the tracked process with TerminateGrace before SIGKILL.
// The supervisor's result is returned unchanged.
func (c *Controller) Stop(ctx context.Context) (err error) {
	ctx, span := c.tracer.Start(ctx, "zkctl.stop",
		trace.WithAttributes(attribute.String("zkctl.pidfile", c.params.PIDFile())))
	defer func() {
		metrics.RecordOperation("stop", err)
		endSpan(span, err)
	}()

	err = c.supervisor.Terminate(ctx, c.params.PIDFile(), TerminateGrace)
	if err == nil {
		internallog.WithOperation(c.logger, "stop").Info("stopped",
			slog.String(internallog.PIDFileKey, c.params.PIDFile()))
	}
	return err
}

// Status classifies the managed process. When the supervisor reports the
// pidfile process dead the result is NotRunning and no connection is made.
// Network problems are folded into the result and never returned.
func (c *Controller) Status(ctx context.Context) probe.Status {
	ctx, span := c.tracer.Start(ctx, "zkctl.status")
	defer span.End()
	start := time.Now()

	status := c.status()

	span.SetAttributes(attribute.String("zkctl.status", status.String()))
	if c.probeDuration != nil {
		c.probeDuration.Record(ctx, time.Since(start).Seconds(),
			metric.WithAttributes(attribute.String("status", status.String())))
	}
	metrics.RecordProbe(status.String(), int(status))
	metrics.RecordOperation("status", nil)

	internallog.WithOperation(c.logger, "status").Debug("status checked",
		slog.String(internallog.StatusKey, status.String()),
		slog.Int(internallog.PortKey, c.params.ProbePort()),
		slog.Duration("elapsed", time.Since(start)))
	return status
}

func (c *Controller) status() probe.Status {
	if !c.supervisor.IsAlive(c.params.PIDFile()) {
		return probe.NotRunning
	}

	check := c.params.LivenessCheck()
	if check == nil {
		check = c.liveness
	}
	return check(ProbeHost, c.params.ProbePort())
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
