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

package server

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tombee/zkctl/internal/commands/shared"
	"github.com/tombee/zkctl/internal/controller"
	internallog "github.com/tombee/zkctl/internal/log"
	"github.com/tombee/zkctl/internal/params"
	"github.com/tombee/zkctl/internal/watch"
)

// NewWatchCommand creates the watch command.
func NewWatchCommand() *cobra.Command {
	var debounce = watch.DefaultDebounce

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-render configuration whenever the parameter file changes",
		Long: `Render the configuration once, then watch the parameter file and
render again after every change. An edit that fails validation is logged
and skipped; the files from the last valid edit stay in place.

The server is not restarted.`,
		Example: `  zkctl watch --params /etc/zkctl/params.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return shared.Run(cmd, func(ctx context.Context, s *shared.Session) error {
				path := shared.GetParamsPath()
				if path == "" {
					return &shared.ExitError{
						Code:    shared.ExitInvalidParams,
						Message: "watch needs a parameter file; use --params or set " + params.EnvParamsFile,
					}
				}

				apply := func(ctx context.Context, p *params.Params) error {
					return controller.New(p, s.NewDaemon(p), controller.WithLogger(s.Logger)).Render(ctx)
				}

				ctrl, err := s.NewController()
				if err != nil {
					return err
				}
				if err := ctrl.Render(ctx); err != nil {
					return err
				}

				r, err := watch.NewReloader(path, s.LoadParams, apply, s.Logger)
				if err != nil {
					return err
				}
				r.WithDebounce(debounce)

				ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
				defer stop()

				s.Logger.Info("watching for changes", slog.String("path", path))
				if err := r.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					s.Logger.Error("watch stopped", internallog.Error(err))
					return err
				}
				return nil
			})
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "Quiet period after a change before rendering")

	return cmd
}
