/*
   Copyright 2020 Docker Compose CLI authors

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

package miniboss

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/miniboss-dev/miniboss/pkg/api"
	"github.com/miniboss-dev/miniboss/pkg/ctxstore"
	"github.com/miniboss-dev/miniboss/pkg/fsstore"
	"github.com/miniboss-dev/miniboss/pkg/orchestrator"
)

func newStartCommand(deps *commandDeps) *cobra.Command {
	var (
		exclude          string
		networkName      string
		timeout          int
		runNewContainers bool
	)
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start every service not excluded, in dependency order",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := runDir()
			if err != nil {
				return err
			}
			reg, err := deps.registry.ExcludeForStart(splitExclude(exclude))
			if err != nil {
				return err
			}

			eng, err := newEngine()
			if err != nil {
				return fmt.Errorf("connect to container engine: %w", err)
			}
			ctx := ctxstore.New()
			fs := fsstore.NewLocal()
			if err := ctx.LoadFrom(fs, dir); err != nil {
				logrus.WithError(err).Warn("could not load context file before start")
			}
			orch := orchestrator.New(eng, fs, ctx, deps.hooks, "")
			if networkName == "" {
				networkName = orch.DefaultNetworkName(dir)
			}

			opts := api.Options{
				Network:          api.Network{Name: networkName},
				Timeout:          timeout,
				RunDir:           dir,
				RunNewContainers: runNewContainers,
			}
			started, err := orch.StartAll(cmd.Context(), reg, opts)
			if err != nil {
				logrus.WithField("started", started).Error("start completed with failures")
				return err
			}
			logrus.WithField("started", started).Info("all services started")
			return nil
		},
	}
	cmd.Flags().StringVar(&exclude, "exclude", "", "names of services to exclude (comma-separated)")
	cmd.Flags().StringVar(&networkName, "network-name", "", "network to use (default miniboss-{group})")
	cmd.Flags().IntVar(&timeout, "timeout", 300, "timeout for starting a service (seconds)")
	cmd.Flags().BoolVar(&runNewContainers, "run-new-containers", false, "create new containers instead of reusing existing ones")
	return cmd
}
