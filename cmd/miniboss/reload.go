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

func newReloadCommand(deps *commandDeps) *cobra.Command {
	var (
		networkName      string
		timeout          int
		remove           bool
		runNewContainers bool
	)
	cmd := &cobra.Command{
		Use:   "reload SERVICE",
		Short: "Stop and restart one service and everything that depends on it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := runDir()
			if err != nil {
				return err
			}
			eng, err := newEngine()
			if err != nil {
				return fmt.Errorf("connect to container engine: %w", err)
			}
			ctx := ctxstore.New()
			orch := orchestrator.New(eng, fsstore.NewLocal(), ctx, deps.hooks, "")
			if networkName == "" {
				networkName = orch.DefaultNetworkName(dir)
			}

			opts := api.Options{
				Network:          api.Network{Name: networkName},
				Timeout:          timeout,
				Remove:           remove,
				RunDir:           dir,
				RunNewContainers: runNewContainers,
			}
			if err := orch.ReloadService(cmd.Context(), deps.registry, args[0], opts); err != nil {
				return err
			}
			logrus.WithField("service", args[0]).Info("service reloaded")
			return nil
		},
	}
	cmd.Flags().StringVar(&networkName, "network-name", "", "network to use (default miniboss-{group})")
	cmd.Flags().IntVar(&timeout, "timeout", 50, "timeout for stopping/starting a service (seconds)")
	cmd.Flags().BoolVar(&remove, "remove", false, "remove the stopped container before recreating it")
	cmd.Flags().BoolVar(&runNewContainers, "run-new-containers", false, "create new containers instead of reusing existing ones")
	return cmd
}
