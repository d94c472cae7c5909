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

func newStopCommand(deps *commandDeps) *cobra.Command {
	var (
		exclude     string
		networkName string
		timeout     int
		remove      bool
	)
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop every service not excluded, in reverse dependency order",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := runDir()
			if err != nil {
				return err
			}
			reg, err := deps.registry.ExcludeForStop(splitExclude(exclude))
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
				Network: api.Network{Name: networkName},
				Timeout: timeout,
				Remove:  remove,
				RunDir:  dir,
			}
			stopped, err := orch.StopAll(cmd.Context(), reg, opts, deps.registry.Len())
			if err != nil {
				return err
			}
			logrus.WithField("stopped", stopped).Info("all services stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&exclude, "exclude", "", "names of services to exclude (comma-separated)")
	cmd.Flags().StringVar(&networkName, "network-name", "", "network to use (default miniboss-{group})")
	cmd.Flags().IntVar(&timeout, "timeout", 50, "timeout for stopping a service (seconds)")
	cmd.Flags().BoolVar(&remove, "remove", false, "remove containers and, absent exclusions, the network")
	return cmd
}
