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

// Package miniboss is the CLI surface of spec §6.4. It is a library
// package, not a standalone binary: a caller supplies its service
// definitions and optional hooks programmatically (mirroring
// original_source/miniboss/cli.py's expectation that the calling script
// itself declares services) and invokes Execute from its own main.
// Grounded on the teacher's cmd/compose, which follows the identical
// shape: a root cobra.Command plus one file per subcommand.
package miniboss

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/miniboss-dev/miniboss/pkg/api"
	"github.com/miniboss-dev/miniboss/pkg/engine/docker"
	"github.com/miniboss-dev/miniboss/pkg/registry"
)

// Execute builds the root command over specs and hooks, runs it against
// os.Args, and exits the process with a non-zero status on failure — the
// same contract original_source/miniboss/cli.py's click group offers a
// calling script.
func Execute(specs []registry.ServiceSpec, hooks api.Hooks) {
	root, err := NewRootCommand(specs, hooks)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// NewRootCommand builds the "miniboss" cobra command tree: start, stop,
// and reload, each backed by the same registry (built once from specs)
// and a freshly constructed orchestrator per invocation.
func NewRootCommand(specs []registry.ServiceSpec, hooks api.Hooks) (*cobra.Command, error) {
	reg, err := registry.Build(specs)
	if err != nil {
		return nil, fmt.Errorf("load service definitions: %w", err)
	}

	var logLevel string
	root := &cobra.Command{
		Use:           "miniboss",
		Short:         "Start, stop, and reload a local dependency-ordered container stack",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return fmt.Errorf("invalid --log-level %q: %w", logLevel, err)
			}
			logrus.SetLevel(level)
			logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
			return nil
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")

	deps := &commandDeps{registry: reg, hooks: hooks}
	root.AddCommand(newStartCommand(deps))
	root.AddCommand(newStopCommand(deps))
	root.AddCommand(newReloadCommand(deps))
	return root, nil
}

// commandDeps is shared by every subcommand builder.
type commandDeps struct {
	registry *registry.Registry
	hooks    api.Hooks
}

// newEngine builds the production Docker adapter. Broken out so it runs
// lazily, inside a command's RunE, rather than at process startup — a
// caller building the command tree for --help should not need a reachable
// Docker daemon.
func newEngine() (*docker.Client, error) {
	return docker.New()
}

func runDir() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("determine run directory: %w", err)
	}
	return dir, nil
}

// splitExclude parses a comma-separated --exclude flag. An empty flag
// yields nil, never a one-element slice containing "" (spec §9
// supplemented features: original_source/miniboss/cli.py's naive
// exclude.split(",") only avoids this because Python's falsy-string check
// short-circuits; Go's strings.Split does not, so it is handled
// explicitly here).
func splitExclude(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(raw); i++ {
		if i == len(raw) || raw[i] == ',' {
			out = append(out, raw[start:i])
			start = i + 1
		}
	}
	return out
}
