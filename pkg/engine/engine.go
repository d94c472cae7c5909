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

// Package engine is the container-runtime port consumed by pkg/agent and
// pkg/orchestrator (spec §6.1). The core never imports a Docker SDK
// directly; pkg/engine/docker provides the production adapter.
package engine

import "context"

// ContainerStatus mirrors the subset of Docker container states the core
// cares about.
type ContainerStatus string

const (
	StatusRunning ContainerStatus = "running"
	StatusExited  ContainerStatus = "exited"
	StatusCreated ContainerStatus = "created"
	StatusPaused  ContainerStatus = "paused"
)

// ImageInfo exposes the subset of image metadata the reconciliation
// algorithm in spec §4.D needs.
type ImageInfo struct {
	Tags []string
}

// ContainerHandle exposes the subset of a Docker container the core
// reconciles against: identity, status, reported image tags, and the
// container's own environment (as KEY=VALUE strings, matching Docker's
// inspect format).
type ContainerHandle struct {
	ID     string
	Name   string
	Status ContainerStatus
	Image  ImageInfo
	Env    []string
}

// EnvMap parses the container's Env lines into a key/value map, the same
// transform original_source/miniboss/service_agent.py's container_env
// performs before diffing against a service's declared env.
func (c ContainerHandle) EnvMap() map[string]string {
	out := make(map[string]string, len(c.Env))
	for _, line := range c.Env {
		key, value, ok := splitEnvLine(line)
		if ok {
			out[key] = value
		}
	}
	return out
}

func splitEnvLine(line string) (string, string, bool) {
	for i := 0; i < len(line); i++ {
		if line[i] == '=' {
			return line[:i], line[i+1:], true
		}
	}
	return "", "", false
}

// ServiceSpec is the subset of a service definition the engine port needs
// to create and run a container. It is distinct from registry.Definition
// so the engine package has no dependency on pkg/registry.
type ServiceSpec struct {
	Name         string
	Image        string
	Ports        map[int]int // container port -> host port
	Env          map[string]string
	Entrypoint   []string
	Command      []string
	User         string
	StopSignal   string
	VolumeBinds  []string // "host:container[:mode]" form, ready for the engine
	VolumeMounts []string // container-side mount paths, for Config.Volumes
}

// Network identifies the shared user network. ID is populated once the
// engine has resolved or created it.
type Network struct {
	Name string
	ID   string
}

// NotRunningError is the interface a RunServiceOnNetwork/RunContainer
// error implements when a created container left the running state
// before the adapter could verify it; pkg/agent type-asserts for it to
// build the spec's ContainerStartError with captured logs.
type NotRunningError interface {
	error
	Name() string
	Logs() string
}

// Engine is the container-runtime port (spec §6.1).
type Engine interface {
	// CreateNetwork is idempotent by name: returns the existing network if
	// present, else creates a bridge network.
	CreateNetwork(ctx context.Context, name string) (Network, error)
	// RemoveNetwork is idempotent: a no-op if the network is absent.
	RemoveNetwork(ctx context.Context, name string) error
	// ExistingOnNetwork lists containers on network whose names begin with
	// prefix.
	ExistingOnNetwork(ctx context.Context, prefix string, network Network) ([]ContainerHandle, error)
	// CheckImage ensures the image exists locally, pulling it if absent.
	CheckImage(ctx context.Context, tag string) error
	// BuildImage builds and tags an image from buildDir/dockerfile.
	BuildImage(ctx context.Context, buildDir, dockerfile, tag string) error
	// RunServiceOnNetwork creates, attaches, and starts a new container for
	// service on network, returning its generated name.
	RunServiceOnNetwork(ctx context.Context, prefix string, service ServiceSpec, network Network) (string, error)
	// RunContainer starts an existing (non-running) container by id and
	// waits for it to reach running.
	RunContainer(ctx context.Context, id string) error
	// StopContainer stops a running container, waiting up to timeout.
	StopContainer(ctx context.Context, id string, timeout int) error
	// RemoveContainer removes a stopped container.
	RemoveContainer(ctx context.Context, id string) error
	// ContainerLogs returns the captured logs of a container, used to
	// enrich ContainerStartError.
	ContainerLogs(ctx context.Context, id string) (string, error)
}
