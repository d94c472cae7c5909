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

// Package registry implements component B of the spec: validates a set of
// service definitions, resolves dependency names to edges, detects
// cycles, and computes dependants. It replaces the source's "subclass
// discovery" (spec §9 Design Notes) with an explicit builder that accepts
// concrete ServiceSpec values.
package registry

import (
	"github.com/miniboss-dev/miniboss/pkg/engine"
)

// StopSignal is the closed set of signals a service may ask for on stop.
type StopSignal string

const (
	SIGINT  StopSignal = "SIGINT"
	SIGTERM StopSignal = "SIGTERM"
	SIGKILL StopSignal = "SIGKILL"
	SIGQUIT StopSignal = "SIGQUIT"
)

var allowedStopSignals = map[StopSignal]struct{}{
	SIGINT: {}, SIGTERM: {}, SIGKILL: {}, SIGQUIT: {},
}

// VolumeBind is one entry of a volumes mapping keyed by host path.
type VolumeBind struct {
	Bind string
	Mode string
}

// PingFunc is called during readiness polling. The default always
// succeeds immediately, matching Service.ping in the original source.
type PingFunc func() (bool, error)

// HookFunc is a pre/post-start lifecycle hook. Either may be nil.
type HookFunc func() error

// ServiceSpec is the immutable, user-supplied description of one service.
// It is the Go replacement for subclassing miniboss.Service: callers
// construct a ServiceSpec value per service and pass the set to Build.
type ServiceSpec struct {
	Name            string
	Image           string
	Ports           map[int]int // container port -> host port
	Env             map[string]any
	Dependencies    []string
	AlwaysStartNew  bool
	StopSignal      StopSignal
	BuildFrom       string
	Dockerfile      string
	Entrypoint      []string
	Command         []string
	User            string
	VolumeList      []string              // "host:container[:mode]" form
	VolumeMap       map[string]VolumeBind // host path -> {bind, mode}
	Ping            PingFunc
	PreStart        HookFunc
	PostStart       HookFunc
}

// Definition is a validated ServiceSpec after registration: dependency
// names have been confirmed to resolve and the reverse edges
// (Dependants) have been computed across the whole registry.
type Definition struct {
	ServiceSpec
	Dependencies []string // resolved (a copy of ServiceSpec.Dependencies)
	Dependants   []string // reverse edges computed by Build
}

// EngineSpec converts this definition into the shape the engine port
// needs. env is taken as given: the caller has already stringified it
// through the same coercion the reconciliation algorithm (spec §4.D
// step 3) applies when comparing against the container-reported
// environment.
func (d *Definition) EngineSpec(env map[string]string, image string) engine.ServiceSpec {
	return engine.ServiceSpec{
		Name:         d.Name,
		Image:        image,
		Ports:        d.Ports,
		Env:          env,
		Entrypoint:   d.Entrypoint,
		Command:      d.Command,
		User:         d.User,
		StopSignal:   string(defaultedStopSignal(d.StopSignal)),
		VolumeBinds:  d.volumeBinds(),
		VolumeMounts: d.VolumeContainerPaths(),
	}
}

func defaultedStopSignal(s StopSignal) StopSignal {
	if s == "" {
		return SIGTERM
	}
	return s
}

func (d *Definition) volumeBinds() []string {
	if len(d.VolumeList) > 0 {
		return append([]string(nil), d.VolumeList...)
	}
	binds := make([]string, 0, len(d.VolumeMap))
	for host, spec := range d.VolumeMap {
		bind := host + ":" + spec.Bind
		if spec.Mode != "" {
			bind += ":" + spec.Mode
		}
		binds = append(binds, bind)
	}
	return binds
}

// VolumeContainerPaths returns the container-side mount paths. EngineSpec
// carries it through as VolumeMounts so the Docker adapter can populate
// Config.Volumes alongside HostConfig.Binds (spec's volume_def_to_binds).
func (d *Definition) VolumeContainerPaths() []string {
	if len(d.VolumeMap) > 0 {
		paths := make([]string, 0, len(d.VolumeMap))
		for _, spec := range d.VolumeMap {
			paths = append(paths, spec.Bind)
		}
		return paths
	}
	paths := make([]string, 0, len(d.VolumeList))
	for _, v := range d.VolumeList {
		parts := splitVolume(v)
		if len(parts) >= 2 {
			paths = append(paths, parts[1])
		}
	}
	return paths
}

func splitVolume(v string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(v); i++ {
		if v[i] == ':' {
			parts = append(parts, v[start:i])
			start = i + 1
		}
	}
	parts = append(parts, v[start:])
	return parts
}
