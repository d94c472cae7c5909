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

package agent

import (
	"context"
	"sync"

	"github.com/miniboss-dev/miniboss/pkg/engine"
)

// fakeEngine is an in-memory engine.Engine for tests: no network I/O, no
// Docker daemon, just enough bookkeeping to drive the reconciliation and
// readiness paths pkg/agent exercises.
type fakeEngine struct {
	mu sync.Mutex

	network     engine.Network
	existing    []engine.ContainerHandle
	nextID      int
	runCalls    []string
	stopCalls   []string
	removeCalls []string
	buildCalls  int

	failRunServiceOnNetwork error
	failRunContainer        error
	notRunningName          string
	notRunningLogs          string
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{network: engine.Network{Name: "miniboss-test", ID: "net-1"}}
}

func (f *fakeEngine) CreateNetwork(ctx context.Context, name string) (engine.Network, error) {
	return f.network, nil
}

func (f *fakeEngine) RemoveNetwork(ctx context.Context, name string) error { return nil }

func (f *fakeEngine) ExistingOnNetwork(ctx context.Context, prefix string, network engine.Network) ([]engine.ContainerHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []engine.ContainerHandle
	for _, h := range f.existing {
		out = append(out, h)
	}
	return out, nil
}

func (f *fakeEngine) CheckImage(ctx context.Context, tag string) error { return nil }

func (f *fakeEngine) BuildImage(ctx context.Context, buildDir, dockerfile, tag string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buildCalls++
	return nil
}

func (f *fakeEngine) RunServiceOnNetwork(ctx context.Context, prefix string, service engine.ServiceSpec, network engine.Network) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failRunServiceOnNetwork != nil {
		return "", f.failRunServiceOnNetwork
	}
	if f.notRunningName != "" {
		return "", &fakeNotRunningError{name: f.notRunningName, logs: f.notRunningLogs}
	}
	f.nextID++
	name := prefix + "-0001"
	f.existing = append(f.existing, engine.ContainerHandle{
		ID:     name,
		Name:   name,
		Status: engine.StatusRunning,
		Image:  engine.ImageInfo{Tags: []string{service.Image}},
		Env:    envSliceFromMap(service.Env),
	})
	f.runCalls = append(f.runCalls, name)
	return name, nil
}

func (f *fakeEngine) RunContainer(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failRunContainer != nil {
		return f.failRunContainer
	}
	if f.notRunningName != "" {
		return &fakeNotRunningError{name: f.notRunningName, logs: f.notRunningLogs}
	}
	f.runCalls = append(f.runCalls, id)
	for i, h := range f.existing {
		if h.ID == id {
			f.existing[i].Status = engine.StatusRunning
		}
	}
	return nil
}

func (f *fakeEngine) StopContainer(ctx context.Context, id string, timeout int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopCalls = append(f.stopCalls, id)
	for i, h := range f.existing {
		if h.ID == id {
			f.existing[i].Status = engine.StatusExited
		}
	}
	return nil
}

func (f *fakeEngine) RemoveContainer(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removeCalls = append(f.removeCalls, id)
	out := f.existing[:0]
	for _, h := range f.existing {
		if h.ID != id {
			out = append(out, h)
		}
	}
	f.existing = out
	return nil
}

func (f *fakeEngine) ContainerLogs(ctx context.Context, id string) (string, error) {
	return "fake logs for " + id, nil
}

var _ engine.Engine = (*fakeEngine)(nil)

type fakeNotRunningError struct {
	name string
	logs string
}

func (e *fakeNotRunningError) Error() string { return "container " + e.name + " not running" }
func (e *fakeNotRunningError) Name() string  { return e.name }
func (e *fakeNotRunningError) Logs() string  { return e.logs }

var _ engine.NotRunningError = (*fakeNotRunningError)(nil)

func envSliceFromMap(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}
