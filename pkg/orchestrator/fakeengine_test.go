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

package orchestrator

import (
	"context"
	"sync"

	"github.com/miniboss-dev/miniboss/pkg/engine"
)

// fakeEngine is an in-memory engine.Engine shared by every orchestrator
// test: it never touches Docker, so tests can exercise the full dispatch
// loop across many agents quickly and deterministically. One service
// name may be configured to always fail its run, to exercise the
// fail-cascade path.
type fakeEngine struct {
	mu sync.Mutex

	network  engine.Network
	existing map[string][]engine.ContainerHandle // keyed by name prefix
	failName string

	runCalls           []string
	stopCalls          []string
	removeNetworkCalls int
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		network:  engine.Network{Name: "miniboss-test", ID: "net-1"},
		existing: map[string][]engine.ContainerHandle{},
	}
}

func (f *fakeEngine) CreateNetwork(ctx context.Context, name string) (engine.Network, error) {
	return f.network, nil
}

func (f *fakeEngine) RemoveNetwork(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removeNetworkCalls++
	return nil
}

func (f *fakeEngine) ExistingOnNetwork(ctx context.Context, prefix string, network engine.Network) ([]engine.ContainerHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]engine.ContainerHandle(nil), f.existing[prefix]...), nil
}

func (f *fakeEngine) CheckImage(ctx context.Context, tag string) error { return nil }

func (f *fakeEngine) BuildImage(ctx context.Context, buildDir, dockerfile, tag string) error {
	return nil
}

func (f *fakeEngine) RunServiceOnNetwork(ctx context.Context, prefix string, service engine.ServiceSpec, network engine.Network) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failName != "" && service.Name == f.failName {
		return "", &fakeNotRunningError{name: prefix + "-0001", logs: "simulated failure"}
	}
	name := prefix + "-0001"
	f.existing[prefix] = append(f.existing[prefix], engine.ContainerHandle{
		ID:     name,
		Name:   name,
		Status: engine.StatusRunning,
		Image:  engine.ImageInfo{Tags: []string{service.Image}},
	})
	f.runCalls = append(f.runCalls, name)
	return name, nil
}

func (f *fakeEngine) RunContainer(ctx context.Context, id string) error { return nil }

func (f *fakeEngine) StopContainer(ctx context.Context, id string, timeout int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopCalls = append(f.stopCalls, id)
	for prefix, handles := range f.existing {
		for i, h := range handles {
			if h.ID == id {
				f.existing[prefix][i].Status = engine.StatusExited
			}
		}
	}
	return nil
}

func (f *fakeEngine) RemoveContainer(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for prefix, handles := range f.existing {
		out := handles[:0]
		for _, h := range handles {
			if h.ID != id {
				out = append(out, h)
			}
		}
		f.existing[prefix] = out
	}
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

// fakeFS is an in-memory fsstore.Store, so context persistence tests
// never touch the real filesystem.
type fakeFS struct {
	mu     sync.Mutex
	values map[string]map[string]any
}

func newFakeFS() *fakeFS {
	return &fakeFS{values: map[string]map[string]any{}}
}

func (f *fakeFS) Save(dir string, values map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	snapshot := make(map[string]any, len(values))
	for k, v := range values {
		snapshot[k] = v
	}
	f.values[dir] = snapshot
	return nil
}

func (f *fakeFS) Load(dir string) (map[string]any, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[dir]
	if !ok {
		return nil, false, nil
	}
	return v, true, nil
}

func (f *fakeFS) Remove(dir string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.values[dir]
	delete(f.values, dir)
	return ok, nil
}
