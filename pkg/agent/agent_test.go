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
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miniboss-dev/miniboss/pkg/api"
	"github.com/miniboss-dev/miniboss/pkg/ctxstore"
	"github.com/miniboss-dev/miniboss/pkg/engine"
	"github.com/miniboss-dev/miniboss/pkg/registry"
)

// fakeFailer is a minimal Failer that just records what it was told.
type fakeFailer struct {
	mu      sync.Mutex
	started []string
	stopped []string
	failed  []string
}

func (f *fakeFailer) ServiceStarted(service string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, service)
}

func (f *fakeFailer) ServiceStopped(service string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = append(f.stopped, service)
}

func (f *fakeFailer) ServiceFailed(service string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed = append(f.failed, service)
}

func buildDefinition(t *testing.T, spec registry.ServiceSpec) *registry.Definition {
	t.Helper()
	reg, err := registry.Build([]registry.ServiceSpec{spec})
	require.NoError(t, err)
	def, ok := reg.Get(spec.Name)
	require.True(t, ok)
	return def
}

func newTestAgent(def *registry.Definition, eng *fakeEngine, opts api.Options) (*Agent, *fakeFailer) {
	failer := &fakeFailer{}
	a := New(def, opts, eng, ctxstore.New(), api.Hooks{}, failer, "group")
	return a, failer
}

func TestStartContainer_FreshCreateRunsPrePingPostInOrder(t *testing.T) {
	eng := newFakeEngine()
	var trace []string
	def := buildDefinition(t, registry.ServiceSpec{
		Name:  "web",
		Image: "web:1.0",
		PreStart: func() error {
			trace = append(trace, "pre-start")
			return nil
		},
		PostStart: func() error {
			trace = append(trace, "post-start")
			return nil
		},
		Ping: func() (bool, error) {
			trace = append(trace, "ping")
			return true, nil
		},
	})
	a, failer := newTestAgent(def, eng, api.Options{Timeout: 5})

	require.NoError(t, a.Dispatch(api.ActionStart))
	a.Run(context.Background())

	assert.Equal(t, []string{"pre-start", "ping", "post-start"}, trace)
	assert.Equal(t, api.AgentStatusStarted, a.Status())
	assert.Equal(t, []string{"web"}, failer.started)
	assert.True(t, a.RunCondition().Has(api.RunActionPreStart))
	assert.True(t, a.RunCondition().Has(api.RunActionStart))
	assert.True(t, a.RunCondition().Has(api.RunActionPing))
	assert.True(t, a.RunCondition().Has(api.RunActionPostStart))
}

func TestStartContainer_ReusesRunningContainerSkipsHooks(t *testing.T) {
	eng := newFakeEngine()
	eng.existing = []engine.ContainerHandle{
		{ID: "c1", Name: "web-group-0001", Status: engine.StatusRunning, Image: engine.ImageInfo{Tags: []string{"web:1.0"}}},
	}
	postStartCalled := false
	def := buildDefinition(t, registry.ServiceSpec{
		Name:  "web",
		Image: "web:1.0",
		PostStart: func() error {
			postStartCalled = true
			return nil
		},
	})
	a, failer := newTestAgent(def, eng, api.Options{Timeout: 5})

	require.NoError(t, a.Dispatch(api.ActionStart))
	a.Run(context.Background())

	assert.False(t, postStartCalled, "post-start must not run when reusing a running container")
	assert.Equal(t, api.AgentStatusStarted, a.Status())
	assert.Equal(t, api.RunStateRunning, a.RunCondition().State)
	assert.Equal(t, []string{"web"}, failer.started)
}

func TestStartContainer_RestartsExitedContainerWithMatchingEnvSkipsPostStart(t *testing.T) {
	eng := newFakeEngine()
	eng.existing = []engine.ContainerHandle{
		{
			ID: "c1", Name: "web-group-0001", Status: engine.StatusExited,
			Image: engine.ImageInfo{Tags: []string{"web:1.0"}},
			Env:   []string{"PORT=5432"},
		},
	}
	postStartCalled := false
	def := buildDefinition(t, registry.ServiceSpec{
		Name:  "web",
		Image: "web:1.0",
		Env:   map[string]any{"PORT": 5432}, // int compared against string-valued container env
		PostStart: func() error {
			postStartCalled = true
			return nil
		},
	})
	a, _ := newTestAgent(def, eng, api.Options{Timeout: 5})

	require.NoError(t, a.Dispatch(api.ActionStart))
	a.Run(context.Background())

	assert.False(t, postStartCalled, "post-start must not run on the restart-existing path")
	assert.Equal(t, api.AgentStatusStarted, a.Status())
	assert.Contains(t, eng.runCalls, "c1")
}

func TestStartContainer_RecreatesWhenEnvDiffers(t *testing.T) {
	eng := newFakeEngine()
	eng.existing = []engine.ContainerHandle{
		{
			ID: "c1", Name: "web-group-0001", Status: engine.StatusExited,
			Image: engine.ImageInfo{Tags: []string{"web:1.0"}},
			Env:   []string{"PORT=1111"},
		},
	}
	def := buildDefinition(t, registry.ServiceSpec{
		Name:  "web",
		Image: "web:1.0",
		Env:   map[string]any{"PORT": 5432},
	})
	a, _ := newTestAgent(def, eng, api.Options{Timeout: 5})

	require.NoError(t, a.Dispatch(api.ActionStart))
	a.Run(context.Background())

	assert.Equal(t, api.AgentStatusStarted, a.Status())
	require.Len(t, eng.runCalls, 1)
	assert.Equal(t, "web-group-0001", eng.runCalls[0]) // the freshly created container, not a restart of c1
}

func TestStartContainer_AlwaysStartNewForcesRecreate(t *testing.T) {
	eng := newFakeEngine()
	eng.existing = []engine.ContainerHandle{
		{
			ID: "c1", Name: "web-group-0001", Status: engine.StatusExited,
			Image: engine.ImageInfo{Tags: []string{"web:1.0"}},
		},
	}
	def := buildDefinition(t, registry.ServiceSpec{
		Name:           "web",
		Image:          "web:1.0",
		AlwaysStartNew: true,
	})
	a, _ := newTestAgent(def, eng, api.Options{Timeout: 5})

	require.NoError(t, a.Dispatch(api.ActionStart))
	a.Run(context.Background())

	assert.Equal(t, api.AgentStatusStarted, a.Status())
	assert.NotContains(t, eng.runCalls, "c1")
}

func TestStartContainer_RunNewContainersOptionForcesRecreate(t *testing.T) {
	eng := newFakeEngine()
	eng.existing = []engine.ContainerHandle{
		{ID: "c1", Name: "web-group-0001", Status: engine.StatusExited, Image: engine.ImageInfo{Tags: []string{"web:1.0"}}},
	}
	def := buildDefinition(t, registry.ServiceSpec{Name: "web", Image: "web:1.0"})
	a, _ := newTestAgent(def, eng, api.Options{Timeout: 5, RunNewContainers: true})

	require.NoError(t, a.Dispatch(api.ActionStart))
	a.Run(context.Background())

	assert.NotContains(t, eng.runCalls, "c1")
}

func TestStartContainer_ReadinessTimeoutFailsAndCleansUp(t *testing.T) {
	eng := newFakeEngine()
	def := buildDefinition(t, registry.ServiceSpec{
		Name:  "web",
		Image: "web:1.0",
		Ping: func() (bool, error) {
			return false, nil
		},
	})
	a, failer := newTestAgent(def, eng, api.Options{Timeout: 0})

	require.NoError(t, a.Dispatch(api.ActionStart))
	a.Run(context.Background())

	assert.Equal(t, api.AgentStatusFailed, a.Status())
	assert.Equal(t, []string{"web"}, failer.failed)
	require.Len(t, eng.stopCalls, 1)
	require.Len(t, eng.removeCalls, 1)
}

func TestStartContainer_ContextInterpolationFailurePropagatesAsFailure(t *testing.T) {
	eng := newFakeEngine()
	def := buildDefinition(t, registry.ServiceSpec{
		Name:  "web",
		Image: "web:1.0",
		Env:   map[string]any{"URL": "{missing}"},
	})
	a, failer := newTestAgent(def, eng, api.Options{Timeout: 5})

	require.NoError(t, a.Dispatch(api.ActionStart))
	a.Run(context.Background())

	assert.Equal(t, api.AgentStatusFailed, a.Status())
	assert.Equal(t, []string{"web"}, failer.failed)
}

func TestStartContainer_ContainerStartErrorCarriesLogs(t *testing.T) {
	eng := newFakeEngine()
	eng.notRunningName = "web-group-0001"
	eng.notRunningLogs = "boom"
	def := buildDefinition(t, registry.ServiceSpec{Name: "web", Image: "web:1.0"})
	a, failer := newTestAgent(def, eng, api.Options{Timeout: 5})

	require.NoError(t, a.Dispatch(api.ActionStart))
	a.Run(context.Background())

	assert.Equal(t, api.AgentStatusFailed, a.Status())
	assert.Equal(t, []string{"web"}, failer.failed)
	// classification of the underlying NotRunningError into a
	// ContainerStartError is covered directly below.
}

func TestClassifyRunError_WrapsNotRunningIntoContainerStartError(t *testing.T) {
	eng := newFakeEngine()
	def := buildDefinition(t, registry.ServiceSpec{Name: "web", Image: "web:1.0"})
	a, _ := newTestAgent(def, eng, api.Options{Timeout: 5})

	wrapped := a.classifyRunError(&fakeNotRunningError{name: "web-1", logs: "boom"})

	var startErr *api.ContainerStartError
	require.True(t, errors.As(wrapped, &startErr))
	assert.Equal(t, "web-1", startErr.ContainerName)
	assert.Equal(t, "boom", startErr.Logs)
}

func TestStopContainer_StopsRunningAndRemovesWhenRequested(t *testing.T) {
	eng := newFakeEngine()
	eng.existing = []engine.ContainerHandle{
		{ID: "c1", Name: "web-group-0001", Status: engine.StatusRunning},
	}
	def := buildDefinition(t, registry.ServiceSpec{Name: "web", Image: "web:1.0"})
	a, failer := newTestAgent(def, eng, api.Options{Timeout: 5, Remove: true})

	require.NoError(t, a.Dispatch(api.ActionStop))
	a.Run(context.Background())

	assert.Equal(t, api.AgentStatusStopped, a.Status())
	assert.Equal(t, []string{"web"}, failer.stopped)
	assert.Equal(t, []string{"c1"}, eng.stopCalls)
	assert.Equal(t, []string{"c1"}, eng.removeCalls)
}

func TestStopContainer_NoExistingContainersStillReportsStopped(t *testing.T) {
	eng := newFakeEngine()
	def := buildDefinition(t, registry.ServiceSpec{Name: "web", Image: "web:1.0"})
	a, failer := newTestAgent(def, eng, api.Options{Timeout: 5})

	require.NoError(t, a.Dispatch(api.ActionStop))
	a.Run(context.Background())

	assert.Equal(t, api.AgentStatusStopped, a.Status())
	assert.Equal(t, []string{"web"}, failer.stopped)
}

func TestRun_WithoutActionFailsWithContractError(t *testing.T) {
	eng := newFakeEngine()
	def := buildDefinition(t, registry.ServiceSpec{Name: "web", Image: "web:1.0"})
	a, failer := newTestAgent(def, eng, api.Options{Timeout: 5})

	a.Run(context.Background())

	assert.Equal(t, api.AgentStatusFailed, a.Status())
	assert.Equal(t, []string{"web"}, failer.failed)
}

func TestSetAction_RejectsUnknownAction(t *testing.T) {
	eng := newFakeEngine()
	def := buildDefinition(t, registry.ServiceSpec{Name: "web", Image: "web:1.0"})
	a, _ := newTestAgent(def, eng, api.Options{Timeout: 5})

	err := a.SetAction(api.Action("bogus"))
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrAgentContract)
}
