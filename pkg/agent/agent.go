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

// Package agent implements component D of the spec: the per-service state
// machine that decides whether to reuse, restart, or recreate a
// container, runs pre/post-start hooks, and polls readiness. Grounded on
// original_source/miniboss/service_agent.py, re-expressed per spec §9
// Design Notes as a data record plus an execute function rather than a
// Thread subclass — the orchestrator spawns each agent as a goroutine.
package agent

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/miniboss-dev/miniboss/pkg/api"
	"github.com/miniboss-dev/miniboss/pkg/ctxstore"
	"github.com/miniboss-dev/miniboss/pkg/engine"
	"github.com/miniboss-dev/miniboss/pkg/registry"
)

// Failer is the subset of runstate.RunningContext an agent reports
// outcomes to. Kept as an interface so agent has no import of runstate
// (which itself depends on agent only through the narrow Node interface).
type Failer interface {
	ServiceStarted(service string)
	ServiceStopped(service string)
	ServiceFailed(service string)
}

// Agent is the per-service runtime actor. It owns one service definition,
// the shared run options, and a back-pointer to the running context.
type Agent struct {
	def       *registry.Definition
	opts      api.Options
	eng       engine.Engine
	ctx       *ctxstore.Store
	hooks     api.Hooks
	rc        Failer
	groupName string

	openDependencies map[string]struct{}
	openDependants   map[string]struct{}

	status       api.AgentStatus
	action       api.Action
	runCondition *api.RunCondition
}

// New builds an Agent for def, sharing the given engine, context store,
// hooks, running context and group name across every agent of a run.
func New(def *registry.Definition, opts api.Options, eng engine.Engine, ctx *ctxstore.Store, hooks api.Hooks, rc Failer, groupName string) *Agent {
	deps := make(map[string]struct{}, len(def.Dependencies))
	for _, d := range def.Dependencies {
		deps[d] = struct{}{}
	}
	dependants := make(map[string]struct{}, len(def.Dependants))
	for _, d := range def.Dependants {
		dependants[d] = struct{}{}
	}
	return &Agent{
		def:              def,
		opts:             opts,
		eng:              eng,
		ctx:              ctx,
		hooks:            hooks,
		rc:               rc,
		groupName:        groupName,
		openDependencies: deps,
		openDependants:   dependants,
		status:           api.AgentStatusNull,
		runCondition:     api.NewRunCondition(),
	}
}

// SetRunningContext attaches the running context an agent reports
// outcomes to. Construction of a running context needs every agent's Node
// view first, so agents are built with a nil Failer and wired to their
// shared running context immediately after it is built.
func (a *Agent) SetRunningContext(rc Failer) { a.rc = rc }

// Definition returns the agent's service definition.
func (a *Agent) Definition() *registry.Definition { return a.def }

// Status returns the agent's current status.
func (a *Agent) Status() api.AgentStatus { return a.status }

// RunCondition returns the agent's START action trace, valid once the
// agent has run.
func (a *Agent) RunCondition() *api.RunCondition { return a.runCondition }

// --- runstate.Node interface -------------------------------------------------

func (a *Agent) Name() string { return a.def.Name }

func (a *Agent) OpenDependencies() []string {
	out := make([]string, 0, len(a.openDependencies))
	for d := range a.openDependencies {
		out = append(out, d)
	}
	return out
}

func (a *Agent) OpenDependants() []string {
	out := make([]string, 0, len(a.openDependants))
	for d := range a.openDependants {
		out = append(out, d)
	}
	return out
}

func (a *Agent) RemoveOpenDependency(name string) { delete(a.openDependencies, name) }
func (a *Agent) RemoveOpenDependant(name string)  { delete(a.openDependants, name) }
func (a *Agent) IsIdle() bool                     { return a.status == api.AgentStatusNull }

// --- container naming --------------------------------------------------

// ContainerNamePrefix is "{service_name}-{group_name}" (spec §4.D).
func (a *Agent) ContainerNamePrefix() string {
	return fmt.Sprintf("%s-%s", a.def.Name, a.groupName)
}

// --- dispatch ------------------------------------------------------------

// SetAction assigns the agent's action. Any value other than Start/Stop
// is a programmer error (spec §3).
func (a *Agent) SetAction(action api.Action) error {
	if action != api.ActionStart && action != api.ActionStop {
		return fmt.Errorf("%w: action must be start or stop", api.ErrAgentContract)
	}
	a.action = action
	return nil
}

// Dispatch assigns action and moves the agent out of NULL synchronously,
// so the orchestrator's driver loop can mark an agent in-progress before
// handing it to a goroutine — without this, two poll iterations could
// both see IsIdle() true for the same agent and spawn it twice.
func (a *Agent) Dispatch(action api.Action) error {
	if err := a.SetAction(action); err != nil {
		return err
	}
	a.status = api.AgentStatusInProgress
	return nil
}

// Run executes the agent's assigned action to completion, reporting the
// outcome to the running context before returning. It is the function the
// orchestrator spawns as a goroutine per ready (and already-dispatched)
// agent.
func (a *Agent) Run(ctx context.Context) {
	if a.action == "" {
		a.status = api.AgentStatusFailed
		a.rc.ServiceFailed(a.def.Name)
		logrus.WithField("service", a.def.Name).WithError(api.ErrAgentContract).Error("agent run invoked without an action set")
		return
	}
	switch a.action {
	case api.ActionStart:
		a.startContainer(ctx)
	case api.ActionStop:
		a.stopContainer(ctx)
	}
}
