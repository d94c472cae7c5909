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

// Package orchestrator implements component E of the spec: given a
// registry its caller has already built (and, for start/stop, reduced by
// exclusions), it ensures the shared network exists, spawns agents as
// ready, and drives the poll loop
// until every agent reaches a terminal status. Grounded on
// original_source/miniboss/main.py's start_services/stop_services/
// reload_service and on the teacher's pkg/compose convergence loop
// (fan out, wait, collect).
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/miniboss-dev/miniboss/internal/groupname"
	"github.com/miniboss-dev/miniboss/pkg/agent"
	"github.com/miniboss-dev/miniboss/pkg/api"
	"github.com/miniboss-dev/miniboss/pkg/ctxstore"
	"github.com/miniboss-dev/miniboss/pkg/engine"
	"github.com/miniboss-dev/miniboss/pkg/fsstore"
	"github.com/miniboss-dev/miniboss/pkg/registry"
	"github.com/miniboss-dev/miniboss/pkg/runstate"
)

const pollInterval = 10 * time.Millisecond

// Orchestrator wires the container engine, the context store, the
// filesystem port and the published hooks together. One instance is
// reused across start/stop/reload calls against the same run directory.
type Orchestrator struct {
	eng       engine.Engine
	fs        fsstore.Store
	ctx       *ctxstore.Store
	hooks     api.Hooks
	groupName string
}

// New builds an Orchestrator. groupName, if empty, is derived from the
// base name of each call's options.RunDir.
func New(eng engine.Engine, fs fsstore.Store, ctx *ctxstore.Store, hooks api.Hooks, groupName string) *Orchestrator {
	return &Orchestrator{eng: eng, fs: fs, ctx: ctx, hooks: hooks, groupName: groupName}
}

func (o *Orchestrator) resolveGroupName(runDir string) string {
	if o.groupName != "" {
		return groupname.Slugify(o.groupName)
	}
	return groupname.FromRunDir(runDir)
}

// DefaultNetworkName is "miniboss-{group_name}", the CLI's default
// --network-name (spec §6.4).
func (o *Orchestrator) DefaultNetworkName(runDir string) string {
	return "miniboss-" + o.resolveGroupName(runDir)
}

// StartAll is spec §4.E's start_all: ensure the network, build a running
// context over reg, and drive agents to completion. It returns the names
// of services that reached STARTED; a non-nil error means the network
// could not be created (nothing started) or at least one agent failed
// (the names of successful starts are still returned and are still safe
// to treat as running).
func (o *Orchestrator) StartAll(ctx context.Context, reg *registry.Registry, opts api.Options) ([]string, error) {
	runID := uuid.New()
	log := logrus.WithField("run_id", runID)

	network, err := o.eng.CreateNetwork(ctx, opts.Network.Name)
	if err != nil {
		return nil, api.EngineErrorf("create network %s: %v", opts.Network.Name, err)
	}
	opts.Network = api.Network{Name: network.Name, ID: network.ID}

	groupName := o.resolveGroupName(opts.RunDir)
	agents := make(map[string]*agent.Agent, reg.Len())
	nodes := make(map[string]runstate.Node, reg.Len())
	for _, def := range reg.All() {
		a := agent.New(def, opts, o.eng, o.ctx, o.hooks, nil, groupName)
		agents[def.Name] = a
		nodes[def.Name] = a
	}
	rc := runstate.New(nodes)
	for _, a := range agents {
		a.SetRunningContext(rc)
		// A dependency outside reg (e.g. the services a reloaded one
		// depends on) is not started by this call and never blocks it.
		for _, dep := range a.OpenDependencies() {
			if _, inRun := agents[dep]; !inRun {
				a.RemoveOpenDependency(dep)
			}
		}
	}

	o.drive(ctx, rc, rc.ReadyToStart, func(a *agent.Agent) error { return a.Dispatch(api.ActionStart) }, agents)

	processed := rc.Processed()
	failed := rc.Failed()
	log.WithFields(logrus.Fields{"started": len(processed), "failed": len(failed)}).Info("start_all complete")

	if saveErr := o.ctx.SaveTo(o.fs, opts.RunDir); saveErr != nil {
		log.WithError(saveErr).Error("could not save context file")
	}

	if o.hooks.OnStartServices != nil {
		o.invokeHook(func() { o.hooks.OnStartServices(processed) })
	}

	if len(failed) > 0 {
		log.WithField("failed", failed).Error("one or more services failed to start")
		return processed, fmt.Errorf("%w: services failed to start: %v", api.ErrEngine, failed)
	}
	return processed, nil
}

// StopAll is spec §4.E's stop_all: drive every agent through the STOP
// action in dependants-first order, then remove the network if
// opts.Remove is set and reg covers every service (no exclusions).
func (o *Orchestrator) StopAll(ctx context.Context, reg *registry.Registry, opts api.Options, fullRegistrySize int) ([]string, error) {
	log := logrus.WithField("run_id", uuid.New())

	groupName := o.resolveGroupName(opts.RunDir)
	agents := make(map[string]*agent.Agent, reg.Len())
	nodes := make(map[string]runstate.Node, reg.Len())
	for _, def := range reg.All() {
		a := agent.New(def, opts, o.eng, o.ctx, o.hooks, nil, groupName)
		agents[def.Name] = a
		nodes[def.Name] = a
	}
	rc := runstate.New(nodes)
	for _, a := range agents {
		a.SetRunningContext(rc)
	}

	o.drive(ctx, rc, rc.ReadyToStop, func(a *agent.Agent) error { return a.Dispatch(api.ActionStop) }, agents)

	processed := rc.Processed()
	log.WithField("stopped", len(processed)).Info("stop_all complete")

	if opts.Remove && reg.Len() == fullRegistrySize {
		// The network teardown and the context-file teardown touch
		// unrelated backends (the engine, the filesystem) and neither
		// depends on the other's outcome, so they run concurrently;
		// errgroup just collects whichever errors occur, it does not
		// cancel one on the other's failure.
		var g errgroup.Group
		g.Go(func() error { return o.eng.RemoveNetwork(ctx, opts.Network.Name) })
		g.Go(func() error { return o.ctx.RemoveFile(o.fs, opts.RunDir) })
		if err := g.Wait(); err != nil {
			log.WithError(err).Error("could not fully tear down network/context file")
		}
	}

	if o.hooks.OnStopServices != nil {
		o.invokeHook(func() { o.hooks.OnStopServices(processed) })
	}
	return processed, nil
}

// ReloadService is spec §4.E's reload_service: stop name and every
// service that transitively depends on it, then rebuild and restart that
// same scope with name forced into options.build.
func (o *Orchestrator) ReloadService(ctx context.Context, fullRegistry *registry.Registry, name string, opts api.Options) error {
	def, ok := fullRegistry.Get(name)
	if !ok {
		return api.ServiceLoadErrorf("no such service: %s", name)
	}
	if def.BuildFrom == "" {
		return api.ServiceLoadErrorf("service %s has no build_from, cannot reload", name)
	}

	scope, err := fullRegistry.ReverseReachable(name)
	if err != nil {
		return err
	}

	if _, err := o.StopAll(ctx, scope, opts, fullRegistry.Len()); err != nil {
		return err
	}

	if err := o.ctx.LoadFrom(o.fs, opts.RunDir); err != nil {
		logrus.WithField("service", name).WithError(err).Warn("could not load context file before reload restart")
	}

	restartOpts := opts
	restartOpts.Build = appendUnique(restartOpts.Build, name)
	if _, err := o.StartAll(ctx, scope, restartOpts); err != nil {
		return err
	}

	if o.hooks.OnReloadService != nil {
		o.invokeHook(func() { o.hooks.OnReloadService(name) })
	}
	return nil
}

func appendUnique(list []string, name string) []string {
	for _, existing := range list {
		if existing == name {
			return list
		}
	}
	return append(append([]string(nil), list...), name)
}

// drive is the orchestrator's 10ms poll loop (spec §4.E step 3 / §5): while
// the running context is not done, dispatch every agent ready reports and
// spawn it as a goroutine, then sleep. ready and dispatch must agree on
// direction (ReadyToStart+ActionStart, or ReadyToStop+ActionStop) — the
// caller selects the pair, the loop itself is direction-agnostic.
func (o *Orchestrator) drive(ctx context.Context, rc *runstate.RunningContext, ready func() []runstate.Node, dispatch func(*agent.Agent) error, agents map[string]*agent.Agent) {
	var wg sync.WaitGroup
	for !rc.Done() {
		nodes := ready()
		for _, node := range nodes {
			a := agents[node.Name()]
			if err := dispatch(a); err != nil {
				logrus.WithField("service", a.Name()).WithError(err).Error("could not dispatch agent")
				continue
			}
			wg.Add(1)
			go func(a *agent.Agent) {
				defer wg.Done()
				a.Run(ctx)
			}(a)
		}
		if len(nodes) == 0 {
			time.Sleep(pollInterval)
		}
	}
	wg.Wait()
}

// invokeHook recovers a panicking hook and logs it rather than letting it
// crash the orchestrator call, per spec §6.3.
func (o *Orchestrator) invokeHook(call func()) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithField("panic", r).Error("lifecycle hook panicked")
		}
	}()
	call()
}
