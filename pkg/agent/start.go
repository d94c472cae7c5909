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
	"fmt"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/miniboss-dev/miniboss/pkg/api"
	"github.com/miniboss-dev/miniboss/pkg/engine"
)

const pingInterval = 100 * time.Millisecond

func (a *Agent) log() *logrus.Entry {
	return logrus.WithField("service", a.def.Name)
}

// startContainer is the START action of spec §4.D. Any error anywhere in
// this method is treated as agent failure: mark FAILED, notify the
// running context, and if a container was actually started, stop and
// remove it so a partially initialized container is never leaked.
func (a *Agent) startContainer(ctx context.Context) {
	image := a.def.Image
	if a.shouldBuild() {
		built, err := a.buildImage(ctx)
		if err != nil {
			a.fail(ctx, "", err)
			return
		}
		image = built
		a.runCondition.BuiltImage()
	}

	env, err := a.resolveEnv()
	if err != nil {
		a.fail(ctx, "", err)
		return
	}

	containerID, alreadyRunning, freshlyCreated, err := a.reconcile(ctx, image, env)
	if err != nil {
		a.fail(ctx, containerID, err)
		return
	}

	if alreadyRunning {
		a.runCondition.AlreadyRunning()
		a.succeed()
		return
	}

	if err := a.ping(ctx); err != nil {
		a.fail(ctx, containerID, err)
		return
	}
	a.runCondition.Pinged()

	// Post-start follows only a brand new container create (spec §9
	// supplemented features): a restarted existing container never runs
	// it, since whatever post-start did on first creation still holds.
	if freshlyCreated && a.def.PostStart != nil {
		if err := a.def.PostStart(); err != nil {
			a.fail(ctx, containerID, fmt.Errorf("post-start hook: %w", err))
			return
		}
		a.runCondition.PostStarted()
	}
	a.succeed()
}

func (a *Agent) shouldBuild() bool {
	if a.def.BuildFrom == "" {
		return false
	}
	for _, name := range a.opts.Build {
		if name == a.def.Name {
			return true
		}
	}
	return isLatestTag(a.def.Image)
}

func isLatestTag(image string) bool {
	for i := len(image) - 1; i >= 0; i-- {
		if image[i] == ':' {
			return image[i+1:] == "latest"
		}
		if image[i] == '/' {
			break
		}
	}
	return false
}

func (a *Agent) buildImage(ctx context.Context) (string, error) {
	timeTag := buildTimeTag()
	tag := fmt.Sprintf("%s-%s-%s", a.def.Name, a.groupName, timeTag)
	buildDir := filepath.Join(a.opts.RunDir, a.def.BuildFrom)
	a.log().WithFields(logrus.Fields{"tag": tag, "dir": buildDir}).Info("building image")
	if err := a.eng.BuildImage(ctx, buildDir, a.def.Dockerfile, tag); err != nil {
		return "", api.EngineErrorf("build image for %s: %v", a.def.Name, err)
	}
	return tag, nil
}

// buildTimeTag is a package variable, so a test can replace the
// wall-clock time with a fixed one.
var buildTimeTag = func() string {
	return time.Now().Format("2006-01-02-1504")
}

func (a *Agent) resolveEnv() (map[string]string, error) {
	resolved, err := a.ctx.ExtrapolateValues(a.def.Env)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(resolved))
	for k, v := range resolved {
		out[k] = fmt.Sprint(v)
	}
	return out, nil
}

// reconcile implements spec §4.D step 3-4: look for a pre-existing
// container matching the name prefix on the network, and decide whether
// to reuse it (running), restart it (exited, env/image unchanged), or
// create a brand new one. The first deterministically ordered match
// (lowest container name) is treated as canonical when more than one
// exists, per spec §9 Open Questions.
func (a *Agent) reconcile(ctx context.Context, image string, env map[string]string) (containerID string, alreadyRunning, freshlyCreated bool, err error) {
	network := engine.Network{Name: a.opts.Network.Name, ID: a.opts.Network.ID}
	existing, err := a.eng.ExistingOnNetwork(ctx, a.ContainerNamePrefix(), network)
	if err != nil {
		return "", false, false, api.EngineErrorf("list existing containers for %s: %v", a.def.Name, err)
	}
	existing = canonicalOrder(existing)

	if len(existing) > 0 {
		candidate := existing[0]
		switch candidate.Status {
		case engine.StatusRunning:
			a.log().Info("found running container, reusing it")
			return candidate.ID, true, false, nil
		case engine.StatusExited:
			if !a.shouldRecreate(candidate, image, env) {
				a.log().WithField("container", candidate.Name).Info("restarting existing container")
				if err := a.eng.RunContainer(ctx, candidate.ID); err != nil {
					return candidate.ID, false, false, a.classifyRunError(err)
				}
				a.runCondition.Started()
				return candidate.ID, false, false, nil
			}
		}
	}

	if a.def.PreStart != nil {
		if err := a.def.PreStart(); err != nil {
			return "", false, false, fmt.Errorf("pre-start hook: %w", err)
		}
		a.runCondition.PreStarted()
	}

	spec := a.def.EngineSpec(env, image)
	a.log().Info("creating new container")
	name, err := a.eng.RunServiceOnNetwork(ctx, a.ContainerNamePrefix(), spec, network)
	if err != nil {
		return "", false, false, a.classifyRunError(err)
	}
	a.runCondition.Started()
	return name, false, true, nil
}

func canonicalOrder(containers []engine.ContainerHandle) []engine.ContainerHandle {
	out := append([]engine.ContainerHandle(nil), containers...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Name < out[j-1].Name; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func (a *Agent) classifyRunError(err error) error {
	var notRunning engine.NotRunningError
	if errors.As(err, &notRunning) {
		return api.NewContainerStartError(notRunning.Name(), notRunning.Logs())
	}
	return api.EngineErrorf("run container for %s: %v", a.def.Name, err)
}

// shouldRecreate is the env/image/always_start_new decision of spec §4.D
// step 3.
func (a *Agent) shouldRecreate(existing engine.ContainerHandle, image string, env map[string]string) bool {
	if a.opts.RunNewContainers || a.def.AlwaysStartNew {
		return true
	}
	if !containsTag(existing.Image.Tags, image) {
		return true
	}
	existingEnv := existing.EnvMap()
	for key, value := range env {
		if existingEnv[key] != value {
			a.log().WithField("key", key).Info("differing env key in existing container")
			return true
		}
	}
	return false
}

func containsTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

// ping polls the service's readiness function at most once every 100ms up
// to opts.Timeout seconds, using a monotonic clock. The default ping (nil
// PingFunc) succeeds immediately.
func (a *Agent) ping(ctx context.Context) error {
	if a.def.Ping == nil {
		return nil
	}
	deadline := time.Now().Add(time.Duration(a.opts.Timeout) * time.Second)
	for {
		ok, err := a.def.Ping()
		if err != nil {
			return fmt.Errorf("ping %s: %w", a.def.Name, err)
		}
		if ok {
			a.log().Info("pinged successfully")
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: could not ping %s within %ds", api.ErrReadinessTimeout, a.def.Name, a.opts.Timeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pingInterval):
		}
	}
}

func (a *Agent) succeed() {
	a.log().Info("service started successfully")
	a.status = api.AgentStatusStarted
	a.rc.ServiceStarted(a.def.Name)
}

// fail marks the agent FAILED, notifies the running context, and — if a
// container was actually started this run (a START action is in the
// trace) — stops and removes it to avoid leaking a partially initialized
// container.
func (a *Agent) fail(ctx context.Context, containerID string, cause error) {
	a.log().WithError(cause).Error("error starting service")
	a.runCondition.Fail()
	a.status = api.AgentStatusFailed
	if a.runCondition.Has(api.RunActionStart) && containerID != "" {
		cleanupCtx := context.WithoutCancel(ctx)
		if err := a.eng.StopContainer(cleanupCtx, containerID, a.opts.Timeout); err != nil {
			a.log().WithError(err).Warn("could not stop partially initialized container")
		}
		if err := a.eng.RemoveContainer(cleanupCtx, containerID); err != nil {
			a.log().WithError(err).Warn("could not remove partially initialized container")
		}
	}
	a.rc.ServiceFailed(a.def.Name)
}
