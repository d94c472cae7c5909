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

	"github.com/miniboss-dev/miniboss/pkg/api"
	"github.com/miniboss-dev/miniboss/pkg/engine"
)

// stopContainer is the STOP action of spec §4.D: find every existing
// container with this service's name prefix, stop the running ones, and
// remove them if opts.Remove is set. Unlike start, stop has no failure
// path into the running context: every outcome reports STOPPED, errors
// are logged and otherwise swallowed, so one misbehaving container never
// blocks its dependencies from being torn down in turn.
func (a *Agent) stopContainer(ctx context.Context) {
	network := engine.Network{Name: a.opts.Network.Name, ID: a.opts.Network.ID}
	existing, err := a.eng.ExistingOnNetwork(ctx, a.ContainerNamePrefix(), network)
	if err != nil {
		a.log().WithError(err).Error("could not list containers to stop")
		a.status = api.AgentStatusStopped
		a.rc.ServiceStopped(a.def.Name)
		return
	}

	for _, container := range existing {
		if container.Status == engine.StatusRunning {
			a.log().WithField("container", container.Name).Info("stopping container")
			if err := a.eng.StopContainer(ctx, container.ID, a.opts.Timeout); err != nil {
				a.log().WithError(err).Error("could not stop container")
				continue
			}
		}
		if a.opts.Remove {
			a.log().WithField("container", container.Name).Info("removing container")
			if err := a.eng.RemoveContainer(ctx, container.ID); err != nil {
				a.log().WithError(err).Error("could not remove container")
			}
		}
	}

	a.status = api.AgentStatusStopped
	a.rc.ServiceStopped(a.def.Name)
}
