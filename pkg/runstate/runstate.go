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

// Package runstate implements component C of the spec: the shared state
// of one orchestrator invocation — the pending agent set, the processed
// list, the failed list, and the single mutex serializing all three.
// Grounded on original_source/miniboss/running_context.py, restructured
// per spec §4.C/§9's recursion guidance (snapshot under lock, release,
// then recurse) to avoid the source's lock-held-across-recursive-call
// pattern.
package runstate

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Node is the subset of a per-service agent the running context needs to
// drive readiness and propagate status, kept free of any import of
// pkg/agent: agents satisfy it structurally, and neither package imports
// the other.
type Node interface {
	Name() string
	OpenDependencies() []string
	OpenDependants() []string
	RemoveOpenDependency(name string)
	RemoveOpenDependant(name string)
	IsIdle() bool // status == NULL, i.e. not yet dispatched
}

// RunningContext is the shared progress ledger for one orchestrator call.
type RunningContext struct {
	mu        sync.Mutex
	pending   map[string]Node
	processed []string
	failed    []string
}

// New builds a RunningContext over the given nodes, one per service not
// yet excluded from this run.
func New(nodes map[string]Node) *RunningContext {
	pending := make(map[string]Node, len(nodes))
	for name, n := range nodes {
		pending[name] = n
	}
	return &RunningContext{pending: pending}
}

// Done reports whether the pending set is empty.
func (rc *RunningContext) Done() bool {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return len(rc.pending) == 0
}

// Processed returns a snapshot of the processed-services list, in the
// order services completed.
func (rc *RunningContext) Processed() []string {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return append([]string(nil), rc.processed...)
}

// Failed returns a snapshot of the failed-services list.
func (rc *RunningContext) Failed() []string {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return append([]string(nil), rc.failed...)
}

// ReadyToStart returns agents whose open-dependency set is empty and
// which have not yet been dispatched.
func (rc *RunningContext) ReadyToStart() []Node {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	var ready []Node
	for _, n := range rc.pending {
		if len(n.OpenDependencies()) == 0 && n.IsIdle() {
			ready = append(ready, n)
		}
	}
	return ready
}

// ReadyToStop returns agents whose open-dependant set is empty and which
// have not yet been dispatched.
func (rc *RunningContext) ReadyToStop() []Node {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	var ready []Node
	for _, n := range rc.pending {
		if len(n.OpenDependants()) == 0 && n.IsIdle() {
			ready = append(ready, n)
		}
	}
	return ready
}

// ServiceStarted removes service from pending, appends it to processed,
// and notifies every remaining agent to drop it from their open
// dependency list, unblocking dependants.
func (rc *RunningContext) ServiceStarted(service string) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	delete(rc.pending, service)
	rc.processed = append(rc.processed, service)
	for _, n := range rc.pending {
		n.RemoveOpenDependency(service)
	}
}

// ServiceStopped is the symmetric operation over dependants.
func (rc *RunningContext) ServiceStopped(service string) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	delete(rc.pending, service)
	rc.processed = append(rc.processed, service)
	for _, n := range rc.pending {
		n.RemoveOpenDependant(service)
	}
}

// ServiceFailed removes service from pending, appends it to failed, and
// recursively fails every pending service that still lists it among its
// dependencies. Each recursive step snapshots the pending set under the
// lock, releases the lock, then recurses — per spec §4.C/§9, this avoids
// holding the mutex across a self-call while still serializing every
// individual mutation of the shared sets.
func (rc *RunningContext) ServiceFailed(service string) {
	rc.mu.Lock()
	if _, stillPending := rc.pending[service]; !stillPending {
		// Already failed via another cascade path (e.g. a diamond
		// dependency); nothing left to do.
		rc.mu.Unlock()
		return
	}
	delete(rc.pending, service)
	rc.failed = append(rc.failed, service)
	var cascaded []string
	for name, n := range rc.pending {
		for _, dep := range n.OpenDependencies() {
			if dep == service {
				cascaded = append(cascaded, name)
				break
			}
		}
	}
	rc.mu.Unlock()

	logrus.WithField("service", service).Error("service failed")
	for _, name := range cascaded {
		rc.ServiceFailed(name)
	}
}
