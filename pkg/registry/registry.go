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

package registry

import (
	"sync"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/miniboss-dev/miniboss/pkg/api"
)

// Registry is a name-indexed set of validated service definitions with
// resolved dependency and dependant edges. Once built it is never
// mutated in place; Exclude* return a new, reduced Registry.
type Registry struct {
	byName map[string]*Definition
}

// Build validates specs, resolves dependency edges, rejects duplicate
// names and unresolved dependencies, and rejects cyclic graphs. It is the
// explicit registration entry point that replaces the source's
// subclass-discovery mechanism (spec §9 Design Notes).
func Build(specs []ServiceSpec) (*Registry, error) {
	if len(specs) == 0 {
		return nil, api.ServiceLoadErrorf("no services defined")
	}

	var errs *multierror.Error
	byName := make(map[string]*Definition, len(specs))
	seen := make(map[string]int, len(specs))

	// Each spec's own-field validation (name/image/stop-signal/volume-form
	// checks) never looks at any other spec, so it fans out across an
	// errgroup; a mutex guards the shared accumulation since errgroup
	// itself only coordinates goroutine lifetimes, not result merging.
	var mu sync.Mutex
	var g errgroup.Group
	for _, spec := range specs {
		spec := spec
		if spec.Dockerfile == "" && spec.BuildFrom != "" {
			spec.Dockerfile = "Dockerfile"
		}
		g.Go(func() error {
			if err := validateSpec(spec); err != nil {
				mu.Lock()
				errs = multierror.Append(errs, err)
				mu.Unlock()
				return nil
			}
			mu.Lock()
			seen[spec.Name]++
			byName[spec.Name] = &Definition{ServiceSpec: spec}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // validateSpec never returns a non-nil error through g itself; failures are collected in errs above.
	for name, count := range seen {
		if count > 1 {
			errs = multierror.Append(errs, api.ServiceLoadErrorf("repeated service name: %s", name))
		}
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}

	for _, def := range byName {
		resolved := make([]string, 0, len(def.ServiceSpec.Dependencies))
		for _, depName := range def.ServiceSpec.Dependencies {
			if _, ok := byName[depName]; !ok {
				errs = multierror.Append(errs, api.ServiceLoadErrorf(
					"dependency %s of service %s not among services", depName, def.Name))
				continue
			}
			resolved = append(resolved, depName)
		}
		def.Dependencies = resolved
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}

	for _, def := range byName {
		for _, other := range byName {
			for _, dep := range other.Dependencies {
				if dep == def.Name {
					def.Dependants = append(def.Dependants, other.Name)
				}
			}
		}
	}

	reg := &Registry{byName: byName}
	if err := reg.checkCycles(); err != nil {
		return nil, err
	}
	return reg, nil
}

// checkCycles runs a bounded DFS from every node that has at least one
// outgoing edge, per spec §4.B: the traversal budget for each start node
// is the registry size, and any path that returns to the start node, or
// exceeds the budget, is a cycle. Grounded on
// original_source/miniboss/services.py's check_circular_dependencies.
func (r *Registry) checkCycles() error {
	for _, def := range r.byName {
		if len(def.Dependencies) == 0 {
			continue
		}
		if err := r.walkForCycle(def.Name, def, 0); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) walkForCycle(start string, current *Definition, count int) error {
	count++
	for _, depName := range current.Dependencies {
		if depName == start {
			return api.ServiceLoadErrorf("circular dependency detected involving %s", start)
		}
		if count == len(r.byName) {
			return api.ServiceLoadErrorf("circular dependency detected involving %s", start)
		}
		dep := r.byName[depName]
		if err := r.walkForCycle(start, dep, count); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of services in the registry.
func (r *Registry) Len() int { return len(r.byName) }

// Get returns the definition for name, if present.
func (r *Registry) Get(name string) (*Definition, bool) {
	d, ok := r.byName[name]
	return d, ok
}

// All returns every definition in the registry. The order is not
// meaningful; callers that need determinism must sort.
func (r *Registry) All() []*Definition {
	out := make([]*Definition, 0, len(r.byName))
	for _, d := range r.byName {
		out = append(out, d)
	}
	return out
}

// Names returns every service name in the registry.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.byName))
	for name := range r.byName {
		out = append(out, name)
	}
	return out
}

// ExcludeForStart returns a new Registry with the named services removed,
// for a `start` invocation. Per spec §4.B's lenient rule, an excluded
// service may depend on kept ones; the only case rejected is a *kept*
// service that depends on an *excluded* one.
func (r *Registry) ExcludeForStart(exclude []string) (*Registry, error) {
	if len(exclude) == 0 {
		return r, nil
	}
	excludedSet := map[string]struct{}{}
	var errs *multierror.Error
	for _, name := range exclude {
		if _, ok := r.byName[name]; !ok {
			errs = multierror.Append(errs, api.ServiceLoadErrorf("service to be excluded, but not defined: %s", name))
			continue
		}
		excludedSet[name] = struct{}{}
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}

	for _, def := range r.byName {
		if _, excluded := excludedSet[def.Name]; excluded {
			continue
		}
		for _, dep := range def.Dependencies {
			if _, depExcluded := excludedSet[dep]; depExcluded {
				errs = multierror.Append(errs, api.ServiceLoadErrorf(
					"%s is to be excluded, but %s depends on it", dep, def.Name))
			}
		}
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return r.without(excludedSet), nil
}

// ExcludeForStop returns a new Registry with the named services removed,
// for a `stop` invocation. Every dependency of an excluded service must
// also be excluded, since a dependency cannot be stopped while its
// dependant is kept alive.
func (r *Registry) ExcludeForStop(exclude []string) (*Registry, error) {
	if len(exclude) == 0 {
		return r, nil
	}
	excludedSet := map[string]struct{}{}
	var errs *multierror.Error
	for _, name := range exclude {
		if _, ok := r.byName[name]; !ok {
			errs = multierror.Append(errs, api.ServiceLoadErrorf("service to be excluded, but not defined: %s", name))
			continue
		}
		excludedSet[name] = struct{}{}
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}

	for _, name := range exclude {
		def := r.byName[name]
		for _, dep := range def.Dependencies {
			if _, depExcluded := excludedSet[dep]; !depExcluded {
				errs = multierror.Append(errs, api.ServiceLoadErrorf(
					"%s is to be stopped, but %s depends on it", dep, def.Name))
			}
		}
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return r.without(excludedSet), nil
}

func (r *Registry) without(excluded map[string]struct{}) *Registry {
	byName := make(map[string]*Definition, len(r.byName)-len(excluded))
	for name, def := range r.byName {
		if _, ok := excluded[name]; ok {
			continue
		}
		byName[name] = def
	}
	return &Registry{byName: byName}
}

// ReverseReachable computes {name} ∪ every service that transitively
// depends on name, via breadth-first traversal of dependants. It is the
// scope-selection step of reload_service (spec §4.E step 2).
func (r *Registry) ReverseReachable(name string) (*Registry, error) {
	start, ok := r.byName[name]
	if !ok {
		return nil, api.ServiceLoadErrorf("no such service: %s", name)
	}
	required := map[string]struct{}{}
	queue := []string{start.Name}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if _, ok := required[current]; ok {
			continue
		}
		required[current] = struct{}{}
		for _, dependant := range r.byName[current].Dependants {
			if _, ok := required[dependant]; !ok {
				queue = append(queue, dependant)
			}
		}
	}
	byName := make(map[string]*Definition, len(required))
	for name := range required {
		byName[name] = r.byName[name]
	}
	return &Registry{byName: byName}, nil
}
