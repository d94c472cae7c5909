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

package api

import (
	"fmt"

	"github.com/pkg/errors"
)

// Sentinel errors for the taxonomy in spec §7. Use errors.Is against
// these, not string matching.
var (
	// ErrServiceLoad covers duplicate names, unknown dependencies, cycles,
	// missing services and invalid exclusions. Raised at load time, before
	// any engine call.
	ErrServiceLoad = errors.New("service load error")
	// ErrDefinition covers a malformed service definition.
	ErrDefinition = errors.New("service definition error")
	// ErrContext covers placeholder interpolation failures.
	ErrContext = errors.New("context error")
	// ErrEngine wraps container-engine client failures.
	ErrEngine = errors.New("engine error")
	// ErrContainerStart is raised when a created container leaves the
	// running state before readiness.
	ErrContainerStart = errors.New("container start error")
	// ErrReadinessTimeout is raised when the readiness deadline elapses.
	ErrReadinessTimeout = errors.New("readiness timeout")
	// ErrAgentContract marks agent misuse: SetAction returns it for an
	// action other than start or stop, and Run reports it when invoked
	// without an action.
	ErrAgentContract = errors.New("agent contract error")
)

// ContainerStartError carries the failing container's name and captured
// logs, as required by spec §7.
type ContainerStartError struct {
	ContainerName string
	Logs          string
}

func (e *ContainerStartError) Error() string {
	return fmt.Sprintf("container %s did not reach running state; logs:\n%s", e.ContainerName, e.Logs)
}

func (e *ContainerStartError) Unwrap() error { return ErrContainerStart }

// NewContainerStartError builds a ContainerStartError.
func NewContainerStartError(containerName, logs string) error {
	return &ContainerStartError{ContainerName: containerName, Logs: logs}
}

// ServiceLoadErrorf builds an ErrServiceLoad-classed error with a formatted
// message, following the cause/category split in pkg/compose/errors.go.
func ServiceLoadErrorf(format string, args ...any) error {
	return errors.Wrapf(ErrServiceLoad, format, args...)
}

// DefinitionErrorf builds an ErrDefinition-classed error.
func DefinitionErrorf(format string, args ...any) error {
	return errors.Wrapf(ErrDefinition, format, args...)
}

// ContextErrorf builds an ErrContext-classed error.
func ContextErrorf(format string, args ...any) error {
	return errors.Wrapf(ErrContext, format, args...)
}

// EngineErrorf builds an ErrEngine-classed error.
func EngineErrorf(format string, args ...any) error {
	return errors.Wrapf(ErrEngine, format, args...)
}
