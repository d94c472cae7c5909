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
	"github.com/hashicorp/go-multierror"

	"github.com/miniboss-dev/miniboss/pkg/api"
)

// validateSpec applies the field-level validation rules of spec §4.B to a
// single ServiceSpec, grounded on ServiceMeta.__new__ in
// original_source/miniboss/services.py. Every failure is reported with
// the offending service's name.
func validateSpec(s ServiceSpec) error {
	var errs *multierror.Error

	if s.Name == "" {
		errs = multierror.Append(errs, api.DefinitionErrorf("service name must be a non-empty string"))
		// Without a name we can't usefully label further errors; bail.
		return errs.ErrorOrNil()
	}
	if s.Image == "" {
		errs = multierror.Append(errs, api.DefinitionErrorf("%s: image must be a non-empty string", s.Name))
	}
	if s.StopSignal != "" {
		if _, ok := allowedStopSignals[s.StopSignal]; !ok {
			errs = multierror.Append(errs, api.DefinitionErrorf("%s: stop signal not allowed: %s", s.Name, s.StopSignal))
		}
	}
	if len(s.VolumeList) > 0 && len(s.VolumeMap) > 0 {
		errs = multierror.Append(errs, api.DefinitionErrorf(
			"%s: volumes must be defined either as a list of strings or a mapping, not both", s.Name))
	}
	for host, v := range s.VolumeMap {
		if host == "" {
			errs = multierror.Append(errs, api.DefinitionErrorf("%s: volume definition keys have to be non-empty strings", s.Name))
		}
		if v.Bind == "" {
			errs = multierror.Append(errs, api.DefinitionErrorf("%s: volume definitions have to specify a bind path", s.Name))
		}
	}
	return errs.ErrorOrNil()
}
