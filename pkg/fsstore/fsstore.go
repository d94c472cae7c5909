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

// Package fsstore is the filesystem port (spec §6.2): read/write the
// .miniboss-context JSON document under a run directory. encoding/json is
// stdlib and deliberately so — see DESIGN.md: this is a single ad hoc
// document read/write, the same shape of task the teacher itself does
// with encoding/json rather than reaching for a schema/serialization
// library.
package fsstore

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

const filename = ".miniboss-context"

// Store is the filesystem port consumed by pkg/ctxstore.
type Store interface {
	// Save writes values as JSON to <dir>/.miniboss-context.
	Save(dir string, values map[string]any) error
	// Load reads <dir>/.miniboss-context. found is false, with a nil
	// error, when the file does not exist.
	Load(dir string) (values map[string]any, found bool, err error)
	// Remove deletes <dir>/.miniboss-context. removed is false, with a
	// nil error, when the file did not exist.
	Remove(dir string) (removed bool, err error)
}

// Local is the production Store, backed by the local filesystem.
type Local struct{}

// NewLocal returns a Store backed by the local filesystem.
func NewLocal() *Local { return &Local{} }

func (Local) path(dir string) string {
	return filepath.Join(dir, filename)
}

func (l Local) Save(dir string, values map[string]any) error {
	data, err := json.Marshal(values)
	if err != nil {
		return errors.Wrap(err, "marshal context")
	}
	if err := os.WriteFile(l.path(dir), data, 0o644); err != nil {
		return errors.Wrapf(err, "write context file in %s", dir)
	}
	return nil
}

func (l Local) Load(dir string) (map[string]any, bool, error) {
	data, err := os.ReadFile(l.path(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, errors.Wrapf(err, "read context file in %s", dir)
	}
	var values map[string]any
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, false, errors.Wrapf(err, "unmarshal context file in %s", dir)
	}
	return values, true, nil
}

func (l Local) Remove(dir string) (bool, error) {
	err := os.Remove(l.path(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.Wrapf(err, "remove context file in %s", dir)
	}
	return true, nil
}
