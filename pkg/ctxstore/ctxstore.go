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

// Package ctxstore implements component A of the spec: a process-wide
// string-keyed value map with placeholder interpolation, persistable via
// the filesystem port. Grounded on original_source/miniboss/context.py,
// re-expressed with Go's text/template-free, regexp-based "{name}" token
// scan since named placeholders (not the full str.format mini-language)
// are all the spec allows.
package ctxstore

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/miniboss-dev/miniboss/pkg/api"
	"github.com/miniboss-dev/miniboss/pkg/fsstore"
)

var placeholderPattern = regexp.MustCompile(`\{([^{}]*)\}`)

// Store is the process-wide context: a map from string keys to
// JSON-compatible values. It is safe for concurrent use, since agents
// read it concurrently during Extrapolate while the orchestrator may
// still be loading it from disk for a subsequent reload.
type Store struct {
	mu     sync.RWMutex
	values map[string]any
}

// New returns an empty Store.
func New() *Store {
	return &Store{values: map[string]any{}}
}

// Set stores a value under key, for use by pre/post-start hooks that want
// to make data available to dependants.
func (s *Store) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// Get returns the value stored under key, if any.
func (s *Store) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Extrapolate substitutes "{name}" tokens in value from the store. Values
// that are not strings pass through unchanged. Positional placeholders
// (bare "{}") and missing keys are reported as ErrContext; no fallback is
// attempted.
func (s *Store) Extrapolate(value any) (any, error) {
	str, ok := value.(string)
	if !ok {
		return value, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var outerErr error
	result := placeholderPattern.ReplaceAllStringFunc(str, func(token string) string {
		if outerErr != nil {
			return token
		}
		name := token[1 : len(token)-1]
		if name == "" {
			outerErr = api.ContextErrorf(
				"only keyword argument extrapolation allowed, violating string: %q", str)
			return token
		}
		v, ok := s.values[name]
		if !ok {
			keys := s.keysLocked()
			outerErr = api.ContextErrorf(
				"could not extrapolate string %q, existing keys: %s", str, strings.Join(keys, ","))
			return token
		}
		rendered, err := formatValue(v)
		if err != nil {
			outerErr = api.ContextErrorf("could not extrapolate string %q due to type mismatch", str)
			return token
		}
		return rendered
	})
	if outerErr != nil {
		return nil, outerErr
	}
	return result, nil
}

func formatValue(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case fmt.Stringer:
		return t.String(), nil
	case int, int32, int64, float32, float64, bool:
		return fmt.Sprintf("%v", t), nil
	default:
		return "", fmt.Errorf("unsupported type %T for interpolation", v)
	}
}

func (s *Store) keysLocked() []string {
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ExtrapolateValues applies Extrapolate to every value of dict, returning
// a new map. It is idempotent on already-resolved mappings since
// Extrapolate is a no-op on non-string values and on strings with no
// placeholder tokens.
func (s *Store) ExtrapolateValues(dict map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(dict))
	for key, value := range dict {
		resolved, err := s.Extrapolate(value)
		if err != nil {
			return nil, err
		}
		out[key] = resolved
	}
	return out, nil
}

// SaveTo persists the store to <dir>/.miniboss-context via the given
// filesystem port.
func (s *Store) SaveTo(fs fsstore.Store, dir string) error {
	s.mu.RLock()
	snapshot := make(map[string]any, len(s.values))
	for k, v := range s.values {
		snapshot[k] = v
	}
	s.mu.RUnlock()
	return fs.Save(dir, snapshot)
}

// LoadFrom restores the store from <dir>/.miniboss-context. A missing
// file is benign and only logged.
func (s *Store) LoadFrom(fs fsstore.Store, dir string) error {
	data, found, err := fs.Load(dir)
	if err != nil {
		return err
	}
	if !found {
		logrus.WithField("dir", dir).Info("no miniboss context file found")
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range data {
		s.values[k] = v
	}
	return nil
}

// RemoveFile deletes <dir>/.miniboss-context. A missing file is benign.
func (s *Store) RemoveFile(fs fsstore.Store, dir string) error {
	removed, err := fs.Remove(dir)
	if err != nil {
		return err
	}
	if !removed {
		logrus.WithField("dir", dir).Info("no miniboss context file to remove")
	}
	return nil
}

// Reset clears the store. Exposed for tests.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = map[string]any{}
}
