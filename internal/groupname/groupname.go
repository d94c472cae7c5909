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

// Package groupname derives the process-wide group name used to prefix
// container and default network names (spec §4.D, §9 Design Notes: a
// Context-like global in the source, made an explicit value here).
package groupname

import (
	"path/filepath"
	"regexp"
	"strings"
)

var nonSlugRunes = regexp.MustCompile(`[^a-z0-9]+`)

// FromRunDir derives a URL-safe slug from the base name of runDir, for use
// when no explicit group name was configured.
func FromRunDir(runDir string) string {
	base := filepath.Base(filepath.Clean(runDir))
	return Slugify(base)
}

// Slugify lower-cases s and collapses any run of non alphanumeric
// characters into a single hyphen, trimming leading/trailing hyphens.
func Slugify(s string) string {
	lowered := strings.ToLower(s)
	slug := nonSlugRunes.ReplaceAllString(lowered, "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return "miniboss"
	}
	return slug
}
