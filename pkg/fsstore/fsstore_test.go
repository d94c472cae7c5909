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

package fsstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal_SaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	l := NewLocal()

	err := l.Save(dir, map[string]any{"host": "db.internal", "port": float64(5432)})
	require.NoError(t, err)

	values, found, err := l.Load(dir)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "db.internal", values["host"])
	assert.Equal(t, float64(5432), values["port"])
}

func TestLocal_LoadMissingFileReportsNotFoundWithoutError(t *testing.T) {
	dir := t.TempDir()
	l := NewLocal()

	values, found, err := l.Load(dir)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, values)
}

func TestLocal_RemoveDeletesFile(t *testing.T) {
	dir := t.TempDir()
	l := NewLocal()
	require.NoError(t, l.Save(dir, map[string]any{"a": 1.0}))

	removed, err := l.Remove(dir)
	require.NoError(t, err)
	assert.True(t, removed)

	_, found, err := l.Load(dir)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestLocal_RemoveMissingFileReportsFalseWithoutError(t *testing.T) {
	dir := t.TempDir()
	l := NewLocal()

	removed, err := l.Remove(dir)
	require.NoError(t, err)
	assert.False(t, removed)
}
