// Copyright 2024 Alexandre Mahdhaoui
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_Observe(t *testing.T) {
	r := NewRun()

	r.ObserveDomain("web1", true)
	r.ObserveDomain("web2", true)
	r.ObserveDomain("db1", false)
	r.ObserveResolutionFailure("web2", errors.New("agent"))
	r.ObserveConnectionFailure()

	assert.Equal(t, 2.0, testutil.ToFloat64(r.domains.WithLabelValues("running")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.domains.WithLabelValues("stopped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.resolutionFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.connectionFailures))
}

func TestRun_Finish(t *testing.T) {
	start := time.Unix(1700000000, 0)
	r := NewRun()
	r.start = start
	r.now = func() time.Time { return start.Add(1500 * time.Millisecond) }

	r.Finish()

	assert.Equal(t, 1.5, testutil.ToFloat64(r.duration))
	assert.Equal(t, 1700000001.5, testutil.ToFloat64(r.timestamp))
}

func TestRun_WriteTextfile(t *testing.T) {
	r := NewRun()
	r.ObserveDomain("web1", true)
	r.Finish()

	path := filepath.Join(t.TempDir(), "libvirt_inventory.prom")
	require.NoError(t, r.WriteTextfile(path))

	b, err := os.ReadFile(path)
	require.NoError(t, err)

	expected := `
# HELP libvirt_inventory_domains Number of libvirt domains found, by state.
# TYPE libvirt_inventory_domains gauge
libvirt_inventory_domains{state="running"} 1
libvirt_inventory_domains{state="stopped"} 0
`
	require.NoError(t, testutil.CollectAndCompare(r.domains, strings.NewReader(expected)))
	assert.Contains(t, string(b), `libvirt_inventory_domains{state="running"} 1`)
	assert.Contains(t, string(b), "libvirt_inventory_last_run_timestamp_seconds")
}

func TestRun_WriteTextfile_Disabled(t *testing.T) {
	assert.NoError(t, NewRun().WriteTextfile(""))
}

func TestRun_WriteTextfile_Error(t *testing.T) {
	err := NewRun().WriteTextfile(filepath.Join(t.TempDir(), "missing", "dir", "x.prom"))

	assert.ErrorIs(t, err, errWriteTextfile)
}
