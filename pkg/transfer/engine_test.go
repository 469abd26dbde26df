/*
Copyright The Craftfetch Authors.

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

package transfer

import (
	"bytes"
	"context"
	"crypto/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craftfetch/craftfetch/pkg/getter"
	"github.com/craftfetch/craftfetch/pkg/integrity"
)

func randomContent(t *testing.T, n int) []byte {
	t.Helper()
	buf := make([]byte, n)
	_, err := rand.Read(buf)
	require.NoError(t, err)
	return buf
}

func sha1Of(t *testing.T, data []byte) string {
	t.Helper()
	h, err := integrity.Digest(bytes.NewReader(data))
	require.NoError(t, err)
	return h
}

func fileServer(t *testing.T, content []byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, "f", time.Time{}, bytes.NewReader(content))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	g, err := getter.NewHTTPGetter()
	require.NoError(t, err)
	return NewEngine(g, cfg, nil)
}

// requireCleanDir asserts no staging leftovers (partial or spill files)
// survive alongside the destination.
func requireCleanDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".partial", "staging file left behind: %s", e.Name())
	}
}

func TestExecuteWholeFile(t *testing.T) {
	content := randomContent(t, 1000)
	srv := fileServer(t, content)
	dest := filepath.Join(t.TempDir(), "client.jar")

	e := newTestEngine(t, Config{ChunkSize: 4096})
	outcomes := e.Execute(context.Background(), []*Task{{
		URL: srv.URL, Dest: dest, SHA1: sha1Of(t, content), Label: "client.jar",
	}})

	require.Len(t, outcomes, 1)
	assert.Equal(t, StatusDownloaded, outcomes[0].Status)
	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, content, got)
	requireCleanDir(t, filepath.Dir(dest))
}

func TestExecuteChunkedRoundTrip(t *testing.T) {
	// Size well above twice the chunk size forces the chunked strategy;
	// the merged result must be byte-identical to the source.
	content := randomContent(t, 10_000)
	srv := fileServer(t, content)
	dest := filepath.Join(t.TempDir(), "big.jar")

	e := newTestEngine(t, Config{ChunkSize: 1024, Concurrency: 4})
	outcomes := e.Execute(context.Background(), []*Task{{
		URL: srv.URL, Dest: dest, SHA1: sha1Of(t, content), Label: "big.jar",
	}})

	require.Len(t, outcomes, 1)
	require.Equal(t, StatusDownloaded, outcomes[0].Status, "err: %v", outcomes[0].Err)
	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, content, got)
	requireCleanDir(t, filepath.Dir(dest))
}

func TestExecuteSkipsVerifiedDestination(t *testing.T) {
	content := []byte("already here")
	dest := filepath.Join(t.TempDir(), "lib.jar")
	require.NoError(t, os.WriteFile(dest, content, 0644))

	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.Write(content)
	}))
	defer srv.Close()

	e := newTestEngine(t, Config{})
	outcomes := e.Execute(context.Background(), []*Task{{
		URL: srv.URL, Dest: dest, SHA1: sha1Of(t, content),
	}})

	require.Len(t, outcomes, 1)
	assert.Equal(t, StatusSkipped, outcomes[0].Status)
	assert.True(t, outcomes[0].OK())
	assert.Zero(t, calls, "no network I/O may be issued for a verified destination")
}

func TestExecuteIntegrityMismatch(t *testing.T) {
	srv := fileServer(t, []byte("corrupted at source"))
	dest := filepath.Join(t.TempDir(), "bad.jar")

	e := newTestEngine(t, Config{})
	outcomes := e.Execute(context.Background(), []*Task{{
		URL: srv.URL, Dest: dest, SHA1: strings.Repeat("0", 40),
	}})

	require.Len(t, outcomes, 1)
	assert.Equal(t, StatusFailed, outcomes[0].Status)
	var ie *IntegrityError
	require.ErrorAs(t, outcomes[0].Err, &ie)

	_, err := os.Stat(dest)
	assert.True(t, os.IsNotExist(err), "no file may be left at the destination")
	requireCleanDir(t, filepath.Dir(dest))
}

// rangeFlakyServer fails the first failures attempts of each distinct range
// request, then serves it correctly.
func rangeFlakyServer(t *testing.T, content []byte, failures int) *httptest.Server {
	t.Helper()
	var mu sync.Mutex
	attempts := map[string]int{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rng := r.Header.Get("Range"); rng != "" && r.Method == http.MethodGet {
			mu.Lock()
			attempts[rng]++
			n := attempts[rng]
			mu.Unlock()
			if n <= failures {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
		}
		http.ServeContent(w, r, "f", time.Time{}, bytes.NewReader(content))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestChunkedTransientFailuresRecovered(t *testing.T) {
	content := randomContent(t, 8_000)
	// Every range fails twice; with MaxRetries=3 the third attempt lands.
	srv := rangeFlakyServer(t, content, 2)
	dest := filepath.Join(t.TempDir(), "flaky.jar")

	e := newTestEngine(t, Config{ChunkSize: 1024, MaxRetries: 3})
	outcomes := e.Execute(context.Background(), []*Task{{
		URL: srv.URL, Dest: dest, SHA1: sha1Of(t, content),
	}})

	require.Equal(t, StatusDownloaded, outcomes[0].Status, "err: %v", outcomes[0].Err)
	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestChunkedRetriesExhausted(t *testing.T) {
	content := randomContent(t, 8_000)
	// Every range fails three times; with MaxRetries=3 no attempt is left.
	srv := rangeFlakyServer(t, content, 3)
	dest := filepath.Join(t.TempDir(), "dead.jar")

	e := newTestEngine(t, Config{ChunkSize: 1024, MaxRetries: 3})
	outcomes := e.Execute(context.Background(), []*Task{{
		URL: srv.URL, Dest: dest, SHA1: sha1Of(t, content),
	}})

	assert.Equal(t, StatusFailed, outcomes[0].Status)
	_, err := os.Stat(dest)
	assert.True(t, os.IsNotExist(err), "no file may be left at the destination")
	requireCleanDir(t, filepath.Dir(dest))
}

func TestFailedTaskDoesNotAbortSiblings(t *testing.T) {
	content := randomContent(t, 500)
	srv := fileServer(t, content)
	dir := t.TempDir()

	e := newTestEngine(t, Config{MaxRetries: 1})
	outcomes := e.Execute(context.Background(), []*Task{
		{URL: srv.URL + "/a", Dest: filepath.Join(dir, "good.jar"), SHA1: sha1Of(t, content)},
		{URL: "http://127.0.0.1:1/unreachable", Dest: filepath.Join(dir, "bad.jar")},
	})

	require.Len(t, outcomes, 2)
	assert.Equal(t, StatusDownloaded, outcomes[0].Status)
	assert.Equal(t, StatusFailed, outcomes[1].Status)
	assert.Error(t, outcomes[1].Err)
}

func TestExecuteCancelled(t *testing.T) {
	srv := fileServer(t, []byte("never fetched"))
	dir := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := newTestEngine(t, Config{})
	outcomes := e.Execute(ctx, []*Task{
		{URL: srv.URL, Dest: filepath.Join(dir, "a.jar")},
		{URL: srv.URL, Dest: filepath.Join(dir, "b.jar")},
	})

	for _, o := range outcomes {
		assert.Equal(t, StatusCancelled, o.Status)
		assert.False(t, o.OK())
	}
}

func TestProbeFailureFallsBackToWholeFile(t *testing.T) {
	content := randomContent(t, 5_000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Write(content)
	}))
	defer srv.Close()

	// Content is larger than twice the chunk size, but the failed probe
	// must route it through the whole-file strategy anyway.
	dest := filepath.Join(t.TempDir(), "noprobe.jar")
	e := newTestEngine(t, Config{ChunkSize: 1024})
	outcomes := e.Execute(context.Background(), []*Task{{
		URL: srv.URL, Dest: dest, SHA1: sha1Of(t, content),
	}})

	require.Equal(t, StatusDownloaded, outcomes[0].Status, "err: %v", outcomes[0].Err)
}

func TestConcurrencyBound(t *testing.T) {
	content := randomContent(t, 6_000)

	var mu sync.Mutex
	inflight, peak := 0, 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		inflight++
		if inflight > peak {
			peak = inflight
		}
		mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		http.ServeContent(w, r, "f", time.Time{}, bytes.NewReader(content))
		mu.Lock()
		inflight--
		mu.Unlock()
	}))
	defer srv.Close()

	const concurrency = 3
	dir := t.TempDir()
	var tasks []*Task
	for i := 0; i < 12; i++ {
		tasks = append(tasks, &Task{
			URL:  srv.URL,
			Dest: filepath.Join(dir, "f", string(rune('a'+i))),
			SHA1: sha1Of(t, content),
		})
	}

	// Chunked and whole-file requests all draw from one pool.
	e := newTestEngine(t, Config{ChunkSize: 1024, Concurrency: concurrency})
	outcomes := e.Execute(context.Background(), tasks)

	for _, o := range outcomes {
		require.Equal(t, StatusDownloaded, o.Status, "err: %v", o.Err)
	}
	mu.Lock()
	defer mu.Unlock()
	assert.LessOrEqual(t, peak, concurrency,
		"no more than %d requests may be in flight at once", concurrency)
}

func TestObserverReceivesProgress(t *testing.T) {
	content := randomContent(t, 1000)
	srv := fileServer(t, content)
	dest := filepath.Join(t.TempDir(), "obs.jar")

	var mu sync.Mutex
	var messages []string
	g, err := getter.NewHTTPGetter()
	require.NoError(t, err)
	e := NewEngine(g, Config{}, func(msg string, current, total int64) {
		mu.Lock()
		messages = append(messages, msg)
		mu.Unlock()
	})

	outcomes := e.Execute(context.Background(), []*Task{{
		URL: srv.URL, Dest: dest, SHA1: sha1Of(t, content), Label: "obs.jar",
	}})
	require.Equal(t, StatusDownloaded, outcomes[0].Status)

	mu.Lock()
	defer mu.Unlock()
	assert.NotEmpty(t, messages)
	assert.Contains(t, messages, "obs.jar")
}

func TestPartition(t *testing.T) {
	chunks := partition(10, 4, "x.partial")
	require.Len(t, chunks, 3)
	assert.Equal(t, int64(0), chunks[0].start)
	assert.Equal(t, int64(3), chunks[0].end)
	assert.Equal(t, int64(4), chunks[1].start)
	assert.Equal(t, int64(7), chunks[1].end)
	assert.Equal(t, int64(8), chunks[2].start)
	assert.Equal(t, int64(9), chunks[2].end, "last range truncated to size")

	var covered int64
	for _, c := range chunks {
		covered += c.length()
	}
	assert.Equal(t, int64(10), covered)

	assert.Len(t, partition(4, 4, "x"), 1)
	assert.Empty(t, partition(0, 4, "x"))
}
