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
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"golang.org/x/sync/semaphore"

	"github.com/craftfetch/craftfetch/pkg/getter"
	"github.com/craftfetch/craftfetch/pkg/integrity"
)

// Config tunes the engine.
type Config struct {
	// Concurrency caps simultaneous network requests across all tasks
	// and chunks combined.
	Concurrency int
	// ChunkSize is the byte-range size for chunked transfers. Files
	// larger than twice this use the chunked strategy.
	ChunkSize int64
	// MaxRetries is the number of attempts a transfer unit (a whole file
	// or a single chunk) gets before it is declared failed.
	MaxRetries int
}

const (
	defaultConcurrency = 10
	defaultChunkSize   = 1 << 20
	defaultMaxRetries  = 3
)

func (c Config) withDefaults() Config {
	if c.Concurrency <= 0 {
		c.Concurrency = defaultConcurrency
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = defaultChunkSize
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = defaultMaxRetries
	}
	return c
}

// Engine downloads task sets.
//
// One weighted semaphore gates every network request the engine issues:
// size probes, whole-file streams, and ranged chunk fetches all draw from
// the same pool, so concurrency stays bounded no matter how many files are
// chunked at once. Task coordinators never hold a slot while waiting on
// their chunks, so chunk workers cannot starve.
type Engine struct {
	getter   getter.Getter
	cfg      Config
	sem      *semaphore.Weighted
	observer Observer
}

// NewEngine constructs an engine. The observer may be nil.
func NewEngine(g getter.Getter, cfg Config, observer Observer) *Engine {
	cfg = cfg.withDefaults()
	return &Engine{
		getter:   g,
		cfg:      cfg,
		sem:      semaphore.NewWeighted(int64(cfg.Concurrency)),
		observer: observer,
	}
}

func (e *Engine) emit(message string, current, total int64) {
	if e.observer != nil {
		e.observer(message, current, total)
	}
}

// Execute runs every task and returns one outcome per task, in task order.
//
// Tasks run independently: a failed task never aborts its siblings, and
// completion order carries no relationship to submission order. Cancelling
// the context stops new work promptly; tasks that had not started report
// StatusCancelled.
func (e *Engine) Execute(ctx context.Context, tasks []*Task) []Outcome {
	outcomes := make([]Outcome, len(tasks))

	var wg sync.WaitGroup
	var done atomic.Int64
	total := int64(len(tasks))

	for i, t := range tasks {
		wg.Add(1)
		go func(i int, t *Task) {
			defer wg.Done()
			outcomes[i] = e.runTask(ctx, t)
			e.emit(t.Label, done.Add(1), total)
		}(i, t)
	}
	wg.Wait()

	return outcomes
}

// runTask drives one task to a terminal state.
func (e *Engine) runTask(ctx context.Context, t *Task) Outcome {
	// The destination already verifying is the cache hit: no network I/O.
	if t.SHA1 != "" && integrity.Verify(t.Dest, t.SHA1) {
		return Outcome{Task: t, Status: StatusSkipped}
	}

	if err := ctx.Err(); err != nil {
		return Outcome{Task: t, Status: StatusCancelled, Err: err}
	}

	if err := os.MkdirAll(filepath.Dir(t.Dest), 0755); err != nil {
		return Outcome{Task: t, Status: StatusFailed, Err: errors.Wrap(err, "creating destination directory")}
	}

	size := e.probeSize(ctx, t)

	var err error
	if size > 2*e.cfg.ChunkSize {
		err = e.downloadChunked(ctx, t, size)
	} else {
		err = e.downloadWhole(ctx, t)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return Outcome{Task: t, Status: StatusCancelled, Err: err}
		}
		return Outcome{Task: t, Status: StatusFailed, Err: err}
	}
	return Outcome{Task: t, Status: StatusDownloaded}
}

// probeSize asks the server for the file size. A failed or empty probe
// selects the whole-file strategy, never the task's failure.
func (e *Engine) probeSize(ctx context.Context, t *Task) int64 {
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return 0
	}
	defer e.sem.Release(1)

	size, err := e.getter.ContentLength(ctx, t.URL)
	if err != nil {
		return 0
	}
	return size
}

// downloadWhole streams the body to a temp path and promotes it after
// verification. Transport errors retry the task as a unit.
func (e *Engine) downloadWhole(ctx context.Context, t *Task) error {
	tmp := t.Dest + ".partial"

	var lastErr error
	for attempt := 0; attempt < e.cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if lastErr = e.streamWhole(ctx, t, tmp); lastErr == nil {
			return e.promote(t, tmp)
		}
	}
	os.Remove(tmp)
	return errors.Wrapf(lastErr, "downloading %s", t.URL)
}

func (e *Engine) streamWhole(ctx context.Context, t *Task, tmp string) error {
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer e.sem.Release(1)

	body, err := e.getter.Stream(ctx, t.URL)
	if err != nil {
		return err
	}
	defer body.Close()

	return e.writeFile(tmp, body, t)
}

// writeFile copies body to path, reporting byte progress as data arrives.
func (e *Engine) writeFile(path string, body io.Reader, t *Task) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating temp file")
	}

	counted := &countingWriter{w: f, engine: e, task: t}
	if _, err := io.Copy(counted, body); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// promote verifies the staged file and renames it into place. A hash
// mismatch removes the staged file and reports an IntegrityError: the
// transport succeeded, the source bytes are wrong.
func (e *Engine) promote(t *Task, tmp string) error {
	if t.SHA1 != "" {
		got, err := integrity.DigestFile(tmp)
		if err != nil {
			os.Remove(tmp)
			return errors.Wrap(err, "hashing downloaded file")
		}
		if got != t.SHA1 {
			os.Remove(tmp)
			return &IntegrityError{Path: t.Dest, Want: t.SHA1, Got: got}
		}
	}
	if err := os.Rename(tmp, t.Dest); err != nil {
		os.Remove(tmp)
		return errors.Wrap(err, "promoting downloaded file")
	}
	return nil
}

// countingWriter forwards byte counts to the engine's observer.
type countingWriter struct {
	w       io.Writer
	engine  *Engine
	task    *Task
	written int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.written += int64(n)
	if n > 0 {
		c.engine.emit(c.task.Label, c.written, c.task.Size)
	}
	return n, err
}
