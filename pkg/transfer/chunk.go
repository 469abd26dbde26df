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
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
)

// chunk is one byte-range slice of a task, spilled to its own temp file
// until the merge consumes it.
type chunk struct {
	index int
	start int64 // inclusive
	end   int64 // inclusive
	spill string
}

func (c chunk) length() int64 {
	return c.end - c.start + 1
}

// partition splits [0, size) into fixed-size inclusive ranges, the last one
// truncated to size.
func partition(size, chunkSize int64, tmp string) []chunk {
	var chunks []chunk
	for start := int64(0); start < size; start += chunkSize {
		end := start + chunkSize - 1
		if end >= size {
			end = size - 1
		}
		i := len(chunks)
		chunks = append(chunks, chunk{
			index: i,
			start: start,
			end:   end,
			spill: fmt.Sprintf("%s.chunk%04d", tmp, i),
		})
	}
	return chunks
}

// downloadChunked fetches the task as independent byte ranges, retries
// stragglers, merges the spill files in ascending order, then verifies and
// promotes. Order is strict: every chunk reaches a terminal state before
// the merge starts, the merge completes before verification, verification
// passes before promotion.
func (e *Engine) downloadChunked(ctx context.Context, t *Task, size int64) error {
	tmp := t.Dest + ".partial"
	chunks := partition(size, e.cfg.ChunkSize, tmp)
	total := int64(len(chunks))

	// First pass: all ranges in parallel, each request drawing a slot
	// from the shared pool.
	chunkErrs := make([]error, len(chunks))
	var done atomic.Int64
	var wg sync.WaitGroup
	for i := range chunks {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			chunkErrs[i] = e.fetchChunk(ctx, t, chunks[i])
			if chunkErrs[i] == nil {
				e.emit(t.Label, done.Add(1), total)
			}
		}(i)
	}
	wg.Wait()

	// Retry failed ranges sequentially before any merging. A range that
	// exhausts its attempts fails the whole task.
	for i, err := range chunkErrs {
		if err == nil {
			continue
		}
		for attempt := 1; attempt < e.cfg.MaxRetries && err != nil; attempt++ {
			if cerr := ctx.Err(); cerr != nil {
				e.discard(chunks, tmp)
				return cerr
			}
			err = e.fetchChunk(ctx, t, chunks[i])
		}
		if err != nil {
			e.discard(chunks, tmp)
			return errors.Wrapf(err, "chunk %d of %s failed after %d attempts", i, t.URL, e.cfg.MaxRetries)
		}
		e.emit(t.Label, done.Add(1), total)
	}

	if err := e.merge(chunks, tmp); err != nil {
		e.discard(chunks, tmp)
		return errors.Wrapf(err, "merging chunks of %s", t.URL)
	}

	return e.promote(t, tmp)
}

// fetchChunk downloads one byte range into its spill file.
func (e *Engine) fetchChunk(ctx context.Context, t *Task, c chunk) error {
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer e.sem.Release(1)

	body, err := e.getter.StreamRange(ctx, t.URL, c.start, c.end)
	if err != nil {
		return err
	}
	defer body.Close()

	f, err := os.Create(c.spill)
	if err != nil {
		return errors.Wrap(err, "creating spill file")
	}

	n, err := io.Copy(f, body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(c.spill)
		return err
	}
	if n != c.length() {
		os.Remove(c.spill)
		return errors.Errorf("short range response: got %d bytes, want %d", n, c.length())
	}
	return nil
}

// merge concatenates spill files in ascending range order into tmp,
// deleting each spill file as it is consumed.
func (e *Engine) merge(chunks []chunk, tmp string) error {
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}

	for _, c := range chunks {
		in, err := os.Open(c.spill)
		if err != nil {
			out.Close()
			return err
		}
		_, err = io.Copy(out, in)
		in.Close()
		if err != nil {
			out.Close()
			return err
		}
		os.Remove(c.spill)
	}
	return out.Close()
}

// discard removes the task's staging files after a failure so nothing
// half-written survives.
func (e *Engine) discard(chunks []chunk, tmp string) {
	for _, c := range chunks {
		os.Remove(c.spill)
	}
	os.Remove(tmp)
}
