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

// Package transfer executes download tasks with bounded concurrency,
// partial-failure recovery, and content verification.
package transfer // import "github.com/craftfetch/craftfetch/pkg/transfer"

import (
	"fmt"
)

// Task is one file to download. Tasks are produced by the resolver and
// consumed exactly once by the engine.
type Task struct {
	// URL is the source of the file.
	URL string
	// Dest is the final absolute path. The engine never leaves a partial
	// file here: content is staged next to it and renamed in only after
	// verification.
	Dest string
	// SHA1 is the expected content hash. Empty means unverified.
	SHA1 string
	// Size is the expected byte size when the metadata reports one. Zero
	// means unknown. It is advisory; the engine probes the server for
	// the authoritative size.
	Size int64
	// Label names the task in progress messages.
	Label string
}

// Status is the terminal state of a task.
type Status string

const (
	// StatusDownloaded means the file was transferred and verified.
	StatusDownloaded Status = "downloaded"
	// StatusSkipped means the destination already verified against the
	// expected hash; no network I/O was issued.
	StatusSkipped Status = "skipped"
	// StatusFailed means the task exhausted its retries or failed
	// verification; nothing was left at the destination path.
	StatusFailed Status = "failed"
	// StatusCancelled means the task was never started because the
	// operation was cancelled.
	StatusCancelled Status = "cancelled"
)

// Outcome is the per-task result of an Execute call.
type Outcome struct {
	Task   *Task
	Status Status
	Err    error
}

// OK reports whether the task ended with usable content at its destination.
func (o Outcome) OK() bool {
	return o.Status == StatusDownloaded || o.Status == StatusSkipped
}

// IntegrityError indicates a transferred file did not hash to its expected
// value. The bytes arrived intact as far as the transport is concerned, so
// this points at a corrupted or mislabeled source.
type IntegrityError struct {
	Path string
	Want string
	Got  string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity check of %s failed: want sha1 %s, got %s", e.Path, e.Want, e.Got)
}

// Observer receives progress events during an Execute call. current and
// total may both be negative for indeterminate stages.
type Observer func(message string, current, total int64)
