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

// Package installer drives a full version installation: catalog lookup,
// details caching, artifact resolution, transfer, and native extraction.
package installer // import "github.com/craftfetch/craftfetch/pkg/installer"

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"time"

	"github.com/gofrs/flock"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/craftfetch/craftfetch/internal/fileutil"
	"github.com/craftfetch/craftfetch/pkg/manifest"
	"github.com/craftfetch/craftfetch/pkg/mcpath"
	"github.com/craftfetch/craftfetch/pkg/natives"
	"github.com/craftfetch/craftfetch/pkg/resolver"
	"github.com/craftfetch/craftfetch/pkg/transfer"
)

// Options selects which artifact groups an installation covers. The primary
// archive and the details document are always installed.
type Options struct {
	SkipLibraries bool
	SkipAssets    bool
}

// Result summarizes one installation. Counts cover download tasks; natives
// are reported separately because extraction happens after transfer.
type Result struct {
	ID               string
	Downloaded       int
	Skipped          int
	Failed           int
	NativesExtracted int
	Outcomes         []transfer.Outcome
}

// Installer installs versions into a home. All fields except Logger and
// LockTimeout are required.
type Installer struct {
	Home     mcpath.Home
	Client   *manifest.Client
	Resolver *resolver.Resolver
	Engine   *transfer.Engine
	Logger   *slog.Logger

	// LockTimeout bounds the wait for the per-home installation lock.
	// Zero means 30 seconds.
	LockTimeout time.Duration
}

func (i *Installer) log() *slog.Logger {
	if i.Logger != nil {
		return i.Logger
	}
	return slog.Default()
}

// Install installs version id. Per-unit failures never abort sibling
// units; they are tallied in the Result and aggregated into the returned
// error. A nil error means every artifact landed verified on disk.
func (i *Installer) Install(ctx context.Context, id string, opts Options) (*Result, error) {
	if err := i.Home.Ensure(); err != nil {
		return nil, errors.Wrap(err, "preparing installation directory")
	}

	unlock, err := i.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	v, err := i.Client.Version(ctx, id)
	if err != nil {
		return nil, err
	}
	details, err := i.Client.Details(ctx, v)
	if err != nil {
		return nil, err
	}
	if err := i.cacheDetails(details); err != nil {
		return nil, err
	}

	tasks, err := i.Resolver.Resolve(ctx, details, resolver.Options{
		Libraries: !opts.SkipLibraries,
		Assets:    !opts.SkipAssets,
	})
	if err != nil {
		return nil, err
	}

	var nativeList []resolver.Native
	if !opts.SkipLibraries {
		nativeTasks, nl, err := i.Resolver.ResolveNatives(details)
		if err != nil {
			return nil, err
		}
		tasks = dedupTasks(append(tasks, nativeTasks...))
		nativeList = nl
	}

	i.log().Debug("resolved installation", "version", id, "tasks", len(tasks), "natives", len(nativeList))

	result := &Result{ID: id, Outcomes: i.Engine.Execute(ctx, tasks)}

	var errs error
	landed := make(map[string]bool)
	for _, o := range result.Outcomes {
		switch o.Status {
		case transfer.StatusDownloaded:
			result.Downloaded++
			landed[o.Task.Dest] = true
		case transfer.StatusSkipped:
			result.Skipped++
			landed[o.Task.Dest] = true
		default:
			result.Failed++
			errs = multierror.Append(errs, errors.Wrapf(o.Err, "downloading %s", o.Task.Label))
		}
	}

	if len(nativeList) > 0 {
		n, err := i.extractNatives(id, nativeList, landed)
		result.NativesExtracted = n
		if err != nil {
			errs = multierror.Append(errs, err)
		}
	}

	return result, errs
}

// dedupTasks drops tasks whose destination an earlier task already writes.
// Resolve and ResolveNatives each deduplicate internally, but a details
// document can alias a classifier artifact path onto a library artifact
// path; the combined slice must still end up with one writer per
// destination.
func dedupTasks(tasks []*transfer.Task) []*transfer.Task {
	seen := make(map[string]bool, len(tasks))
	deduped := tasks[:0]
	for _, t := range tasks {
		if seen[t.Dest] {
			continue
		}
		seen[t.Dest] = true
		deduped = append(deduped, t)
	}
	return deduped
}

// lock takes the per-home installation lock, waiting up to LockTimeout for
// a concurrent installer to finish.
func (i *Installer) lock(ctx context.Context) (func(), error) {
	timeout := i.LockTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	fileLock := flock.New(i.Home.LockFile())
	lockCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	locked, err := fileLock.TryLockContext(lockCtx, time.Second)
	if err != nil {
		return nil, errors.Wrap(err, "acquiring installation lock")
	}
	if !locked {
		return nil, errors.Errorf("installation lock at %s is held by another process", i.Home.LockFile())
	}
	return func() { fileLock.Unlock() }, nil
}

// cacheDetails writes the version details document next to the jar so the
// launcher works without network access.
func (i *Installer) cacheDetails(details *manifest.VersionDetails) error {
	data, err := json.MarshalIndent(details, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding version details")
	}
	path := i.Home.VersionJSON(details.ID)
	if err := fileutil.AtomicWriteFile(path, bytes.NewReader(data), 0644); err != nil {
		return errors.Wrap(err, "caching version details")
	}
	return nil
}

// extractNatives unpacks every native archive that landed on disk into the
// version's natives directory. Archives whose download failed are skipped;
// a failed extraction does not stop the remaining archives.
func (i *Installer) extractNatives(id string, list []resolver.Native, landed map[string]bool) (int, error) {
	destDir := i.Home.Natives(id)
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return 0, errors.Wrap(err, "creating natives directory")
	}

	var errs error
	extracted := 0
	for _, n := range list {
		if !landed[n.Archive] {
			continue
		}
		if err := natives.Extract(n.Archive, destDir); err != nil {
			errs = multierror.Append(errs, errors.Wrapf(err, "extracting natives for %s", n.Library))
			continue
		}
		i.log().Debug("extracted natives", "library", n.Library, "dest", destDir)
		extracted++
	}
	return extracted, errs
}
