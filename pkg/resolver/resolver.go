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

// Package resolver expands a version details document into the concrete,
// deduplicated set of download tasks that installs it.
package resolver // import "github.com/craftfetch/craftfetch/pkg/resolver"

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/craftfetch/craftfetch/internal/fileutil"
	"github.com/craftfetch/craftfetch/pkg/integrity"
	"github.com/craftfetch/craftfetch/pkg/manifest"
	"github.com/craftfetch/craftfetch/pkg/mcpath"
	"github.com/craftfetch/craftfetch/pkg/transfer"
)

// DefaultAssetsURL is the canonical root of the content-addressed asset
// store.
const DefaultAssetsURL = "https://resources.download.minecraft.net"

// Options selects which artifact groups to resolve. The primary archive is
// always included.
type Options struct {
	Libraries bool
	Assets    bool
}

// Resolver builds download task sets for one installation home.
type Resolver struct {
	home      mcpath.Home
	client    *manifest.Client
	osName    string
	assetsURL string
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithOS overrides the operating system name used for rule evaluation and
// native classification. Tests and cross-installation tooling use it; the
// default is the running platform.
func WithOS(osName string) Option {
	return func(r *Resolver) {
		r.osName = osName
	}
}

// WithAssetsURL overrides the asset store root, e.g. for a mirror.
func WithAssetsURL(url string) Option {
	return func(r *Resolver) {
		r.assetsURL = url
	}
}

// New constructs a Resolver. The manifest client is used for the asset
// index fetch, the only remote document resolution needs.
func New(home mcpath.Home, client *manifest.Client, opts ...Option) *Resolver {
	r := &Resolver{
		home:      home,
		client:    client,
		osName:    manifest.CurrentOS(),
		assetsURL: DefaultAssetsURL,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// taskSet accumulates tasks keyed by destination path. The key is the
// dedup invariant: within one resolution, each destination gets at most one
// writer.
type taskSet struct {
	seen  map[string]bool
	tasks []*transfer.Task
}

func newTaskSet() *taskSet {
	return &taskSet{seen: make(map[string]bool)}
}

func (s *taskSet) add(t *transfer.Task) {
	if s.seen[t.Dest] {
		return
	}
	s.seen[t.Dest] = true
	s.tasks = append(s.tasks, t)
}

// Resolve expands details into the task set for the primary archive plus,
// per options, the platform-filtered libraries and the asset objects. It
// either returns the complete set or an error, never a partial set.
func (r *Resolver) Resolve(ctx context.Context, details *manifest.VersionDetails, opts Options) ([]*transfer.Task, error) {
	set := newTaskSet()

	client := details.Downloads.Client
	set.add(&transfer.Task{
		URL:   client.URL,
		Dest:  r.home.VersionJar(details.ID),
		SHA1:  client.SHA1,
		Size:  client.Size,
		Label: details.ID + ".jar",
	})

	if opts.Libraries {
		r.addLibraries(set, details.Libraries)
	}

	if opts.Assets {
		if err := r.addAssets(ctx, set, details.AssetIndex); err != nil {
			return nil, err
		}
	}

	return set.tasks, nil
}

func (r *Resolver) addLibraries(set *taskSet, libraries []manifest.Library) {
	for i := range libraries {
		lib := &libraries[i]
		if !lib.AllowedOn(r.osName) {
			continue
		}
		art := lib.Downloads.Artifact
		if art == nil || art.URL == "" || art.Path == "" {
			continue
		}
		set.add(&transfer.Task{
			URL:   art.URL,
			Dest:  r.home.Library(art.Path),
			SHA1:  art.SHA1,
			Size:  art.Size,
			Label: lib.Name,
		})
	}
}

// addAssets loads the asset index, reusing the cached copy when it still
// verifies, and emits one task per distinct object hash.
func (r *Resolver) addAssets(ctx context.Context, set *taskSet, ref manifest.AssetRef) error {
	if ref.ID == "" || ref.URL == "" {
		return nil
	}

	idx, err := r.assetIndex(ctx, ref)
	if err != nil {
		return err
	}

	for _, obj := range idx.Objects {
		set.add(&transfer.Task{
			URL:   fmt.Sprintf("%s/%s/%s", r.assetsURL, obj.Hash[:2], obj.Hash),
			Dest:  r.home.Object(obj.Hash),
			SHA1:  obj.Hash,
			Size:  obj.Size,
			Label: "asset " + obj.Hash[:8],
		})
	}
	return nil
}

func (r *Resolver) assetIndex(ctx context.Context, ref manifest.AssetRef) (*manifest.AssetIndex, error) {
	indexPath := r.home.AssetIndex(ref.ID)

	if ref.SHA1 != "" && integrity.Verify(indexPath, ref.SHA1) {
		data, err := os.ReadFile(indexPath)
		if err == nil {
			if idx, perr := manifest.ParseAssetIndex(data); perr == nil {
				return idx, nil
			}
		}
		// A cached index that fails to read or parse despite verifying
		// is unexpected; fall through to a fresh fetch.
	}

	idx, raw, err := r.client.AssetIndex(ctx, ref)
	if err != nil {
		return nil, err
	}
	if err := fileutil.AtomicWriteFile(indexPath, bytes.NewReader(raw), 0644); err != nil {
		return nil, errors.Wrap(err, "caching asset index")
	}
	return idx, nil
}
