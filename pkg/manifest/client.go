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

package manifest

import (
	"context"
	"encoding/json"
	"regexp"
	"sort"

	"github.com/pkg/errors"

	"github.com/craftfetch/craftfetch/pkg/getter"
)

// DefaultManifestURL is the canonical location of the version manifest.
const DefaultManifestURL = "https://launchermeta.mojang.com/mc/game/version_manifest.json"

// Client fetches catalog documents through a Getter.
type Client struct {
	getter      getter.Getter
	manifestURL string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithManifestURL overrides the manifest location, e.g. for a mirror.
func WithManifestURL(url string) ClientOption {
	return func(c *Client) {
		c.manifestURL = url
	}
}

// NewClient constructs a catalog client.
func NewClient(g getter.Getter, opts ...ClientOption) *Client {
	c := &Client{
		getter:      g,
		manifestURL: DefaultManifestURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Manifest fetches the full version catalog, sorted by release time with the
// newest version first. It never returns a partially parsed list.
func (c *Client) Manifest(ctx context.Context) ([]Version, error) {
	buf, err := c.getter.Get(ctx, c.manifestURL)
	if err != nil {
		return nil, &NetworkError{URL: c.manifestURL, Err: err}
	}

	var m Manifest
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		return nil, &ParseError{URL: c.manifestURL, Err: err}
	}

	versions := m.Versions
	sort.SliceStable(versions, func(i, j int) bool {
		return versions[i].ReleaseTime.After(versions[j].ReleaseTime)
	})
	return versions, nil
}

// List fetches the catalog filtered by release type, newest first, limited
// to at most limit entries. A limit of zero means no limit, and
// ReleaseTypeAll disables type filtering.
func (c *Client) List(ctx context.Context, typ ReleaseType, limit int) ([]Version, error) {
	all, err := c.Manifest(ctx)
	if err != nil {
		return nil, err
	}

	var versions []Version
	for _, v := range all {
		if typ != ReleaseTypeAll && typ != "" && v.Type != typ {
			continue
		}
		versions = append(versions, v)
		if limit > 0 && len(versions) == limit {
			break
		}
	}
	return versions, nil
}

// Version finds a catalog entry by id. The catalog holds a few thousand
// entries at most, so a linear scan is fine.
func (c *Client) Version(ctx context.Context, id string) (Version, error) {
	all, err := c.Manifest(ctx)
	if err != nil {
		return Version{}, err
	}
	for _, v := range all {
		if v.ID == id {
			return v, nil
		}
	}
	return Version{}, &NotFoundError{ID: id}
}

// Details fetches the full details document of a catalog entry.
func (c *Client) Details(ctx context.Context, v Version) (*VersionDetails, error) {
	buf, err := c.getter.Get(ctx, v.URL)
	if err != nil {
		return nil, &NetworkError{URL: v.URL, Err: err}
	}

	details, err := ParseDetails(buf.Bytes())
	if err != nil {
		return nil, &ParseError{URL: v.URL, Err: err}
	}
	return details, nil
}

// AssetIndex fetches and parses the asset index referenced by a details
// document, returning both the parsed index and the raw document so callers
// can store it verbatim.
func (c *Client) AssetIndex(ctx context.Context, ref AssetRef) (*AssetIndex, []byte, error) {
	buf, err := c.getter.Get(ctx, ref.URL)
	if err != nil {
		return nil, nil, &NetworkError{URL: ref.URL, Err: err}
	}

	idx, err := ParseAssetIndex(buf.Bytes())
	if err != nil {
		return nil, nil, &ParseError{URL: ref.URL, Err: err}
	}
	return idx, buf.Bytes(), nil
}

// ParseDetails parses a version details document, enforcing the fields
// nothing downstream can work without.
func ParseDetails(data []byte) (*VersionDetails, error) {
	var details VersionDetails
	if err := json.Unmarshal(data, &details); err != nil {
		return nil, err
	}
	if details.Downloads.Client == nil || details.Downloads.Client.URL == "" {
		return nil, errors.New("details document has no client download URL")
	}
	if details.Libraries == nil {
		return nil, errors.New("details document has no libraries list")
	}
	return &details, nil
}

// objectHashPattern matches the content hashes the asset store uses. The
// two-character shard prefix and the content-addressed layout both slice
// into the hash, so anything shorter or non-hex must be rejected here.
var objectHashPattern = regexp.MustCompile(`^[0-9a-f]{40}$`)

// ParseAssetIndex parses an asset index document, enforcing that every
// object carries a well-formed content hash.
func ParseAssetIndex(data []byte) (*AssetIndex, error) {
	var idx AssetIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, err
	}
	if idx.Objects == nil {
		return nil, errors.New("asset index has no objects map")
	}
	for name, obj := range idx.Objects {
		if !objectHashPattern.MatchString(obj.Hash) {
			return nil, errors.Errorf("asset object %q has malformed hash %q", name, obj.Hash)
		}
	}
	return &idx, nil
}
