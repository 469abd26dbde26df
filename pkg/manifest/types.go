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

// Package manifest fetches and parses the remote version catalog: the
// top-level version manifest, per-version details documents, and asset
// index documents. It also evaluates the platform rules attached to
// library entries.
package manifest // import "github.com/craftfetch/craftfetch/pkg/manifest"

import (
	"time"
)

// ReleaseType classifies a version in the catalog.
type ReleaseType string

const (
	ReleaseTypeRelease  ReleaseType = "release"
	ReleaseTypeSnapshot ReleaseType = "snapshot"
	ReleaseTypeOldBeta  ReleaseType = "old_beta"
	ReleaseTypeOldAlpha ReleaseType = "old_alpha"

	// ReleaseTypeAll is a filter value, never a value seen on the wire.
	ReleaseTypeAll ReleaseType = "all"
)

// Manifest is the top-level version index.
type Manifest struct {
	Latest   Latest    `json:"latest"`
	Versions []Version `json:"versions"`
}

// Latest names the newest release and snapshot ids.
type Latest struct {
	Release  string `json:"release"`
	Snapshot string `json:"snapshot"`
}

// Version is one catalog entry. It is immutable once fetched; a fresh
// catalog fetch supersedes it.
type Version struct {
	ID              string      `json:"id"`
	Type            ReleaseType `json:"type"`
	URL             string      `json:"url"`
	ReleaseTime     time.Time   `json:"releaseTime"`
	SHA1            string      `json:"sha1,omitempty"`
	ComplianceLevel int         `json:"complianceLevel,omitempty"`
}

// VersionDetails is the full per-version document. It is fetched once per
// download operation and not cached across invocations.
type VersionDetails struct {
	ID         string      `json:"id"`
	Type       ReleaseType `json:"type"`
	MainClass  string      `json:"mainClass,omitempty"`
	Downloads  Downloads   `json:"downloads"`
	AssetIndex AssetRef    `json:"assetIndex"`
	Assets     string      `json:"assets,omitempty"`
	Libraries  []Library   `json:"libraries"`
}

// Downloads holds the primary archive descriptors of a version.
type Downloads struct {
	Client *Artifact `json:"client"`
	Server *Artifact `json:"server,omitempty"`
}

// Artifact describes one downloadable file: where it lives, where it goes
// relative to the library root, and what it must hash to.
type Artifact struct {
	Path string `json:"path,omitempty"`
	URL  string `json:"url"`
	SHA1 string `json:"sha1,omitempty"`
	Size int64  `json:"size,omitempty"`
}

// Library is one dependency entry of a version. Never mutated after parse.
type Library struct {
	Name      string            `json:"name,omitempty"`
	Downloads LibraryDownloads  `json:"downloads"`
	Natives   map[string]string `json:"natives,omitempty"`
	Rules     []Rule            `json:"rules,omitempty"`
}

// LibraryDownloads carries the main artifact plus any platform-classified
// native artifacts, keyed by classifier (e.g. "natives-linux").
type LibraryDownloads struct {
	Artifact    *Artifact            `json:"artifact,omitempty"`
	Classifiers map[string]*Artifact `json:"classifiers,omitempty"`
}

// RuleAction is the effect of a matching rule.
type RuleAction string

const (
	ActionAllow    RuleAction = "allow"
	ActionDisallow RuleAction = "disallow"
)

// Rule is one ordered (condition, action) pair on a library. A nil OS means
// the rule is unconditional.
type Rule struct {
	Action RuleAction `json:"action"`
	OS     *OSMatch   `json:"os,omitempty"`
}

// OSMatch restricts a rule to one operating system name ("windows",
// "linux", "osx").
type OSMatch struct {
	Name string `json:"name,omitempty"`
}

// AssetRef points a version at its asset index document.
type AssetRef struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	SHA1      string `json:"sha1,omitempty"`
	Size      int64  `json:"size,omitempty"`
	TotalSize int64  `json:"totalSize,omitempty"`
}

// AssetIndex maps logical asset names to content-addressed objects.
type AssetIndex struct {
	Objects map[string]AssetObject `json:"objects"`
}

// AssetObject identifies one asset by content hash. Its storage path is
// derived from the hash alone.
type AssetObject struct {
	Hash string `json:"hash"`
	Size int64  `json:"size"`
}
