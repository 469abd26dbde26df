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

// Package mcpath builds paths inside a craftfetch installation directory.
//
// The layout under the home is fixed and shared with other launcher tooling:
//
//	versions/<id>/<id>.jar
//	versions/<id>/<id>.json
//	versions/<id>/natives/
//	libraries/<maven-style relative path>
//	assets/indexes/<index id>.json
//	assets/objects/<hash[0:2]>/<hash>
//
// The objects layout is content addressed: the first two hex characters of an
// object's hash shard the directory, the full hash is the file name. Tools
// that consume the installation rely on this layout being bit-exact.
package mcpath // import "github.com/craftfetch/craftfetch/pkg/mcpath"

import (
	"os"
	"path/filepath"
)

const (
	// DataHomeEnvVar is the environment variable used by craftfetch for
	// the installation directory. When no value is set a default is used.
	DataHomeEnvVar = "CRAFT_DATA_HOME"

	// xdgDataHomeEnvVar is the environment variable used by the XDG base
	// directory specification for the data directory.
	xdgDataHomeEnvVar = "XDG_DATA_HOME"
)

// Home is the root of a craftfetch installation directory.
type Home string

// DataHome resolves the installation directory.
//
// The order of resolution is:
//  1. CRAFT_DATA_HOME
//  2. $XDG_DATA_HOME/craftfetch
//  3. $HOME/.local/share/craftfetch
func DataHome() Home {
	if base := os.Getenv(DataHomeEnvVar); base != "" {
		return Home(base)
	}
	if base := os.Getenv(xdgDataHomeEnvVar); base != "" {
		return Home(filepath.Join(base, "craftfetch"))
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fall through to a relative directory rather than failing
		// path construction. Callers surface the error on first use.
		home = "."
	}
	return Home(filepath.Join(home, ".local", "share", "craftfetch"))
}

// String returns the home directory as a plain path.
func (h Home) String() string {
	return string(h)
}

// Path joins elem onto the home directory.
func (h Home) Path(elem ...string) string {
	return filepath.Join(append([]string{string(h)}, elem...)...)
}

// Versions returns the directory holding per-version installations.
func (h Home) Versions() string {
	return h.Path("versions")
}

// Libraries returns the root of the library tree.
func (h Home) Libraries() string {
	return h.Path("libraries")
}

// Library returns the absolute path of a library given its manifest-relative
// path.
func (h Home) Library(rel string) string {
	return filepath.Join(h.Libraries(), filepath.FromSlash(rel))
}

// Assets returns the root of the asset store.
func (h Home) Assets() string {
	return h.Path("assets")
}

// AssetIndex returns the path of a cached asset index document.
func (h Home) AssetIndex(id string) string {
	return h.Path("assets", "indexes", id+".json")
}

// Object returns the content-addressed path of an asset object.
func (h Home) Object(hash string) string {
	return h.Path("assets", "objects", hash[:2], hash)
}

// VersionDir returns the directory of one installed version.
func (h Home) VersionDir(id string) string {
	return h.Path("versions", id)
}

// VersionJar returns the path of a version's client archive.
func (h Home) VersionJar(id string) string {
	return h.Path("versions", id, id+".jar")
}

// VersionJSON returns the path of a version's cached details document.
func (h Home) VersionJSON(id string) string {
	return h.Path("versions", id, id+".json")
}

// Natives returns the per-version directory native libraries are
// extracted into.
func (h Home) Natives(id string) string {
	return h.Path("versions", id, "natives")
}

// LockFile returns the path of the lock file guarding concurrent
// installations into this home.
func (h Home) LockFile() string {
	return h.Path(".lock")
}

// Ensure creates the fixed directory skeleton under the home.
func (h Home) Ensure() error {
	for _, dir := range []string{
		h.Versions(),
		h.Libraries(),
		h.Path("assets", "indexes"),
		h.Path("assets", "objects"),
	} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
