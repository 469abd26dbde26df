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

// Package launcher assembles launch commands from an installed version. It
// consumes resolved absolute paths only; it never downloads anything.
package launcher // import "github.com/craftfetch/craftfetch/pkg/launcher"

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/craftfetch/craftfetch/pkg/auth"
	"github.com/craftfetch/craftfetch/pkg/manifest"
	"github.com/craftfetch/craftfetch/pkg/mcpath"
)

// NotInstalledError indicates a version's jar or details document is
// missing from the installation directory.
type NotInstalledError struct {
	ID string
}

func (e *NotInstalledError) Error() string {
	return fmt.Sprintf("version %q is not installed", e.ID)
}

// Options configures one launch.
type Options struct {
	// JavaPath is the java executable. Defaults to "java" on PATH.
	JavaPath string
	// Memory is the maximum heap, in -Xmx syntax (e.g. "2G").
	Memory string
	// Identity identifies the player. Zero value launches as an
	// anonymous offline player.
	Identity auth.Identity
}

func (o Options) withDefaults() Options {
	if o.JavaPath == "" {
		o.JavaPath = "java"
	}
	if o.Memory == "" {
		o.Memory = "2G"
	}
	if o.Identity == (auth.Identity{}) {
		o.Identity, _ = auth.Offline("").Identity(context.Background())
	}
	return o
}

// Launcher builds launch commands for versions installed under a home.
type Launcher struct {
	home   mcpath.Home
	osName string
}

// New constructs a Launcher for the given home.
func New(home mcpath.Home) *Launcher {
	return &Launcher{home: home, osName: manifest.CurrentOS()}
}

// IsInstalled reports whether the version's jar and details document are
// both present.
func (l *Launcher) IsInstalled(id string) bool {
	for _, p := range []string{l.home.VersionJar(id), l.home.VersionJSON(id)} {
		if _, err := os.Stat(p); err != nil {
			return false
		}
	}
	return true
}

// Installed lists fully installed version ids, newest id first by lexical
// order.
func (l *Launcher) Installed() ([]string, error) {
	entries, err := os.ReadDir(l.home.Versions())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var ids []string
	for _, e := range entries {
		if e.IsDir() && l.IsInstalled(e.Name()) {
			ids = append(ids, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	return ids, nil
}

// details loads the cached details document of an installed version.
func (l *Launcher) details(id string) (*manifest.VersionDetails, error) {
	data, err := os.ReadFile(l.home.VersionJSON(id))
	if err != nil {
		return nil, errors.Wrap(err, "reading version details")
	}
	return manifest.ParseDetails(data)
}

// Classpath returns the class path for a version: its client jar plus every
// allowed library present on disk.
func (l *Launcher) Classpath(id string, details *manifest.VersionDetails) []string {
	parts := []string{l.home.VersionJar(id)}
	for i := range details.Libraries {
		lib := &details.Libraries[i]
		if !lib.AllowedOn(l.osName) {
			continue
		}
		art := lib.Downloads.Artifact
		if art == nil || art.Path == "" {
			continue
		}
		full := l.home.Library(art.Path)
		if _, err := os.Stat(full); err == nil {
			parts = append(parts, full)
		}
	}
	return parts
}

// Command assembles the java invocation for an installed version.
func (l *Launcher) Command(id string, opts Options) ([]string, error) {
	if !l.IsInstalled(id) {
		return nil, &NotInstalledError{ID: id}
	}
	details, err := l.details(id)
	if err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	mainClass := details.MainClass
	if mainClass == "" {
		mainClass = "net.minecraft.client.main.Main"
	}

	versionType := string(details.Type)
	if versionType == "" {
		versionType = string(manifest.ReleaseTypeRelease)
	}

	argv := []string{
		opts.JavaPath,
		"-Xmx" + opts.Memory,
		"-Djava.library.path=" + l.home.Natives(id),
		"-cp", strings.Join(l.Classpath(id, details), string(os.PathListSeparator)),
		mainClass,
		"--username", opts.Identity.Username,
		"--version", id,
		"--gameDir", l.home.String(),
		"--assetsDir", l.home.Assets(),
		"--assetIndex", details.AssetIndex.ID,
		"--accessToken", opts.Identity.AccessToken,
		"--uuid", opts.Identity.PlayerID,
		"--userType", opts.Identity.UserType,
		"--versionType", versionType,
	}
	return argv, nil
}

// WriteScript writes a shell script that launches the version, for users
// who want to start the game outside craftfetch. Returns the script path.
func (l *Launcher) WriteScript(id string, opts Options, path string) (string, error) {
	argv, err := l.Command(id, opts)
	if err != nil {
		return "", err
	}
	if path == "" {
		path = l.home.Path("launch_" + id + ".sh")
	}

	var b strings.Builder
	b.WriteString("#!/bin/sh\n")
	fmt.Fprintf(&b, "# Launches %s from %s\n", id, l.home)
	fmt.Fprintf(&b, "cd %s || exit 1\n", shQuote(l.home.String()))
	b.WriteString("exec")
	for _, arg := range argv {
		b.WriteString(" ")
		b.WriteString(shQuote(arg))
	}
	b.WriteString("\n")

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(b.String()), 0755); err != nil {
		return "", errors.Wrap(err, "writing launch script")
	}
	return path, nil
}

// shQuote wraps s in single quotes so the shell performs no expansion on
// it. An embedded single quote closes the quoting, emits an escaped quote,
// and reopens it.
func shQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
