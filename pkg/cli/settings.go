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

// Package cli describes the operating environment for the craftfetch CLI.
//
// Settings describes all of the environment settings the CLI honors. Values
// are drawn from environment variables and may be overridden by command line
// flags.
package cli

import (
	"os"
	"strconv"
	"time"

	"github.com/spf13/pflag"

	"github.com/craftfetch/craftfetch/pkg/mcpath"
)

const (
	defaultConcurrency = 10
	defaultChunkSize   = 1 << 20 // 1 MiB
	defaultMaxRetries  = 3
	defaultTimeout     = 30 * time.Second
)

// Settings describes all of the configuration options accepted by craftfetch.
type Settings struct {
	// DataHome is the root of the installation directory.
	DataHome string
	// Concurrency caps simultaneous network requests across all downloads.
	Concurrency int
	// ChunkSize is the byte-range size used for chunked transfers.
	ChunkSize int64
	// MaxRetries is the number of attempts for a failed transfer unit.
	MaxRetries int
	// Timeout applies per network request, not per download.
	Timeout time.Duration
	// ManifestURL overrides the version catalog location, e.g. for a
	// mirror. Empty selects the canonical catalog.
	ManifestURL string
	// Debug indicates whether craftfetch is running in Debug mode.
	Debug bool
}

// New builds Settings from environment variables.
func New() *Settings {
	env := &Settings{
		DataHome:    envOr("CRAFT_DATA_HOME", mcpath.DataHome().String()),
		Concurrency: envIntOr("CRAFT_CONCURRENCY", defaultConcurrency),
		ChunkSize:   int64(envIntOr("CRAFT_CHUNK_SIZE", defaultChunkSize)),
		MaxRetries:  envIntOr("CRAFT_MAX_RETRIES", defaultMaxRetries),
		Timeout:     defaultTimeout,
		ManifestURL: os.Getenv("CRAFT_MANIFEST_URL"),
	}
	if v := os.Getenv("CRAFT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			env.Timeout = d
		}
	}
	env.Debug, _ = strconv.ParseBool(os.Getenv("CRAFT_DEBUG"))
	return env
}

// AddFlags binds flags to the given flagset.
func (s *Settings) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&s.DataHome, "data-home", s.DataHome, "path to the installation directory")
	fs.IntVar(&s.Concurrency, "concurrency", s.Concurrency, "maximum simultaneous network requests")
	fs.Int64Var(&s.ChunkSize, "chunk-size", s.ChunkSize, "byte range size for chunked downloads")
	fs.IntVar(&s.MaxRetries, "max-retries", s.MaxRetries, "retry attempts per failed transfer unit")
	fs.DurationVar(&s.Timeout, "timeout", s.Timeout, "timeout per network request")
	fs.StringVar(&s.ManifestURL, "manifest-url", s.ManifestURL, "override the version catalog URL")
	fs.BoolVar(&s.Debug, "debug", s.Debug, "enable verbose output")
}

// Home returns the installation directory as an mcpath.Home.
func (s *Settings) Home() mcpath.Home {
	return mcpath.Home(s.DataHome)
}

// EnvVars returns the environment this configuration would round-trip to.
func (s *Settings) EnvVars() map[string]string {
	return map[string]string{
		"CRAFT_DATA_HOME":    s.DataHome,
		"CRAFT_CONCURRENCY":  strconv.Itoa(s.Concurrency),
		"CRAFT_CHUNK_SIZE":   strconv.FormatInt(s.ChunkSize, 10),
		"CRAFT_MAX_RETRIES":  strconv.Itoa(s.MaxRetries),
		"CRAFT_TIMEOUT":      s.Timeout.String(),
		"CRAFT_MANIFEST_URL": s.ManifestURL,
		"CRAFT_DEBUG":        strconv.FormatBool(s.Debug),
	}
}

func envOr(name, def string) string {
	if v, ok := os.LookupEnv(name); ok {
		return v
	}
	return def
}

func envIntOr(name string, def int) int {
	if v, ok := os.LookupEnv(name); ok {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}
