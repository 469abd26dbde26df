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

package main

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/craftfetch/craftfetch/internal/logging"
	"github.com/craftfetch/craftfetch/internal/version"
	"github.com/craftfetch/craftfetch/pkg/cli"
	"github.com/craftfetch/craftfetch/pkg/getter"
	"github.com/craftfetch/craftfetch/pkg/installer"
	"github.com/craftfetch/craftfetch/pkg/manifest"
	"github.com/craftfetch/craftfetch/pkg/resolver"
	"github.com/craftfetch/craftfetch/pkg/transfer"
)

const rootDesc = `The game version downloader and launcher.

Common actions for craftfetch:

- craftfetch versions:         list versions available for download
- craftfetch download 1.20.4:  install a version with its libraries and assets
- craftfetch launch 1.20.4:    start an installed version
- craftfetch script 1.20.4:    write a standalone launch script

Environment variables:

| Name               | Description                                          |
|--------------------|------------------------------------------------------|
| $CRAFT_DATA_HOME   | set an alternative location for the installation.    |
| $CRAFT_CONCURRENCY | cap on simultaneous network requests.                |
| $CRAFT_CHUNK_SIZE  | byte range size for chunked downloads.               |
| $CRAFT_MAX_RETRIES | retry attempts per failed transfer unit.             |
| $CRAFT_TIMEOUT     | timeout per network request (e.g. "45s").            |
| $CRAFT_DEBUG       | indicate whether craftfetch runs in debug mode.      |

By default craftfetch installs into $XDG_DATA_HOME/craftfetch or
$HOME/.local/share/craftfetch.`

var settings = cli.New()

func newRootCmd(out io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "craftfetch",
		Short:        "the game version downloader and launcher",
		Long:         rootDesc,
		SilenceUsage: true,
		Version:      version.GetVersion(),
	}
	flags := cmd.PersistentFlags()
	settings.AddFlags(flags)

	slog.SetDefault(logging.NewLogger(func() bool { return settings.Debug }))

	cmd.AddCommand(
		newVersionsCmd(out),
		newDownloadCmd(out),
		newLaunchCmd(out),
		newScriptCmd(out),
	)
	return cmd
}

// newGetter builds the shared HTTP getter from the active settings.
func newGetter() (getter.Getter, error) {
	return getter.NewHTTPGetter(
		getter.WithUserAgent(version.GetUserAgent()),
		getter.WithTimeout(settings.Timeout),
	)
}

func newManifestClient() (*manifest.Client, error) {
	g, err := newGetter()
	if err != nil {
		return nil, err
	}
	return manifest.NewClient(g, clientOptions()...), nil
}

func clientOptions() []manifest.ClientOption {
	if settings.ManifestURL == "" {
		return nil
	}
	return []manifest.ClientOption{manifest.WithManifestURL(settings.ManifestURL)}
}

// newInstaller wires together the full download pipeline.
func newInstaller(observer transfer.Observer) (*installer.Installer, error) {
	g, err := newGetter()
	if err != nil {
		return nil, err
	}
	client := manifest.NewClient(g, clientOptions()...)
	home := settings.Home()
	return &installer.Installer{
		Home:     home,
		Client:   client,
		Resolver: resolver.New(home, client),
		Engine: transfer.NewEngine(g, transfer.Config{
			Concurrency: settings.Concurrency,
			ChunkSize:   settings.ChunkSize,
			MaxRetries:  settings.MaxRetries,
		}, observer),
		Logger: slog.Default(),
	}, nil
}
