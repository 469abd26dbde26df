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
	"fmt"
	"io"
	"log/slog"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/craftfetch/craftfetch/pkg/installer"
)

const downloadDesc = `
This command installs a version into the data home: its client archive, the
libraries allowed on this platform, the asset objects, and the native
libraries, which are extracted and ready for launch.

Artifacts already present and verified are not downloaded again, so re-running
the command repairs a broken installation.
`

func newDownloadCmd(out io.Writer) *cobra.Command {
	var (
		skipAssets    bool
		skipLibraries bool
	)

	cmd := &cobra.Command{
		Use:   "download VERSION",
		Short: "install a version with its libraries and assets",
		Long:  downloadDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inst, err := newInstaller(func(message string, current, total int64) {
				slog.Debug("transfer progress", "unit", message, "current", current, "total", total)
			})
			if err != nil {
				return err
			}

			res, err := inst.Install(cmd.Context(), args[0], installer.Options{
				SkipLibraries: skipLibraries,
				SkipAssets:    skipAssets,
			})
			if res == nil {
				return err
			}
			fmt.Fprintf(out, "Version %s: %d downloaded, %d already present, %d failed, %d native bundles extracted\n",
				res.ID, res.Downloaded, res.Skipped, res.Failed, res.NativesExtracted)
			if err != nil {
				return errors.Wrapf(err, "installation of %s is incomplete", args[0])
			}
			fmt.Fprintf(out, "Version %s is ready. Launch it with: craftfetch launch %s\n", res.ID, res.ID)
			return nil
		},
	}

	f := cmd.Flags()
	f.BoolVar(&skipAssets, "skip-assets", false, "do not download asset objects")
	f.BoolVar(&skipLibraries, "skip-libraries", false, "do not download libraries or natives")
	return cmd
}
