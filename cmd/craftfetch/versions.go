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
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/craftfetch/craftfetch/pkg/launcher"
	"github.com/craftfetch/craftfetch/pkg/manifest"
)

const versionsDesc = `
This command lists the versions available for download, newest first.

Installed versions are marked with an asterisk. Use '--type all' to include
snapshots and legacy versions, and '--limit 0' to list the entire catalog.
`

func newVersionsCmd(out io.Writer) *cobra.Command {
	var (
		typ   string
		limit int
	)

	cmd := &cobra.Command{
		Use:   "versions",
		Short: "list versions available for download",
		Long:  versionsDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newManifestClient()
			if err != nil {
				return err
			}
			versions, err := client.List(cmd.Context(), manifest.ReleaseType(typ), limit)
			if err != nil {
				return err
			}

			l := launcher.New(settings.Home())
			w := tabwriter.NewWriter(out, 0, 8, 2, ' ', 0)
			fmt.Fprintln(w, "VERSION\tTYPE\tRELEASED\t")
			for _, v := range versions {
				installed := ""
				if l.IsInstalled(v.ID) {
					installed = " *"
				}
				fmt.Fprintf(w, "%s%s\t%s\t%s\t\n", v.ID, installed, v.Type, v.ReleaseTime.Format("2006-01-02"))
			}
			return w.Flush()
		},
	}

	f := cmd.Flags()
	f.StringVar(&typ, "type", string(manifest.ReleaseTypeRelease), "version type to list (release, snapshot, old_beta, old_alpha, all)")
	f.IntVar(&limit, "limit", 20, "maximum number of versions to list (0 for no limit)")
	return cmd
}
