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

	"github.com/spf13/cobra"

	"github.com/craftfetch/craftfetch/pkg/launcher"
)

const scriptDesc = `
This command writes a standalone shell script that launches an installed
version without craftfetch. By default the script lands inside the data home
as launch_VERSION.sh.
`

func newScriptCmd(out io.Writer) *cobra.Command {
	var (
		opts   launchFlags
		output string
	)

	cmd := &cobra.Command{
		Use:   "script VERSION",
		Short: "write a standalone launch script",
		Long:  scriptDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l := launcher.New(settings.Home())
			launchOpts, err := opts.launcherOptions(cmd)
			if err != nil {
				return err
			}
			path, err := l.WriteScript(args[0], launchOpts, output)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Wrote launch script to %s\n", path)
			return nil
		},
	}
	opts.addFlags(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "path for the script (default: inside the data home)")
	return cmd
}
