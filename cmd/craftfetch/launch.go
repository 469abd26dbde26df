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
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/craftfetch/craftfetch/pkg/auth"
	"github.com/craftfetch/craftfetch/pkg/launcher"
)

const launchDesc = `
This command starts an installed version. The version must have been
installed with 'craftfetch download' first.

Without a username the game starts in offline mode as "Player".
`

func newLaunchCmd(out io.Writer) *cobra.Command {
	var opts launchFlags

	cmd := &cobra.Command{
		Use:   "launch VERSION",
		Short: "start an installed version",
		Long:  launchDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l := launcher.New(settings.Home())
			launchOpts, err := opts.launcherOptions(cmd)
			if err != nil {
				return err
			}
			argv, err := l.Command(args[0], launchOpts)
			if err != nil {
				return err
			}
			slog.Debug("starting game", "version", args[0], "argv", argv)
			fmt.Fprintf(out, "Starting %s\n", args[0])

			game := exec.CommandContext(cmd.Context(), argv[0], argv[1:]...)
			game.Dir = settings.DataHome
			game.Stdout = out
			game.Stderr = os.Stderr
			return game.Run()
		},
	}
	opts.addFlags(cmd)
	return cmd
}

// launchFlags holds the flags shared by the launch and script commands.
type launchFlags struct {
	username string
	memory   string
	javaPath string
}

func (o *launchFlags) addFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&o.username, "username", "", "player name for offline mode")
	f.StringVar(&o.memory, "memory", "2G", "maximum java heap size")
	f.StringVar(&o.javaPath, "java", "java", "path to the java executable")
}

func (o *launchFlags) launcherOptions(cmd *cobra.Command) (launcher.Options, error) {
	identity, err := auth.Offline(o.username).Identity(cmd.Context())
	if err != nil {
		return launcher.Options{}, err
	}
	return launcher.Options{
		JavaPath: o.javaPath,
		Memory:   o.memory,
		Identity: identity,
	}, nil
}
