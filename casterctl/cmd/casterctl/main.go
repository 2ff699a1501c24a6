// Copyright 2026 The Caster Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// casterctl queries and administers RTK correction casters.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rtkcaster/caster/private/app/command"
)

// CommandPather returns the path to a command.
type CommandPather interface {
	CommandPath() string
}

func main() {
	if err := newRoot(filepath.Base(os.Args[0])).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func newRoot(executable string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   executable,
		Short: "RTK caster client and administration tool",
		Args:  cobra.NoArgs,
		// Errors are printed in main. Subcommands silence the usage message
		// once their arguments are known to be well-formed.
		SilenceErrors: true,
	}
	cmd.AddCommand(
		newQuery(cmd),
		newSubscribe(cmd),
		newKeys(cmd),
		newProxy(cmd),
		newInfo(cmd),
		command.NewCompletion(cmd),
		command.NewGendocs(cmd),
	)
	return cmd
}
