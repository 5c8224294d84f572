/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"dql/internal/config"
	"dql/internal/shell"
)

// NewExecCommand creates the exec subcommand: run statements given on
// the command line or from a file and exit.
func NewExecCommand(opts *RootOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "exec [statement...]",
		Short: "Execute DQL statements and exit",
		Long: "Execute the given statements, or those in --file, and exit.\n" +
			"Execution stops at the first error.",
		Example: `  dql exec "SELECT * FROM posts WHERE username = 'steve';"
  dql exec --file setup.dql`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var input string
			switch {
			case file != "" && len(args) > 0:
				return fmt.Errorf("pass statements or --file, not both")
			case file != "":
				data, err := os.ReadFile(file)
				if err != nil {
					return err
				}
				input = string(data)
			case len(args) > 0:
				input = strings.Join(args, " ")
			default:
				return fmt.Errorf("no statements given")
			}

			engine, err := newEngine(opts)
			if err != nil {
				return err
			}
			sh := shell.New(engine, config.Global().Get())
			if err := sh.ExecuteScript(cmd.Context(), input); err != nil {
				// The shell already printed the error with its caret
				// rendering; signal failure without repeating it.
				return errSilent
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "read statements from a file")
	return cmd
}

// errSilent signals a failure the shell has already reported.
var errSilent = fmt.Errorf("statement failed")
