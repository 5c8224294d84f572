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

	"github.com/spf13/cobra"

	"dql/internal/dql"
)

// NewDumpCommand creates the dump subcommand: print the CREATE
// statements for tables, suitable for piping back into dql exec.
func NewDumpCommand(opts *RootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "dump [table...]",
		Short: "Dump table schemas as CREATE statements",
		Long: "Print CREATE TABLE statements for the named tables, or for every\n" +
			"table when none are named. The output round-trips through exec.",
		Example: `  dql dump
  dql dump posts users > schema.dql`,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := newEngine(opts)
			if err != nil {
				return err
			}

			stmt := &dql.DumpStatement{Tables: args}
			res, err := engine.ExecuteStatement(cmd.Context(), stmt)
			if err != nil {
				return err
			}

			out := os.Stdout
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			fmt.Fprintln(out, res.Message)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write to a file instead of stdout")
	return cmd
}
