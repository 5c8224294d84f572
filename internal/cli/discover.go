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
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"dql/internal/discovery"
)

// NewDiscoverCommand creates the discover subcommand: browse the local
// network for advertised store endpoints.
func NewDiscoverCommand(opts *RootOptions) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Discover store endpoints on the local network",
		Long: "Browse mDNS for store endpoints advertising " + discovery.ServiceType + ".\n" +
			"Each hit prints as a ready-to-paste endpoints entry for the config file.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := discovery.NewService(discovery.Config{Enabled: true})
			endpoints, err := svc.Browse(cmd.Context(), timeout)
			if err != nil {
				return err
			}
			if len(endpoints) == 0 {
				fmt.Println("No endpoints found.")
				return nil
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"Name", "Addr", "Region", "Version"})
			table.SetAutoFormatHeaders(false)
			table.SetAutoWrapText(false)
			table.SetAlignment(tablewriter.ALIGN_LEFT)
			for _, ep := range endpoints {
				table.Append([]string{ep.Name, ep.Addr, ep.Region, ep.Version})
			}
			table.Render()

			fmt.Println()
			fmt.Println("Add to your config file:")
			fmt.Println()
			fmt.Println("endpoints:")
			for _, ep := range endpoints {
				fmt.Printf("  - name: %s\n    driver: remote\n    addr: %s\n", ep.Name, ep.Addr)
				if ep.Region != "" {
					fmt.Printf("    region: %s\n", ep.Region)
				}
			}
			return nil
		},
	}

	cmd.Flags().DurationVarP(&timeout, "timeout", "t", discovery.DefaultBrowseTimeout, "browse timeout")
	return cmd
}
