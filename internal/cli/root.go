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

/*
Package cli wires the dql command line: flag parsing, configuration
loading, store selection, and the shell, exec, dump and discover
subcommands. Configuration precedence is defaults < config file <
environment < flags.
*/
package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"dql/internal/config"
	"dql/internal/dql"
	"dql/internal/logging"
	"dql/internal/metrics"
	"dql/internal/shell"
	"dql/internal/store"
)

// RootOptions holds global flags shared by all subcommands.
type RootOptions struct {
	ConfigFile string
	Endpoint   string
	Format     string
	AllowScan  bool
	LogLevel   string
	LogJSON    bool
	Vars       []string // name=literal session variable bindings
}

// NewRootCommand creates the root command for the dql CLI. Running it
// without a subcommand starts the interactive shell.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "dql",
		Short: "DQL - query language shell for wide-column stores",
		Long: "DQL is a SQL-like query language for DynamoDB-style wide-column\n" +
			"stores. Without a subcommand it starts the interactive shell.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup(cmd, opts)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell(cmd, opts)
		},
	}

	// Global flags
	cmd.PersistentFlags().StringVarP(&opts.ConfigFile, "config", "c", "", "path to configuration file")
	cmd.PersistentFlags().StringVarP(&opts.Endpoint, "endpoint", "e", "", "endpoint to connect to")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "", "output format ("+strings.Join(config.Formats, ", ")+")")
	cmd.PersistentFlags().BoolVar(&opts.AllowScan, "allow-select-scan", false, "allow SELECT to fall back to table scans")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().BoolVar(&opts.LogJSON, "json-logs", false, "emit logs as JSON")
	cmd.PersistentFlags().StringArrayVar(&opts.Vars, "var", nil, "session variable binding, name=literal (repeatable)")

	// Add subcommands
	cmd.AddCommand(NewShellCommand(opts))
	cmd.AddCommand(NewExecCommand(opts))
	cmd.AddCommand(NewDumpCommand(opts))
	cmd.AddCommand(NewDiscoverCommand(opts))

	return cmd
}

// setup loads configuration with the documented precedence and applies
// it to the global logger.
func setup(cmd *cobra.Command, opts *RootOptions) error {
	mgr := config.Global()

	if opts.ConfigFile != "" {
		if err := mgr.LoadFromFile(opts.ConfigFile); err != nil {
			return err
		}
		mgr.LoadFromEnv()
	} else if err := mgr.Load(); err != nil {
		return err
	}

	cfg := mgr.Get()
	if cmd.Flags().Changed("endpoint") {
		cfg.Endpoint = opts.Endpoint
	}
	if cmd.Flags().Changed("format") {
		cfg.Shell.Format = opts.Format
	}
	if cmd.Flags().Changed("allow-select-scan") {
		cfg.Shell.AllowSelectScan = opts.AllowScan
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = opts.LogLevel
	}
	if cmd.Flags().Changed("json-logs") {
		cfg.LogJSON = opts.LogJSON
	}
	mgr.Set(cfg)

	if err := cfg.Validate(); err != nil {
		return err
	}

	logging.SetGlobalLevel(logging.ParseLevel(cfg.LogLevel))
	logging.SetJSONMode(cfg.LogJSON)
	return nil
}

// newEngine opens the configured endpoint and builds an engine with
// the session's flags and variable bindings applied.
func newEngine(opts *RootOptions) (*dql.Engine, error) {
	cfg := config.Global().Get()

	ep, err := cfg.GetEndpoint("")
	if err != nil {
		return nil, err
	}
	ts, err := openStore(ep)
	if err != nil {
		return nil, err
	}

	engine := dql.NewEngine(ts)
	engine.AllowSelectScan = cfg.Shell.AllowSelectScan

	for _, binding := range opts.Vars {
		name, literal, ok := strings.Cut(binding, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --var binding %q: want name=literal", binding)
		}
		value, err := dql.ParseValue(literal, engine.Scope())
		if err != nil {
			return nil, fmt.Errorf("invalid --var binding %q: %w", binding, err)
		}
		engine.Scope().Set(strings.TrimSpace(name), value)
	}

	return engine, nil
}

// openStore connects the endpoint's driver. The memory driver is
// bundled; remote endpoints need a store that speaks the TableStore
// contract over the wire, which this build does not ship.
func openStore(ep config.EndpointConfig) (store.TableStore, error) {
	switch ep.Driver {
	case "memory":
		return store.NewMemoryStore(), nil
	case "remote":
		return nil, fmt.Errorf("endpoint %q: the remote driver is not bundled with this build; use a memory endpoint", ep.Name)
	default:
		return nil, fmt.Errorf("endpoint %q: unknown driver %q", ep.Name, ep.Driver)
	}
}

// startMetricsServer starts the Prometheus endpoint when enabled. The
// returned stop function is a no-op otherwise.
func startMetricsServer() (func(), error) {
	cfg := config.Global().Get()
	if !cfg.Metrics.Enabled {
		return func() {}, nil
	}
	srv := metrics.NewServer(&cfg.Metrics)
	if err := srv.Start(); err != nil {
		return nil, err
	}
	return func() { srv.Stop() }, nil
}

// runShell is shared by the bare root command and the shell subcommand.
func runShell(cmd *cobra.Command, opts *RootOptions) error {
	engine, err := newEngine(opts)
	if err != nil {
		return err
	}

	stopMetrics, err := startMetricsServer()
	if err != nil {
		return err
	}
	defer stopMetrics()

	return shell.New(engine, config.Global().Get()).Run(cmd.Context())
}
