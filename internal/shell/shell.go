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
Package shell implements the interactive DQL REPL.

Shell Overview:
===============

The shell is a Read-Eval-Print Loop over a DQL engine. It provides a
user-friendly interface for executing DQL statements against a table
store.

Architecture:
=============

The shell follows a simple synchronous model:

 1. Read user input, accumulating lines until a statement is complete
 2. Execute the statement through the engine
 3. Render the result in the selected output format
 4. Repeat

Command Types:
==============

The shell supports two types of input:

 1. Local Commands (prefixed with \):
    - \q or \quit : Exit the shell
    - \h or \help : Display help information
    - \d <table>  : Describe a table
    - \set        : Bind session variables

 2. DQL Statements:
    - SELECT, SCAN, COUNT, INSERT, UPDATE, DELETE
    - CREATE, DROP, ALTER, DUMP SCHEMA
    - EXPLAIN, ANALYZE

Statements end with a semicolon; the shell keeps reading continuation
lines until one arrives, so multi-line statements work naturally.

Example session:

	dql> CREATE TABLE posts (username STRING HASH KEY, postid NUMBER RANGE KEY);
	Table 'posts' created
	dql> INSERT INTO posts (username, postid, score) VALUES ('steve', 1, 7);
	1 row affected
	dql> SELECT * FROM posts WHERE username = 'steve';
	...
*/
package shell

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/google/uuid"

	"dql/internal/banner"
	"dql/internal/config"
	"dql/internal/dql"
	"dql/internal/logging"
	"dql/internal/metrics"
)

// dqlCompletions contains all completable commands and keywords for
// tab completion.
var dqlCompletions = []string{
	// Local commands
	"\\q", "\\quit", "\\h", "\\help", "\\d", "\\dt", "\\l",
	"\\set", "\\unset", "\\x", "\\format", "\\timing", "\\scan",
	"\\clear", "\\s", "\\status", "\\v", "\\version", "\\!",
	// DQL statement keywords (can start a statement)
	"SELECT", "SCAN", "COUNT", "INSERT", "UPDATE", "DELETE",
	"CREATE", "DROP", "ALTER", "DUMP", "EXPLAIN", "ANALYZE",
	// DQL clause keywords
	"FROM", "WHERE", "KEYS", "IN", "AND", "OR", "NOT", "BETWEEN",
	"FILTER", "USING", "LIMIT", "ORDER", "BY", "ASC", "DESC",
	"CONSISTENT", "INTO", "VALUES", "SET", "REMOVE", "ADD",
	"RETURNS", "NONE", "ALL", "OLD", "NEW", "UPDATED",
	"TABLE", "SCHEMA", "GLOBAL", "INDEX", "IF", "EXISTS",
	"THROUGHPUT", "HASH", "KEY", "RANGE", "INCLUDE",
	// Data types
	"STRING", "NUMBER", "BINARY",
	// Literals and functions
	"TRUE", "FALSE", "NULL", "INTERVAL", "NOW()", "TIMESTAMP",
	"begins_with", "attribute_exists", "attribute_not_exists",
	"attribute_type", "contains", "size",
}

// Shell is an interactive session over one engine.
type Shell struct {
	engine  *dql.Engine
	cfg     *config.Config
	out     io.Writer
	logger  *logging.Logger
	session string

	format string
	timing bool
}

// New creates a shell over an engine using the given configuration.
func New(engine *dql.Engine, cfg *config.Config) *Shell {
	return &Shell{
		engine:  engine,
		cfg:     cfg,
		out:     os.Stdout,
		logger:  logging.NewLogger("shell"),
		session: uuid.NewString(),
		format:  cfg.Shell.Format,
	}
}

// Run starts the shell. Interactive terminals get the readline REPL;
// piped input is executed statement by statement, stopping at the
// first error.
func (s *Shell) Run(ctx context.Context) error {
	metrics.Get().SessionOpened()
	defer metrics.Get().SessionClosed()
	s.logger.Info("Session opened", "session", s.session, "endpoint", s.cfg.Endpoint)
	defer s.logger.Info("Session closed", "session", s.session)

	if !isTerminal() {
		return s.runPiped(ctx, os.Stdin)
	}

	banner.PrintShellWithConfig(s.cfg)
	fmt.Fprintf(s.out, "  Type %s to quit, %s for help, %s for completion\n\n",
		highlight("\\q"), highlight("\\h"), highlight("Tab"))

	return s.runInteractive(ctx)
}

// runPiped executes statements from a reader without prompts.
func (s *Shell) runPiped(ctx context.Context, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	return s.ExecuteScript(ctx, string(data))
}

// ExecuteScript runs every statement in input, stopping at the first
// error. The exec subcommand and piped input both land here.
func (s *Shell) ExecuteScript(ctx context.Context, input string) error {
	for _, stmt := range dql.SplitStatements(input) {
		if err := s.executeOne(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Shell) runInteractive(ctx context.Context) error {
	rl, err := s.createReadlineInstance()
	if err != nil {
		return fmt.Errorf("failed to initialize line editing: %w", err)
	}
	defer rl.Close()

	// Multi-line input buffer
	var buffer strings.Builder

	for {
		if buffer.Len() > 0 {
			rl.SetPrompt(dimmed("  -> "))
		} else {
			rl.SetPrompt(info("dql") + dimmed(">") + " ")
		}

		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				// Ctrl+C: cancel pending input, or hint at \q
				if buffer.Len() > 0 {
					buffer.Reset()
					continue
				}
				fmt.Fprintln(s.out, dimmed("(Use \\q to quit or Ctrl+D to exit)"))
				continue
			}
			// Ctrl+D or a terminal error: exit gracefully
			fmt.Fprintln(s.out)
			fmt.Fprintln(s.out, dimmed("Goodbye!"))
			return nil
		}

		input := strings.TrimSpace(line)
		if input == "" && buffer.Len() == 0 {
			continue
		}

		// Local commands are single-line and only start a fresh input.
		if buffer.Len() == 0 && strings.HasPrefix(input, "\\") {
			if s.handleLocalCommand(ctx, input) {
				return nil
			}
			continue
		}

		buffer.WriteString(line)
		buffer.WriteString("\n")
		if !dql.IsComplete(buffer.String()) {
			continue
		}

		statements := dql.SplitStatements(buffer.String())
		buffer.Reset()
		for _, stmt := range statements {
			// Interactive sessions keep going after errors.
			s.executeOne(ctx, stmt)
		}
	}
}

// executeOne runs a single statement and renders its result or error.
func (s *Shell) executeOne(ctx context.Context, stmt string) error {
	start := time.Now()
	res, err := s.engine.Execute(ctx, stmt)
	if err == nil {
		// Row streams are lazy; pull them in while the clock runs.
		err = res.Drain()
	}
	elapsed := time.Since(start)
	if err != nil {
		fmt.Fprintln(s.out, errorText(dql.FormatError(err, stmt)))
		return err
	}
	r := &renderer{out: s.out, format: s.format}
	r.render(res, elapsed, s.timing)
	return nil
}

// createReadlineInstance creates a configured readline instance.
func (s *Shell) createReadlineInstance() (*readline.Instance, error) {
	historyFile := s.cfg.Shell.HistoryFile
	if historyFile != "" {
		// A missing directory silently disables history otherwise.
		os.MkdirAll(filepath.Dir(historyFile), 0755)
	}

	cfg := &readline.Config{
		Prompt:          info("dql") + dimmed(">") + " ",
		HistoryFile:     historyFile,
		AutoComplete:    createCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	}

	return readline.NewEx(cfg)
}

// createCompleter creates a readline completer for tab completion.
func createCompleter() *readline.PrefixCompleter {
	items := make([]readline.PrefixCompleterInterface, 0, len(dqlCompletions))
	for _, cmd := range dqlCompletions {
		items = append(items, readline.PcItem(cmd))
	}
	return readline.NewPrefixCompleter(items...)
}

// filterInput filters input runes for readline.
func filterInput(r rune) (rune, bool) {
	switch r {
	case readline.CharCtrlZ:
		return r, false // Disable Ctrl+Z
	}
	return r, true
}

// ============================================================================
// Local commands
// ============================================================================

// handleLocalCommand processes a backslash command. Returns true when
// the shell should exit.
func (s *Shell) handleLocalCommand(ctx context.Context, input string) bool {
	parts := strings.Fields(input)
	cmd := parts[0]
	args := parts[1:]

	switch cmd {
	case "\\q", "\\quit":
		fmt.Fprintln(s.out, dimmed("Goodbye!"))
		return true

	case "\\h", "\\help":
		s.printHelp()

	case "\\l", "\\dt":
		s.listTables(ctx)

	case "\\d":
		if len(args) != 1 {
			fmt.Fprintln(s.out, errorText("Usage: \\d <table>"))
			break
		}
		s.describeTable(ctx, args[0])

	case "\\set":
		s.handleSet(input, args)

	case "\\unset":
		if len(args) != 1 {
			fmt.Fprintln(s.out, errorText("Usage: \\unset <name>"))
			break
		}
		s.engine.Scope().Unset(args[0])

	case "\\x":
		if s.format == "expanded" {
			s.format = "smart"
		} else {
			s.format = "expanded"
		}
		fmt.Fprintf(s.out, "Output format is %s\n", highlight(s.format))

	case "\\format":
		if len(args) != 1 {
			fmt.Fprintf(s.out, "Output format is %s (available: %s)\n",
				highlight(s.format), strings.Join(config.Formats, ", "))
			break
		}
		s.setFormat(args[0])

	case "\\timing":
		s.timing = !s.timing
		if s.timing {
			fmt.Fprintln(s.out, "Timing is "+success("on"))
		} else {
			fmt.Fprintln(s.out, "Timing is "+dimmed("off"))
		}

	case "\\scan":
		s.engine.AllowSelectScan = !s.engine.AllowSelectScan
		if s.engine.AllowSelectScan {
			fmt.Fprintln(s.out, "SELECT scans are "+warning("allowed"))
		} else {
			fmt.Fprintln(s.out, "SELECT scans are "+success("blocked"))
		}

	case "\\clear":
		fmt.Fprint(s.out, "\033[2J\033[H")

	case "\\v", "\\version":
		fmt.Fprintf(s.out, "DQL v%s\n", banner.Version)

	case "\\s", "\\status":
		s.printStatus()

	case "\\!":
		rest := strings.TrimSpace(strings.TrimPrefix(input, "\\!"))
		if rest == "" {
			fmt.Fprintln(s.out, errorText("Usage: \\! <command>"))
			break
		}
		s.executeShellCommand(rest)

	default:
		fmt.Fprintf(s.out, "%s\n", errorText(fmt.Sprintf("Unknown command: %s (try \\h)", cmd)))
	}
	return false
}

func (s *Shell) listTables(ctx context.Context) {
	tables, err := s.engine.ListTables(ctx)
	if err != nil {
		fmt.Fprintln(s.out, errorText(err.Error()))
		return
	}
	if len(tables) == 0 {
		fmt.Fprintln(s.out, dimmed("(no tables)"))
		return
	}
	for _, table := range tables {
		fmt.Fprintln(s.out, table)
	}
}

func (s *Shell) describeTable(ctx context.Context, table string) {
	meta, err := s.engine.TableMeta(ctx, table)
	if err != nil {
		fmt.Fprintln(s.out, errorText(err.Error()))
		return
	}
	fmt.Fprintln(s.out, meta.Describe())
}

// handleSet binds a session variable, or lists bindings with no
// arguments. The value is a DQL literal, so strings need quotes:
//
//	\set cutoff 100
//	\set name 'steve'
func (s *Shell) handleSet(input string, args []string) {
	scope := s.engine.Scope()
	if len(args) == 0 {
		names := scope.Names()
		if len(names) == 0 {
			fmt.Fprintln(s.out, dimmed("(no variables)"))
			return
		}
		for _, name := range names {
			v, _ := scope.Get(name)
			fmt.Fprintf(s.out, "%s = %s\n", highlight(name), dql.FormatValue(v))
		}
		return
	}
	if len(args) < 2 {
		fmt.Fprintln(s.out, errorText("Usage: \\set <name> <value>"))
		return
	}

	name := args[0]
	literal := strings.TrimSpace(strings.TrimPrefix(
		strings.TrimSpace(strings.TrimPrefix(input, "\\set")), name))
	value, err := dql.ParseValue(literal, scope)
	if err != nil {
		fmt.Fprintln(s.out, errorText(dql.FormatError(err, literal)))
		return
	}
	scope.Set(name, value)
}

func (s *Shell) setFormat(format string) {
	for _, f := range config.Formats {
		if format == f {
			s.format = format
			fmt.Fprintf(s.out, "Output format is %s\n", highlight(s.format))
			return
		}
	}
	fmt.Fprintln(s.out, errorText(fmt.Sprintf("Unknown format: %s (available: %s)",
		format, strings.Join(config.Formats, ", "))))
}

func (s *Shell) printStatus() {
	ep, err := s.cfg.GetEndpoint("")
	fmt.Fprintln(s.out, highlight("Session status:"))
	if err == nil {
		if ep.Addr != "" {
			fmt.Fprintf(s.out, "  Endpoint:     %s (%s)\n", ep.Name, ep.Addr)
		} else {
			fmt.Fprintf(s.out, "  Endpoint:     %s (%s)\n", ep.Name, ep.Driver)
		}
	} else {
		fmt.Fprintf(s.out, "  Endpoint:     %s\n", s.cfg.Endpoint)
	}
	fmt.Fprintf(s.out, "  Session:      %s\n", s.session)
	fmt.Fprintf(s.out, "  Format:       %s\n", s.format)
	fmt.Fprintf(s.out, "  Timing:       %v\n", s.timing)
	fmt.Fprintf(s.out, "  SELECT scans: %v\n", s.engine.AllowSelectScan)
	fmt.Fprintf(s.out, "  Variables:    %d\n", len(s.engine.Scope().Names()))
}

// executeShellCommand runs a system command and prints its output.
func (s *Shell) executeShellCommand(cmdline string) {
	cmd := exec.Command("sh", "-c", cmdline)
	cmd.Stdout = s.out
	cmd.Stderr = s.out
	if err := cmd.Run(); err != nil {
		fmt.Fprintln(s.out, errorText(err.Error()))
	}
}

func (s *Shell) printHelp() {
	help := `
` + highlight("Local commands:") + `
  \q, \quit          Exit the shell
  \h, \help          Show this help
  \l, \dt            List tables
  \d <table>         Describe a table (keys, indexes, throughput)
  \set               List session variables
  \set <name> <val>  Bind a session variable (value is a DQL literal)
  \unset <name>      Remove a session variable
  \x                 Toggle expanded output
  \format <fmt>      Set output format (smart, column, expanded, csv, json)
  \timing            Toggle statement timing
  \scan              Toggle SELECT scan fallback
  \clear             Clear the screen
  \s, \status        Show session status
  \v, \version       Show version
  \! <command>       Run a system command

` + highlight("Statements") + ` end with a semicolon and may span lines:
  SELECT * FROM posts WHERE username = 'steve';
  SCAN posts FILTER score > 5;
  COUNT posts WHERE username = 'steve';
  INSERT INTO posts (username, postid) VALUES ('steve', 1);
  UPDATE posts SET score += 1 WHERE username = 'steve';
  DELETE FROM posts WHERE KEYS IN ('steve', 1);
  CREATE TABLE posts (username STRING HASH KEY, postid NUMBER RANGE KEY);
  ALTER TABLE posts SET THROUGHPUT (10, 5);
  DUMP SCHEMA posts;
  EXPLAIN SELECT * FROM posts WHERE username = 'steve';
  ANALYZE UPDATE posts SET score = 0 WHERE username = 'steve';
`
	fmt.Fprintln(s.out, help)
}
