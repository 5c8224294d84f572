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
Package banner provides the startup banner display for the DQL shell.

Banner Display Overview:
========================

This package handles the visual branding displayed when the shell starts.
It uses Go's embed directive to include the ASCII art banner at compile time,
ensuring the banner file is always available without external dependencies.

Go Embed Directive:
===================

The //go:embed directive is a Go 1.16+ feature that embeds file contents
directly into the compiled binary. This approach has several benefits:

  1. No external file dependencies at runtime
  2. Faster startup (no file I/O needed)
  3. Simpler deployment (single binary)
  4. Guaranteed file availability

ANSI Color Codes:
=================

The package uses ANSI escape sequences for terminal colors. These codes
are widely supported in modern terminals (Linux, macOS, Windows 10+).

Format: \033[<code>m

Example: "\033[31mRed Text\033[0m" prints "Red Text" in red.

Usage:
======

Simply call banner.Print() at shell startup:

	func main() {
	    banner.Print()
	    // ... rest of initialization
	}
*/
package banner

import (
	_ "embed" // Required for the //go:embed directive
	"fmt"
	"io"
	"os"
	"strings"

	"dql/internal/config"
)

// banner contains the ASCII art logo loaded from banner.txt at compile time.
// The //go:embed directive instructs the Go compiler to read banner.txt
// and store its contents in this variable as a string.
//
//go:embed banner.txt
var banner string

// ANSI escape codes for terminal text formatting.
// These constants provide readable names for common ANSI codes,
// making the code more maintainable and self-documenting.
const (
	// AnsiRed sets the foreground color to red.
	// Used for the main banner logo to create visual impact.
	AnsiRed = "\033[31m"

	// AnsiGreen sets the foreground color to green.
	// Used for copyright and license information.
	AnsiGreen = "\033[32m"

	// AnsiYellow sets the foreground color to yellow.
	// Available for warning messages or highlights.
	AnsiYellow = "\033[33m"

	// AnsiCyan sets the foreground color to cyan.
	// Used for section headers and informational text.
	AnsiCyan = "\033[36m"

	// AnsiReset clears all text formatting and returns to default.
	// Always use this after colored text to prevent color bleeding.
	AnsiReset = "\033[0m"

	// AnsiBold enables bold text rendering.
	// Combined with colors for emphasis on important text.
	AnsiBold = "\033[1m"

	// AnsiDim enables dim/faint text rendering.
	// Used for less important information.
	AnsiDim = "\033[2m"
)

// Version information for the DQL application.
// These constants are used in the banner display and can be
// referenced elsewhere in the application for version reporting.
const (
	Version   = "01.26.3"
	Copyright = "(c)2026 Firefly Software Solutions Inc"
	License   = "Licensed under Apache 2.0"
)

// Print displays the startup banner with version and copyright information.
// This function should be called once at shell startup to provide
// visual branding and version information to the user.
func Print() {
	PrintTo(os.Stdout)
}

// PrintTo writes the startup banner to the specified writer.
func PrintTo(w io.Writer) {
	// Print the ASCII art logo in red for visual impact.
	fmt.Fprintln(w, AnsiRed+banner+AnsiReset)

	// Print the application name and version in bold red.
	fmt.Fprintln(w, AnsiRed+AnsiBold+":: DQL ::                       (v"+Version+")"+AnsiReset)

	// Print copyright and license in bold green.
	fmt.Fprintln(w, AnsiGreen+AnsiBold+Copyright+AnsiReset)
	fmt.Fprintln(w, AnsiGreen+AnsiBold+License+AnsiReset)

	// Print a blank line for visual separation from subsequent output.
	fmt.Fprintln(w)
}

// PrintShellWithConfig prints the shell banner with the active
// configuration so users can see at a glance which endpoint they are
// connected to and which safety settings are in effect.
func PrintShellWithConfig(cfg *config.Config) {
	PrintShellWithConfigTo(os.Stdout, cfg)
}

// PrintShellWithConfigTo writes the shell banner with configuration to
// the specified writer.
func PrintShellWithConfigTo(w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, AnsiRed+banner+AnsiReset)
	fmt.Fprintln(w, AnsiRed+AnsiBold+":: DQL Shell ::                 (v"+Version+")"+AnsiReset)
	fmt.Fprintln(w, AnsiDim+"  Query Language for Wide-Column Stores"+AnsiReset)
	fmt.Fprintln(w)

	printConfigSource(w, cfg)
	printCompactConfig(w, cfg)

	fmt.Fprintln(w, AnsiDim+"  "+Copyright+AnsiReset)
	fmt.Fprintln(w)
}

// Helper functions for configuration display

func printConfigSource(w io.Writer, cfg *config.Config) {
	fmt.Fprint(w, "  "+AnsiDim+"Config: "+AnsiReset)
	if cfg.ConfigFile != "" {
		fmt.Fprintln(w, AnsiYellow+cfg.ConfigFile+AnsiReset)
	} else {
		fmt.Fprintln(w, AnsiDim+"defaults + environment"+AnsiReset)
	}
	fmt.Fprintln(w)
}

func printCompactConfig(w io.Writer, cfg *config.Config) {
	const lineWidth = 78

	// === ENDPOINT ===
	printSectionHeader(w, "Endpoint", lineWidth)

	ep, err := cfg.GetEndpoint("")
	if err != nil {
		printRow2(w, fmtKV("Name", AnsiYellow+cfg.Endpoint+AnsiReset),
			AnsiYellow+"(not declared)"+AnsiReset)
	} else if ep.Driver == "memory" {
		col1 := fmtKV("Name", AnsiGreen+ep.Name+AnsiReset)
		col2 := fmtKV("Driver", "memory")
		printRow2(w, col1, col2)
	} else {
		col1 := fmtKV("Name", AnsiGreen+ep.Name+AnsiReset)
		col2 := fmtKV("Addr", ep.Addr)
		col3 := fmtKV("Region", ep.Region)
		printRow3(w, col1, col2, col3)
	}

	fmt.Fprintln(w)

	// === SHELL ===
	printSectionHeader(w, "Shell", lineWidth)

	var scanStr string
	if cfg.Shell.AllowSelectScan {
		scanStr = AnsiYellow + "allowed" + AnsiReset
	} else {
		scanStr = AnsiGreen + "blocked" + AnsiReset
	}
	col1 := fmtKV("SELECT scans", scanStr)
	col2 := fmtKV("Format", cfg.Shell.Format)
	col3 := fmtKV("Log", cfg.LogLevel)
	printRow3(w, col1, col2, col3)

	fmt.Fprintln(w)

	// === METRICS ===
	if cfg.Metrics.Enabled {
		printSectionHeader(w, "Metrics", lineWidth)
		printRow2(w, fmtKV("Prometheus", AnsiGreen+"enabled"+AnsiReset),
			fmtKV("Addr", cfg.Metrics.Addr))
		fmt.Fprintln(w)
	}
}

func printSectionHeader(w io.Writer, title string, width int) {
	titleLen := len(title) + 4 // "[ title ]"
	leftPad := 2
	rightPad := width - leftPad - titleLen
	if rightPad < 0 {
		rightPad = 0
	}
	fmt.Fprintf(w, "  %s[ %s%s%s ]%s%s\n",
		AnsiDim+strings.Repeat("-", leftPad),
		AnsiReset+AnsiCyan+AnsiBold, title, AnsiReset+AnsiDim,
		strings.Repeat("-", rightPad),
		AnsiReset)
}

func fmtKV(key, value string) string {
	return fmt.Sprintf("%s%s:%s %s", AnsiDim, key, AnsiReset, value)
}

func printRow3(w io.Writer, col1, col2, col3 string) {
	fmt.Fprintf(w, "  %-32s %-26s %s\n", col1, col2, col3)
}

func printRow2(w io.Writer, col1, col2 string) {
	fmt.Fprintf(w, "  %-40s %s\n", col1, col2)
}
