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

package dql

import "strings"

// SplitStatements splits input into statements on semicolons that sit
// outside string literals and comments. The shell feeds each piece to
// the engine separately; a trailing piece without a semicolon is
// returned too, so callers can treat it as an unfinished fragment.
func SplitStatements(input string) []string {
	var stmts []string
	start := 0
	for _, end := range terminatorOffsets(input) {
		stmt := strings.TrimSpace(input[start : end+1])
		if stmt != ";" && stmt != "" {
			stmts = append(stmts, stmt)
		}
		start = end + 1
	}
	if rest := strings.TrimSpace(input[start:]); rest != "" {
		stmts = append(stmts, rest)
	}
	return stmts
}

// IsComplete reports whether the input ends with a statement
// terminator, ignoring trailing whitespace and comments. The shell
// keeps reading lines until this holds.
func IsComplete(input string) bool {
	offsets := terminatorOffsets(input)
	if len(offsets) == 0 {
		return false
	}
	rest := input[offsets[len(offsets)-1]+1:]
	for len(rest) > 0 {
		rest = strings.TrimSpace(rest)
		if strings.HasPrefix(rest, "--") {
			if i := strings.IndexByte(rest, '\n'); i >= 0 {
				rest = rest[i+1:]
				continue
			}
			return true
		}
		return rest == ""
	}
	return true
}

// terminatorOffsets finds the semicolons outside quotes and comments.
func terminatorOffsets(input string) []int {
	var offsets []int
	var quote byte
	for i := 0; i < len(input); i++ {
		c := input[i]
		if quote != 0 {
			switch c {
			case '\\':
				i++
			case quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
		case '-':
			if i+1 < len(input) && input[i+1] == '-' {
				j := strings.IndexByte(input[i:], '\n')
				if j < 0 {
					return offsets
				}
				i += j
			}
		case ';':
			offsets = append(offsets, i)
		}
	}
	return offsets
}
