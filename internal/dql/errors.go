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

import (
	"fmt"
	"strings"
)

// ErrorCode represents a unique error identifier.
type ErrorCode int

const (
	// Syntax errors (1000-1999)
	ErrCodeSyntax          ErrorCode = 1000
	ErrCodeUnexpectedToken ErrorCode = 1001
	ErrCodeUnclosedString  ErrorCode = 1002
	ErrCodeInvalidLiteral  ErrorCode = 1003
	ErrCodeInvalidOperator ErrorCode = 1004

	// Resolution errors (2000-2999)
	ErrCodeValidation           ErrorCode = 2000
	ErrCodeUnknownVariable      ErrorCode = 2001
	ErrCodeDuplicateFieldUpdate ErrorCode = 2002
	ErrCodeTypeMismatch         ErrorCode = 2003

	// Planning errors (3000-3999)
	ErrCodeNoIndexAvailable  ErrorCode = 3000
	ErrCodeIndexKeyMismatch  ErrorCode = 3001
	ErrCodeIndexNotScannable ErrorCode = 3002

	// Engine/store errors (4000-4999)
	ErrCodeEngine        ErrorCode = 4000
	ErrCodeTableNotFound ErrorCode = 4001
	ErrCodeStore         ErrorCode = 4002
)

// Category represents the error category.
type Category string

const (
	CategorySyntax     Category = "SYNTAX"
	CategoryValidation Category = "VALIDATION"
	CategoryPlanning   Category = "PLANNING"
	CategoryEngine     Category = "ENGINE"
)

// Error is a structured DQL error. Position carries the byte offset into
// the statement text for syntax errors, or -1 when unknown.
type Error struct {
	Code     ErrorCode
	Category Category
	Message  string
	Detail   string
	Hint     string
	Position int
	Cause    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("ERROR %d (%s): %s - %s", e.Code, e.Category, e.Message, e.Detail)
	}
	return fmt.Sprintf("ERROR %d (%s): %s", e.Code, e.Category, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// UserMessage returns a user-friendly error message.
func (e *Error) UserMessage() string {
	msg := fmt.Sprintf("ERROR: %s", e.Message)
	if e.Detail != "" {
		msg += fmt.Sprintf(" (%s)", e.Detail)
	}
	if e.Hint != "" {
		msg += fmt.Sprintf("\nHINT: %s", e.Hint)
	}
	return msg
}

// WithDetail adds detail to the error.
func (e *Error) WithDetail(detail string) *Error {
	e.Detail = detail
	return e
}

// WithHint adds a hint to the error.
func (e *Error) WithHint(hint string) *Error {
	e.Hint = hint
	return e
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// NewSyntaxError creates a syntax error anchored at a byte offset.
func NewSyntaxError(pos int, message string) *Error {
	return &Error{
		Code:     ErrCodeSyntax,
		Category: CategorySyntax,
		Message:  message,
		Position: pos,
	}
}

// UnexpectedToken creates an error for unexpected tokens.
func UnexpectedToken(pos int, expected, got string) *Error {
	return &Error{
		Code:     ErrCodeUnexpectedToken,
		Category: CategorySyntax,
		Message:  fmt.Sprintf("unexpected token: expected %s, got %s", expected, got),
		Position: pos,
	}
}

// UnclosedString creates an error for an unterminated string literal.
func UnclosedString(pos int) *Error {
	return &Error{
		Code:     ErrCodeUnclosedString,
		Category: CategorySyntax,
		Message:  "unterminated string literal",
		Position: pos,
	}
}

// InvalidLiteral creates an error for a literal that cannot be resolved
// to a typed value.
func InvalidLiteral(pos int, literal, reason string) *Error {
	return &Error{
		Code:     ErrCodeInvalidLiteral,
		Category: CategorySyntax,
		Message:  fmt.Sprintf("invalid literal %q", literal),
		Detail:   reason,
		Position: pos,
	}
}

// NewValidationError creates a resolution-time validation error.
func NewValidationError(message string) *Error {
	return &Error{
		Code:     ErrCodeValidation,
		Category: CategoryValidation,
		Message:  message,
		Position: -1,
	}
}

// UnknownVariable creates an error for an identifier that resolves to
// no session variable. Statement execution aborts before any store call.
func UnknownVariable(pos int, name string) *Error {
	return &Error{
		Code:     ErrCodeUnknownVariable,
		Category: CategoryValidation,
		Message:  fmt.Sprintf("unknown variable: %s", name),
		Hint:     "Quote the value if a string literal was intended",
		Position: pos,
	}
}

// DuplicateFieldUpdate creates an error for a field assigned by more
// than one clause of the same UPDATE statement.
func DuplicateFieldUpdate(field string) *Error {
	return &Error{
		Code:     ErrCodeDuplicateFieldUpdate,
		Category: CategoryValidation,
		Message:  fmt.Sprintf("duplicate update for field '%s'", field),
		Position: -1,
	}
}

// TypeMismatch creates an error for an operation applied to a value of
// the wrong type.
func TypeMismatch(op string, value interface{}) *Error {
	return &Error{
		Code:     ErrCodeTypeMismatch,
		Category: CategoryValidation,
		Message:  fmt.Sprintf("%s does not apply to %T", op, value),
		Position: -1,
	}
}

// NoIndexAvailable creates an error for a query whose constraints match
// no index and which is not allowed to fall back to a scan.
func NoIndexAvailable(table string) *Error {
	return &Error{
		Code:     ErrCodeNoIndexAvailable,
		Category: CategoryPlanning,
		Message:  fmt.Sprintf("no index available to query table '%s'", table),
		Hint:     "Add a key condition, name an index with USING, or enable select scans",
		Position: -1,
	}
}

// IndexKeyMismatch creates an error for a USING clause naming an index
// whose keys the query constraints cannot serve.
func IndexKeyMismatch(index string) *Error {
	return &Error{
		Code:     ErrCodeIndexKeyMismatch,
		Category: CategoryPlanning,
		Message:  fmt.Sprintf("query constraints do not match the keys of index '%s'", index),
		Position: -1,
	}
}

// IndexNotScannable creates an error for scanning a local index.
func IndexNotScannable(index string) *Error {
	return &Error{
		Code:     ErrCodeIndexNotScannable,
		Category: CategoryPlanning,
		Message:  fmt.Sprintf("index '%s' cannot be scanned", index),
		Detail:   "only global indexes support scans",
		Position: -1,
	}
}

// NewEngineError creates a general engine error.
func NewEngineError(message string) *Error {
	return &Error{
		Code:     ErrCodeEngine,
		Category: CategoryEngine,
		Message:  message,
		Position: -1,
	}
}

// TableNotFound creates an error for a statement against a missing table.
func TableNotFound(table string) *Error {
	return &Error{
		Code:     ErrCodeTableNotFound,
		Category: CategoryEngine,
		Message:  fmt.Sprintf("table not found: %s", table),
		Position: -1,
	}
}

// WrapStoreError wraps an error surfaced by the table store.
func WrapStoreError(err error) *Error {
	return &Error{
		Code:     ErrCodeStore,
		Category: CategoryEngine,
		Message:  "store operation failed",
		Detail:   err.Error(),
		Position: -1,
		Cause:    err,
	}
}

// PartialWriteError wraps a store failure that interrupted a bulk
// write after some rows were already applied. Applied writes are not
// rolled back; the count tells the user how far the statement got.
func PartialWriteError(applied int, err error) *Error {
	e := WrapStoreError(err)
	e.Detail = fmt.Sprintf("%s; %d of the statement's rows were written before the failure",
		err.Error(), applied)
	return e
}

// IsSyntaxError checks if an error is a syntax error.
func IsSyntaxError(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Category == CategorySyntax
	}
	return false
}

// GetCode returns the error code if err is a DQL error, or 0 otherwise.
func GetCode(err error) ErrorCode {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return 0
}

// FormatError formats an error for user display. For syntax errors with
// a known position the offending statement line is echoed with a caret
// under the error offset.
func FormatError(err error, statement string) string {
	e, ok := err.(*Error)
	if !ok {
		return fmt.Sprintf("ERROR: %v", err)
	}
	msg := e.UserMessage()
	if !IsSyntaxError(err) || e.Position < 0 || e.Position > len(statement) {
		return msg
	}
	lineStart := strings.LastIndexByte(statement[:e.Position], '\n') + 1
	lineEnd := strings.IndexByte(statement[e.Position:], '\n')
	if lineEnd < 0 {
		lineEnd = len(statement)
	} else {
		lineEnd += e.Position
	}
	caret := strings.Repeat(" ", e.Position-lineStart) + "^"
	return msg + "\n" + statement[lineStart:lineEnd] + "\n" + caret
}
