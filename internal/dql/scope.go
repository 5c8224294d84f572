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

import "sort"

// Scope maps variable names to values. Bare identifiers in value
// position resolve through the scope; an identifier that resolves to
// nothing is a fatal validation error.
//
// Scopes chain: a child scope shadows its parent. The engine gives each
// UPDATE row a child of the session scope holding the row's attributes,
// so a row attribute wins over a session variable of the same name.
type Scope struct {
	parent *Scope
	vars   map[string]interface{}
}

// NewScope creates an empty root scope.
func NewScope() *Scope {
	return &Scope{vars: map[string]interface{}{}}
}

// Child creates a scope that shadows s.
func (s *Scope) Child() *Scope {
	return &Scope{parent: s, vars: map[string]interface{}{}}
}

// Set binds a variable in this scope.
func (s *Scope) Set(name string, value interface{}) {
	s.vars[name] = value
}

// Unset removes a binding from this scope only.
func (s *Scope) Unset(name string) {
	delete(s.vars, name)
}

// Get resolves a variable, walking parent scopes.
func (s *Scope) Get(name string) (interface{}, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if v, ok := cur.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Names lists the variables visible from this scope, sorted. Shadowed
// parent bindings are listed once.
func (s *Scope) Names() []string {
	seen := map[string]bool{}
	for cur := s; cur != nil; cur = cur.parent {
		for name := range cur.vars {
			seen[name] = true
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
