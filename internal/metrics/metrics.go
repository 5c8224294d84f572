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
Package metrics provides Prometheus-compatible metrics for DQL.

METRIC CATEGORIES:
==================
- Statements: executed (total, by kind: SELECT, SCAN, COUNT, INSERT,
  UPDATE, DELETE, DDL)
- Statement Latency: average statement execution time
- Sessions: active, total
- Capacity: consumed read/write capacity units, as reported by the
  table store

PROMETHEUS ENDPOINT:
====================
Metrics are exposed at /metrics in Prometheus text format.

EXAMPLE METRICS:
================

	dql_statements_total{kind="SELECT"} 12345
	dql_statements_total{kind="UPDATE"} 1234
	dql_statement_latency_avg_microseconds 431.50
	dql_sessions_active 2
	dql_read_capacity_total 120.5

The package also ships the CapacityCollector the engine attaches to a
store for ANALYZE: it aggregates consumed capacity per (table, index,
operation) for the duration of one statement.
*/
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"dql/internal/config"
	"dql/internal/logging"
)

// Metrics holds all DQL metrics.
type Metrics struct {
	// Statement metrics
	StatementsTotal  atomic.Uint64 // Total statements executed
	StatementsSelect atomic.Uint64 // SELECT statements
	StatementsScan   atomic.Uint64 // SCAN statements
	StatementsCount  atomic.Uint64 // COUNT statements
	StatementsInsert atomic.Uint64 // INSERT statements
	StatementsUpdate atomic.Uint64 // UPDATE statements
	StatementsDelete atomic.Uint64 // DELETE statements
	StatementsDDL    atomic.Uint64 // CREATE, DROP, ALTER, DUMP
	StatementsFailed atomic.Uint64 // Failed statements

	// Statement latency metrics (in microseconds)
	StatementLatencySum   atomic.Uint64
	StatementLatencyCount atomic.Uint64

	// Session metrics
	ActiveSessions atomic.Int64
	TotalSessions  atomic.Uint64

	// Consumed capacity, in tenths of a unit. The store reports halves
	// and wholes, so tenths lose nothing.
	ReadCapacityTenths  atomic.Uint64
	WriteCapacityTenths atomic.Uint64
}

// Global metrics instance
var globalMetrics = &Metrics{}

// Get returns the global metrics instance.
func Get() *Metrics {
	return globalMetrics
}

// RecordStatement records a statement execution. Kinds outside the six
// data statements count as DDL.
func (m *Metrics) RecordStatement(kind string, latency time.Duration) {
	m.StatementsTotal.Add(1)
	m.StatementLatencySum.Add(uint64(latency.Microseconds()))
	m.StatementLatencyCount.Add(1)

	switch kind {
	case "SELECT":
		m.StatementsSelect.Add(1)
	case "SCAN":
		m.StatementsScan.Add(1)
	case "COUNT":
		m.StatementsCount.Add(1)
	case "INSERT":
		m.StatementsInsert.Add(1)
	case "UPDATE":
		m.StatementsUpdate.Add(1)
	case "DELETE":
		m.StatementsDelete.Add(1)
	default:
		m.StatementsDDL.Add(1)
	}
}

// RecordStatementError records a failed statement.
func (m *Metrics) RecordStatementError() {
	m.StatementsFailed.Add(1)
}

// SessionOpened records a new session.
func (m *Metrics) SessionOpened() {
	m.ActiveSessions.Add(1)
	m.TotalSessions.Add(1)
}

// SessionClosed records a closed session.
func (m *Metrics) SessionClosed() {
	m.ActiveSessions.Add(-1)
}

// AddCapacity accumulates consumed capacity into the global totals.
func (m *Metrics) AddCapacity(read, write float64) {
	m.ReadCapacityTenths.Add(uint64(read*10 + 0.5))
	m.WriteCapacityTenths.Add(uint64(write*10 + 0.5))
}

// AverageStatementLatency returns the average statement latency in
// microseconds.
func (m *Metrics) AverageStatementLatency() float64 {
	count := m.StatementLatencyCount.Load()
	if count == 0 {
		return 0
	}
	return float64(m.StatementLatencySum.Load()) / float64(count)
}

// ============================================================================
// Capacity Collection
// ============================================================================

// CapacityUsage is the consumed capacity of one (table, index,
// operation) combination.
type CapacityUsage struct {
	Table string
	Index string
	Op    string
	Read  float64
	Write float64
}

// CapacityCollector aggregates consumed capacity per store call. The
// engine attaches one to the store for the duration of an ANALYZE
// statement. Safe for concurrent use.
type CapacityCollector struct {
	mu     sync.Mutex
	usages map[string]*CapacityUsage
	order  []string
}

// NewCapacityCollector creates an empty collector.
func NewCapacityCollector() *CapacityCollector {
	return &CapacityCollector{usages: make(map[string]*CapacityUsage)}
}

// RecordCapacity implements the store's capacity recorder contract.
func (c *CapacityCollector) RecordCapacity(table, index, op string, read, write float64) {
	globalMetrics.AddCapacity(read, write)

	c.mu.Lock()
	defer c.mu.Unlock()
	key := table + "\x00" + index + "\x00" + op
	u, ok := c.usages[key]
	if !ok {
		u = &CapacityUsage{Table: table, Index: index, Op: op}
		c.usages[key] = u
		c.order = append(c.order, key)
	}
	u.Read += read
	u.Write += write
}

// Snapshot returns the aggregated usages in first-recorded order.
func (c *CapacityCollector) Snapshot() []CapacityUsage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]CapacityUsage, 0, len(c.order))
	for _, key := range c.order {
		out = append(out, *c.usages[key])
	}
	return out
}

// Total returns the summed read and write capacity.
func (c *CapacityCollector) Total() (read, write float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, u := range c.usages {
		read += u.Read
		write += u.Write
	}
	return read, write
}

// ============================================================================
// Prometheus Endpoint
// ============================================================================

// Server provides an HTTP server for Prometheus metrics.
type Server struct {
	config *config.MetricsConfig
	server *http.Server
	logger *logging.Logger
}

// NewServer creates a new metrics server.
func NewServer(cfg *config.MetricsConfig) *Server {
	return &Server{
		config: cfg,
		logger: logging.NewLogger("metrics"),
	}
}

// Start starts the metrics HTTP server.
func (s *Server) Start() error {
	if !s.config.Enabled {
		s.logger.Info("Metrics server disabled")
		return nil
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", s.handleMetrics)

	s.server = &http.Server{
		Addr:    s.config.Addr,
		Handler: mux,
	}

	go func() {
		s.logger.Info("Starting metrics server", "addr", s.config.Addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Metrics server error", "error", err)
		}
	}()

	return nil
}

// Stop stops the metrics HTTP server.
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.logger.Info("Stopping metrics server")
	return s.server.Shutdown(ctx)
}

// handleMetrics handles the /metrics endpoint in Prometheus format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	m := Get()
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	fmt.Fprintf(w, "# HELP dql_statements_total Total statements executed\n")
	fmt.Fprintf(w, "# TYPE dql_statements_total counter\n")
	fmt.Fprintf(w, "dql_statements_total %d\n", m.StatementsTotal.Load())

	fmt.Fprintf(w, "# HELP dql_statements_by_kind_total Statements by kind\n")
	fmt.Fprintf(w, "# TYPE dql_statements_by_kind_total counter\n")
	fmt.Fprintf(w, "dql_statements_by_kind_total{kind=\"SELECT\"} %d\n", m.StatementsSelect.Load())
	fmt.Fprintf(w, "dql_statements_by_kind_total{kind=\"SCAN\"} %d\n", m.StatementsScan.Load())
	fmt.Fprintf(w, "dql_statements_by_kind_total{kind=\"COUNT\"} %d\n", m.StatementsCount.Load())
	fmt.Fprintf(w, "dql_statements_by_kind_total{kind=\"INSERT\"} %d\n", m.StatementsInsert.Load())
	fmt.Fprintf(w, "dql_statements_by_kind_total{kind=\"UPDATE\"} %d\n", m.StatementsUpdate.Load())
	fmt.Fprintf(w, "dql_statements_by_kind_total{kind=\"DELETE\"} %d\n", m.StatementsDelete.Load())
	fmt.Fprintf(w, "dql_statements_by_kind_total{kind=\"DDL\"} %d\n", m.StatementsDDL.Load())

	fmt.Fprintf(w, "# HELP dql_statements_failed_total Failed statements\n")
	fmt.Fprintf(w, "# TYPE dql_statements_failed_total counter\n")
	fmt.Fprintf(w, "dql_statements_failed_total %d\n", m.StatementsFailed.Load())

	fmt.Fprintf(w, "# HELP dql_statement_latency_avg_microseconds Average statement latency\n")
	fmt.Fprintf(w, "# TYPE dql_statement_latency_avg_microseconds gauge\n")
	fmt.Fprintf(w, "dql_statement_latency_avg_microseconds %.2f\n", m.AverageStatementLatency())

	fmt.Fprintf(w, "# HELP dql_sessions_active Current active sessions\n")
	fmt.Fprintf(w, "# TYPE dql_sessions_active gauge\n")
	fmt.Fprintf(w, "dql_sessions_active %d\n", m.ActiveSessions.Load())

	fmt.Fprintf(w, "# HELP dql_sessions_total Total sessions\n")
	fmt.Fprintf(w, "# TYPE dql_sessions_total counter\n")
	fmt.Fprintf(w, "dql_sessions_total %d\n", m.TotalSessions.Load())

	fmt.Fprintf(w, "# HELP dql_read_capacity_total Consumed read capacity units\n")
	fmt.Fprintf(w, "# TYPE dql_read_capacity_total counter\n")
	fmt.Fprintf(w, "dql_read_capacity_total %.1f\n", float64(m.ReadCapacityTenths.Load())/10)

	fmt.Fprintf(w, "# HELP dql_write_capacity_total Consumed write capacity units\n")
	fmt.Fprintf(w, "# TYPE dql_write_capacity_total counter\n")
	fmt.Fprintf(w, "dql_write_capacity_total %.1f\n", float64(m.WriteCapacityTenths.Load())/10)
}
