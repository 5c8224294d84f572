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
Package discovery provides mDNS/DNS-SD discovery of DQL store endpoints.

OVERVIEW:
=========
Development and staging table stores often run on ephemeral hosts. Instead
of hand-editing endpoint addresses into every developer's configuration,
a store can advertise itself over mDNS (multicast DNS) and the shell can
browse the local network for it.

SERVICE TYPE:
=============
Store endpoints advertise as: _dql._tcp.local.

Each endpoint publishes:
- Instance name: <endpoint-name>._dql._tcp.local.
- Port: the store's listen port (default 8000)
- TXT records: name, region, version

USAGE:
======

	svc := discovery.NewService(cfg)
	svc.Start()
	defer svc.Stop()

	// Find store endpoints on the network
	endpoints, err := svc.Browse(ctx, 5*time.Second)
*/
package discovery

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/mdns"

	"dql/internal/logging"
)

const (
	// ServiceType is the mDNS service type for DQL store endpoints.
	ServiceType = "_dql._tcp"

	// DefaultBrowseTimeout is the default timeout for endpoint browsing.
	DefaultBrowseTimeout = 5 * time.Second
)

// Endpoint represents a store endpoint found via service discovery.
type Endpoint struct {
	Name         string
	Addr         string // host:port for store traffic
	Region       string
	Version      string
	DiscoveredAt time.Time
}

// Config holds configuration for service discovery.
type Config struct {
	// Name is the instance name to advertise.
	Name string
	// Region is advertised in the TXT records.
	Region string
	// Port is the store port to advertise.
	Port int
	// Version is advertised in the TXT records.
	Version string
	// Enabled gates both advertisement and browsing.
	Enabled bool
}

// Service handles mDNS advertisement and browsing.
type Service struct {
	config    Config
	server    *mdns.Server
	logger    *logging.Logger
	mu        sync.RWMutex
	endpoints map[string]*Endpoint
	running   bool
}

// NewService creates a new discovery service.
func NewService(config Config) *Service {
	return &Service{
		config:    config,
		logger:    logging.NewLogger("discovery"),
		endpoints: make(map[string]*Endpoint),
	}
}

// Start begins advertising this endpoint over mDNS.
func (s *Service) Start() error {
	if !s.config.Enabled {
		s.logger.Debug("Service discovery disabled")
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	ips := localIPs()

	// TXT records carry the metadata the shell needs to build an
	// endpoint entry without a second round trip.
	txtRecords := []string{
		fmt.Sprintf("name=%s", s.config.Name),
		fmt.Sprintf("region=%s", s.config.Region),
		fmt.Sprintf("version=%s", s.config.Version),
	}

	service, err := mdns.NewMDNSService(
		s.config.Name, // Instance name
		ServiceType,   // Service type
		"",            // Domain (empty = .local)
		"",            // Host name (empty = auto)
		s.config.Port, // Port
		ips,           // IPs to advertise
		txtRecords,    // TXT records
	)
	if err != nil {
		return fmt.Errorf("failed to create mDNS service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return fmt.Errorf("failed to create mDNS server: %w", err)
	}
	s.server = server
	s.running = true

	s.logger.Info("Service discovery started",
		"name", s.config.Name,
		"port", s.config.Port,
		"service_type", ServiceType)

	return nil
}

// Stop stops advertising.
func (s *Service) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	if s.server != nil {
		s.server.Shutdown()
		s.server = nil
	}

	s.running = false
	s.logger.Info("Service discovery stopped")
	return nil
}

// IsRunning returns whether the service is advertising.
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Browse finds DQL store endpoints on the local network. The context
// bounds the overall wait; timeout bounds the mDNS query itself.
func (s *Service) Browse(ctx context.Context, timeout time.Duration) ([]*Endpoint, error) {
	if timeout == 0 {
		timeout = DefaultBrowseTimeout
	}

	entriesCh := make(chan *mdns.ServiceEntry, 10)
	var endpoints []*Endpoint
	var mu sync.Mutex
	done := make(chan struct{})

	go func() {
		defer close(done)
		for entry := range entriesCh {
			ep := parseServiceEntry(entry)
			if ep == nil || ep.Name == s.config.Name {
				continue
			}
			mu.Lock()
			endpoints = append(endpoints, ep)
			mu.Unlock()
			s.mu.Lock()
			s.endpoints[ep.Name] = ep
			s.mu.Unlock()
		}
	}()

	params := &mdns.QueryParam{
		Service:             ServiceType,
		Domain:              "local",
		Timeout:             timeout,
		Entries:             entriesCh,
		WantUnicastResponse: true,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- mdns.Query(params)
		close(entriesCh)
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case err := <-errCh:
		if err != nil {
			return nil, fmt.Errorf("mDNS query failed: %w", err)
		}
	}

	<-done
	return endpoints, nil
}

// Cached returns previously discovered endpoints.
func (s *Service) Cached() []*Endpoint {
	s.mu.RLock()
	defer s.mu.RUnlock()

	endpoints := make([]*Endpoint, 0, len(s.endpoints))
	for _, ep := range s.endpoints {
		endpoints = append(endpoints, ep)
	}
	return endpoints
}

// parseServiceEntry parses an mDNS service entry into an Endpoint.
func parseServiceEntry(entry *mdns.ServiceEntry) *Endpoint {
	if entry == nil {
		return nil
	}

	ep := &Endpoint{
		DiscoveredAt: time.Now(),
	}

	var ip string
	if entry.AddrV4 != nil {
		ip = entry.AddrV4.String()
	} else if entry.AddrV6 != nil {
		ip = entry.AddrV6.String()
	}
	if ip == "" {
		return nil
	}

	ep.Addr = fmt.Sprintf("%s:%d", ip, entry.Port)

	for _, txt := range entry.InfoFields {
		parts := strings.SplitN(txt, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key, value := parts[0], parts[1]
		switch key {
		case "name":
			ep.Name = value
		case "region":
			ep.Region = value
		case "version":
			ep.Version = value
		}
	}

	// Use instance name as fallback for the endpoint name
	if ep.Name == "" {
		ep.Name = entry.Name
	}

	return ep
}

// localIPs returns all non-loopback IPv4 addresses.
func localIPs() []net.IP {
	var ips []net.IP

	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return ips
	}

	for _, addr := range addrs {
		if ipnet, ok := addr.(*net.IPNet); ok {
			if ipnet.IP.IsLoopback() {
				continue
			}
			if ipnet.IP.To4() != nil {
				ips = append(ips, ipnet.IP)
			}
		}
	}

	return ips
}
