// Package mcp exposes a battle machine to LLM tooling over the Model Context
// Protocol. The surface is a thin wrapper: state changes only ever go through
// the machine's Send pipeline, queries read from snapshots.
package mcp

import (
	"context"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/tabletopvod/battletrace/internal/battle/machine"
)

const (
	serverName    = "battletrace"
	serverVersion = "0.1.0"
)

// Service owns the machine behind the MCP surface. The machine itself is not
// safe for concurrent use, so every tool call holds the service lock.
type Service struct {
	mu       sync.Mutex
	machine  *machine.Machine
	battleID string
	tracer   trace.Tracer
}

// NewService wraps a machine for MCP exposure.
func NewService(m *machine.Machine, battleID string) *Service {
	return &Service{
		machine:  m,
		battleID: battleID,
		tracer:   otel.Tracer("battletrace/mcp"),
	}
}

// send runs one event through the machine under the service lock.
func (s *Service) send(ctx context.Context, span string, input machine.Input) (machine.Decision, error) {
	_, traceSpan := s.tracer.Start(ctx, span)
	defer traceSpan.End()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.Send(input)
}

// snapshot copies the aggregate under the service lock.
func (s *Service) snapshot() machine.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.Snapshot()
}

// NewServer builds an MCP server with every battle tool registered.
func NewServer(service *Service) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil)
	registerTools(server, service)
	return server
}

// Run serves the battle tools on stdio until the context is canceled.
func Run(ctx context.Context, service *Service) error {
	return NewServer(service).Run(ctx, &mcp.StdioTransport{})
}
