// Package tools implements the MCP tool surface of the server: the tool
// registry, the permission gate and one handler per Proxmox operation.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/pvemcp/proxmox-mcp/internal/mcp"
	"github.com/pvemcp/proxmox-mcp/internal/metrics"
	"github.com/rs/zerolog/log"
)

// ProxmoxAPI is the transport the handlers build requests against. It is
// satisfied by *proxmox.Client; tests substitute a recording mock.
type ProxmoxAPI interface {
	Get(ctx context.Context, path string) (json.RawMessage, error)
	Post(ctx context.Context, path string, data url.Values) (json.RawMessage, error)
	Put(ctx context.Context, path string, data url.Values) (json.RawMessage, error)
	Delete(ctx context.Context, path string) (json.RawMessage, error)
}

// handlerFunc executes a single tool. Handlers never return protocol-level
// errors: every failure is rendered as an IsError text result.
type handlerFunc func(ctx context.Context, args map[string]interface{}) mcp.CallToolResult

type registeredTool struct {
	def      mcp.Tool
	elevated bool
	handler  handlerFunc
}

// ExecutorConfig holds the dependencies for the tool executor.
type ExecutorConfig struct {
	API ProxmoxAPI
	// AllowElevated unlocks mutating and privileged-read tools. Set once
	// from configuration; never toggled at runtime.
	AllowElevated bool
}

// Executor dispatches MCP tool calls to Proxmox operation handlers.
type Executor struct {
	api           ProxmoxAPI
	allowElevated bool
	tools         map[string]registeredTool
	order         []string
}

// NewExecutor creates the executor and registers all tools.
func NewExecutor(cfg ExecutorConfig) *Executor {
	e := &Executor{
		api:           cfg.API,
		allowElevated: cfg.AllowElevated,
		tools:         make(map[string]registeredTool),
	}

	e.registerNodeTools()
	e.registerGuestTools()
	e.registerCreateTools()
	e.registerStorageTools()
	e.registerClusterTools()
	e.registerSnapshotTools()
	e.registerBackupTools()
	e.registerNetworkTools()
	e.registerDiskTools()

	return e
}

func (e *Executor) register(def mcp.Tool, elevated bool, handler handlerFunc) {
	if _, exists := e.tools[def.Name]; exists {
		panic(fmt.Sprintf("duplicate tool registration: %s", def.Name))
	}
	e.tools[def.Name] = registeredTool{def: def, elevated: elevated, handler: handler}
	e.order = append(e.order, def.Name)
}

// ListTools returns the static tool definitions in registration order.
func (e *Executor) ListTools() []mcp.Tool {
	defs := make([]mcp.Tool, 0, len(e.order))
	for _, name := range e.order {
		defs = append(defs, e.tools[name].def)
	}
	return defs
}

// ExecuteTool dispatches a tool call by name. Unknown tools and handler
// failures are reported in-band as error text; the returned error is always
// nil so the protocol layer never sees a fault.
func (e *Executor) ExecuteTool(ctx context.Context, name string, args map[string]interface{}) (mcp.CallToolResult, error) {
	tool, ok := e.tools[name]
	if !ok {
		metrics.ToolCallsTotal.WithLabelValues(name, "unknown").Inc()
		return mcp.NewErrorResult(fmt.Sprintf("Error: unknown tool: %s", name)), nil
	}

	if tool.elevated && !e.allowElevated {
		metrics.ToolCallsTotal.WithLabelValues(name, "denied").Inc()
		metrics.PermissionDeniedTotal.Inc()
		log.Info().Str("tool", name).Msg("Tool call refused by permission gate")
		return permissionDeniedResult(name), nil
	}

	start := time.Now()
	result := tool.handler(ctx, args)
	elapsed := time.Since(start)

	outcome := "success"
	if result.IsError {
		outcome = "error"
	}
	metrics.ToolCallsTotal.WithLabelValues(name, outcome).Inc()
	metrics.ToolCallDuration.WithLabelValues(name).Observe(elapsed.Seconds())

	log.Debug().
		Str("tool", name).
		Str("outcome", outcome).
		Dur("elapsed", elapsed).
		Msg("Tool executed")

	return result, nil
}
