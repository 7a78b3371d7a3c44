package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/pvemcp/proxmox-mcp/internal/mcp"
	"github.com/pvemcp/proxmox-mcp/internal/validate"
	"github.com/pvemcp/proxmox-mcp/pkg/proxmox"
)

func (e *Executor) registerNodeTools() {
	e.register(mcp.Tool{
		Name:        "proxmox_get_nodes",
		Description: "List all nodes in the Proxmox cluster with status, CPU and memory usage.",
		InputSchema: mcp.InputSchema{
			Type:       "object",
			Properties: map[string]mcp.PropertySchema{},
		},
	}, false, e.handleGetNodes)

	e.register(mcp.Tool{
		Name:        "proxmox_get_node_status",
		Description: "Get detailed status of a node: uptime, CPU model, memory, root filesystem and versions. Requires elevated permissions.",
		InputSchema: mcp.InputSchema{
			Type: "object",
			Properties: map[string]mcp.PropertySchema{
				"node": {Type: "string", Description: "Node name, e.g. 'pve1'"},
			},
			Required: []string{"node"},
		},
	}, true, e.handleGetNodeStatus)

	e.register(mcp.Tool{
		Name:        "proxmox_execute_vm_command",
		Description: "Run a shell command inside a VM via the QEMU guest agent. The guest agent must be installed and running. Requires elevated permissions.",
		InputSchema: mcp.InputSchema{
			Type: "object",
			Properties: map[string]mcp.PropertySchema{
				"node":    {Type: "string", Description: "Node the VM runs on"},
				"vmid":    {Type: "string", Description: "VM ID, e.g. '100'"},
				"command": {Type: "string", Description: "Command to run (shell metacharacters are rejected)"},
			},
			Required: []string{"node", "vmid", "command"},
		},
	}, true, e.handleExecuteVMCommand)
}

// listNodes fetches /nodes and decodes the result. Shared by the node tool
// and every fan-out listing.
func (e *Executor) listNodes(ctx context.Context) ([]proxmox.Node, error) {
	data, err := e.api.Get(ctx, "/nodes")
	if err != nil {
		return nil, err
	}
	var nodes []proxmox.Node
	if err := json.Unmarshal(data, &nodes); err != nil {
		return nil, fmt.Errorf("failed to decode node list: %w", err)
	}
	return nodes, nil
}

func (e *Executor) handleGetNodes(ctx context.Context, args map[string]interface{}) mcp.CallToolResult {
	nodes, err := e.listNodes(ctx)
	if err != nil {
		return errorResult("listing nodes", err,
			"Proxmox host unreachable or wrong PROXMOX_HOST/PROXMOX_PORT",
			"API token invalid or expired")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Proxmox Nodes (%d):\n", len(nodes))
	for _, n := range nodes {
		fmt.Fprintf(&b, "\n%s\n", n.Node)
		fmt.Fprintf(&b, "  Status: %s\n", n.Status)
		fmt.Fprintf(&b, "  Uptime: %s\n", formatUptime(n.Uptime))
		fmt.Fprintf(&b, "  CPU: %.1f%% of %d cores\n", n.CPU*100, n.MaxCPU)
		fmt.Fprintf(&b, "  Memory: %s / %s (%s)\n", formatBytes(n.Mem), formatBytes(n.MaxMem), formatPercent(n.Mem, n.MaxMem))
	}
	return mcp.NewTextResult(b.String())
}

func (e *Executor) handleGetNodeStatus(ctx context.Context, args map[string]interface{}) mcp.CallToolResult {
	var in struct {
		Node string `json:"node"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return validationResult(err)
	}
	node, err := validate.NodeName(in.Node)
	if err != nil {
		return validationResult(err)
	}

	data, err := e.api.Get(ctx, "/nodes/"+node+"/status")
	if err != nil {
		return errorResult("getting node status", err,
			"node name does not exist in this cluster",
			"node is offline",
			"API token lacks Sys.Audit on the node")
	}

	var status proxmox.NodeStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return errorResult("getting node status", fmt.Errorf("failed to decode response: %w", err))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Node %s\n", node)
	fmt.Fprintf(&b, "  Uptime: %s\n", formatUptime(status.Uptime))
	fmt.Fprintf(&b, "  CPU: %d cores (%s)\n", status.CPUInfo.CPUs, status.CPUInfo.Model)
	fmt.Fprintf(&b, "  Memory: %s / %s (%s)\n",
		formatBytes(status.Memory.Used), formatBytes(status.Memory.Total),
		formatPercent(status.Memory.Used, status.Memory.Total))
	fmt.Fprintf(&b, "  Root FS: %s / %s (%s)\n",
		formatBytes(status.RootFS.Used), formatBytes(status.RootFS.Total),
		formatPercent(status.RootFS.Used, status.RootFS.Total))
	if status.PVEVersion != "" {
		fmt.Fprintf(&b, "  PVE: %s\n", status.PVEVersion)
	}
	if status.KVersion != "" {
		fmt.Fprintf(&b, "  Kernel: %s\n", status.KVersion)
	}
	return mcp.NewTextResult(b.String())
}

func (e *Executor) handleExecuteVMCommand(ctx context.Context, args map[string]interface{}) mcp.CallToolResult {
	var in struct {
		Node    string `json:"node"`
		VMID    string `json:"vmid"`
		Command string `json:"command"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return validationResult(err)
	}
	node, err := validate.NodeName(in.Node)
	if err != nil {
		return validationResult(err)
	}
	vmid, err := validate.VMID(in.VMID)
	if err != nil {
		return validationResult(err)
	}
	command, err := validate.ShellCommand(in.Command)
	if err != nil {
		return validationResult(err)
	}

	data := url.Values{}
	data.Set("command", command)

	resp, err := e.api.Post(ctx, "/nodes/"+node+"/qemu/"+vmid+"/agent/exec", data)
	if err != nil {
		return errorResult("executing command", err,
			"QEMU guest agent not installed or not running in the VM",
			"VM is stopped",
			"API token lacks VM.Monitor on the VM")
	}

	var exec struct {
		PID int `json:"pid"`
	}
	if err := json.Unmarshal(resp, &exec); err != nil {
		return errorResult("executing command", fmt.Errorf("failed to decode response: %w", err))
	}

	return mcp.NewTextResult(fmt.Sprintf(
		"Command submitted to VM %s via guest agent (PID %d). The command runs asynchronously inside the guest.", vmid, exec.PID))
}
