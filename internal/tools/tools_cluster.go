package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pvemcp/proxmox-mcp/internal/mcp"
	"github.com/pvemcp/proxmox-mcp/internal/validate"
	"github.com/pvemcp/proxmox-mcp/pkg/proxmox"
)

func (e *Executor) registerClusterTools() {
	e.register(mcp.Tool{
		Name:        "proxmox_get_cluster_status",
		Description: "Get cluster membership and quorum status.",
		InputSchema: mcp.InputSchema{
			Type:       "object",
			Properties: map[string]mcp.PropertySchema{},
		},
	}, false, e.handleGetClusterStatus)

	e.register(mcp.Tool{
		Name:        "proxmox_get_cluster_resources",
		Description: "Get a cluster-wide inventory of nodes, guests and storage in one call.",
		InputSchema: mcp.InputSchema{
			Type: "object",
			Properties: map[string]mcp.PropertySchema{
				"type": {Type: "string", Description: "Filter by resource type", Enum: []string{"node", "vm", "storage"}},
			},
		},
	}, false, e.handleGetClusterResources)

	e.register(mcp.Tool{
		Name:        "proxmox_get_task_status",
		Description: "Get the point-in-time status of an asynchronous task by its UPID. This server never waits for tasks; poll explicitly if needed.",
		InputSchema: mcp.InputSchema{
			Type: "object",
			Properties: map[string]mcp.PropertySchema{
				"node": {Type: "string", Description: "Node the task runs on"},
				"upid": {Type: "string", Description: "Task identifier as returned by a mutating tool"},
			},
			Required: []string{"node", "upid"},
		},
	}, false, e.handleGetTaskStatus)
}

func (e *Executor) handleGetClusterStatus(ctx context.Context, args map[string]interface{}) mcp.CallToolResult {
	data, err := e.api.Get(ctx, "/cluster/status")
	if err != nil {
		return errorResult("getting cluster status", err,
			"Proxmox host unreachable",
			"standalone hosts still answer, so a failure usually means connectivity")
	}

	var entries []proxmox.ClusterStatusEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return errorResult("getting cluster status", fmt.Errorf("failed to decode response: %w", err))
	}

	var b strings.Builder
	online := 0
	nodeCount := 0
	for _, entry := range entries {
		if entry.Type == "cluster" {
			quorum := "no quorum"
			if entry.Quorate == 1 {
				quorum = "quorate"
			}
			fmt.Fprintf(&b, "Cluster %s: %d nodes, %s\n", entry.Name, entry.Nodes, quorum)
		}
	}
	for _, entry := range entries {
		if entry.Type != "node" {
			continue
		}
		nodeCount++
		state := "offline"
		if entry.Online == 1 {
			state = "online"
			online++
		}
		local := ""
		if entry.Local == 1 {
			local = " (local)"
		}
		fmt.Fprintf(&b, "  %-16s %s%s  %s\n", entry.Name, state, local, entry.IP)
	}
	if nodeCount == 0 {
		b.WriteString("Standalone host (no cluster configured)\n")
	} else {
		fmt.Fprintf(&b, "%d/%d nodes online\n", online, nodeCount)
	}
	return mcp.NewTextResult(b.String())
}

func (e *Executor) handleGetClusterResources(ctx context.Context, args map[string]interface{}) mcp.CallToolResult {
	var in struct {
		Type string `json:"type"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return validationResult(err)
	}

	path := "/cluster/resources"
	switch in.Type {
	case "":
	case "node", "vm", "storage":
		path += "?type=" + in.Type
	default:
		return mcp.NewErrorResult(fmt.Sprintf("Error: invalid type %q: must be node, vm or storage", in.Type))
	}

	data, err := e.api.Get(ctx, path)
	if err != nil {
		return errorResult("getting cluster resources", err, "Proxmox host unreachable")
	}

	var resources []proxmox.ClusterResource
	if err := json.Unmarshal(data, &resources); err != nil {
		return errorResult("getting cluster resources", fmt.Errorf("failed to decode response: %w", err))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Cluster resources (%d):\n", len(resources))
	for _, r := range resources {
		switch r.Type {
		case "qemu", "lxc":
			fmt.Fprintf(&b, "  %-5s %d %-20s %-9s on %s\n", r.Type, r.VMID, r.Name, r.Status, r.Node)
		case "node":
			fmt.Fprintf(&b, "  node  %-20s %s\n", r.Node, r.Status)
		case "storage":
			fmt.Fprintf(&b, "  store %-20s %-9s on %s (%s used)\n", r.Storage, r.Status, r.Node, formatPercent(r.Disk, r.MaxDisk))
		}
	}
	return mcp.NewTextResult(b.String())
}

func (e *Executor) handleGetTaskStatus(ctx context.Context, args map[string]interface{}) mcp.CallToolResult {
	var in struct {
		Node string `json:"node"`
		UPID string `json:"upid"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return validationResult(err)
	}
	node, err := validate.NodeName(in.Node)
	if err != nil {
		return validationResult(err)
	}
	upid, err := validate.UPID(in.UPID)
	if err != nil {
		return validationResult(err)
	}

	data, err := e.api.Get(ctx, "/nodes/"+node+"/tasks/"+upid+"/status")
	if err != nil {
		return errorResult("getting task status", err,
			"task not found (tasks expire from the node task list)",
			"UPID belongs to a different node")
	}

	var task proxmox.TaskStatus
	if err := json.Unmarshal(data, &task); err != nil {
		return errorResult("getting task status", fmt.Errorf("failed to decode response: %w", err))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Task %s\n", task.UPID)
	fmt.Fprintf(&b, "  Type: %s  User: %s\n", task.Type, task.User)
	fmt.Fprintf(&b, "  Status: %s\n", task.Status)
	if task.ExitStatus != "" {
		fmt.Fprintf(&b, "  Exit: %s\n", task.ExitStatus)
	}
	fmt.Fprintf(&b, "  Started: %s\n", formatUnixTime(task.StartTime))
	return mcp.NewTextResult(b.String())
}
