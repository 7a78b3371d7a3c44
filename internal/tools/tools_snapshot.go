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

func (e *Executor) registerSnapshotTools() {
	e.register(mcp.Tool{
		Name:        "proxmox_list_snapshots",
		Description: "List snapshots of a VM or container.",
		InputSchema: guestArgsSchema(nil),
	}, false, e.handleListSnapshots)

	e.register(mcp.Tool{
		Name:        "proxmox_create_snapshot",
		Description: "Create a snapshot of a VM or container. Requires elevated permissions.",
		InputSchema: guestArgsSchema(map[string]mcp.PropertySchema{
			"snapname":    {Type: "string", Description: "Snapshot name"},
			"description": {Type: "string", Description: "Snapshot description"},
			"vmstate":     {Type: "boolean", Description: "Include RAM state (qemu only)", Default: false},
		}, "snapname"),
	}, true, e.handleCreateSnapshot)

	e.register(mcp.Tool{
		Name:        "proxmox_delete_snapshot",
		Description: "Delete a snapshot. This cannot be undone. Requires elevated permissions.",
		InputSchema: guestArgsSchema(map[string]mcp.PropertySchema{
			"snapname": {Type: "string", Description: "Snapshot name"},
		}, "snapname"),
	}, true, e.handleDeleteSnapshot)

	e.register(mcp.Tool{
		Name:        "proxmox_rollback_snapshot",
		Description: "Roll a VM or container back to a snapshot. The current state is discarded. Requires elevated permissions.",
		InputSchema: guestArgsSchema(map[string]mcp.PropertySchema{
			"snapname": {Type: "string", Description: "Snapshot name to roll back to"},
		}, "snapname"),
	}, true, e.handleRollbackSnapshot)
}

func (e *Executor) handleListSnapshots(ctx context.Context, args map[string]interface{}) mcp.CallToolResult {
	node, vmid, family, res := e.guestTarget(args)
	if res != nil {
		return *res
	}

	data, err := e.api.Get(ctx, "/nodes/"+node+"/"+family+"/"+vmid+"/snapshot")
	if err != nil {
		return errorResult("listing snapshots", err,
			"guest ID does not exist on this node",
			"wrong type: use type='lxc' for containers")
	}

	var all []proxmox.Snapshot
	if err := json.Unmarshal(data, &all); err != nil {
		return errorResult("listing snapshots", fmt.Errorf("failed to decode response: %w", err))
	}

	// PVE injects a "current" pseudo-entry for the live state; it is not a
	// real snapshot and must not be counted or shown.
	snapshots := make([]proxmox.Snapshot, 0, len(all))
	for _, s := range all {
		if s.Name == proxmox.CurrentSnapshotName {
			continue
		}
		snapshots = append(snapshots, s)
	}

	if len(snapshots) == 0 {
		return mcp.NewTextResult(fmt.Sprintf("%s %s has no snapshots.", strings.ToUpper(family), vmid))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Snapshots of %s %s (%d):\n", family, vmid, len(snapshots))
	for _, s := range snapshots {
		fmt.Fprintf(&b, "\n%s\n", s.Name)
		if s.Description != "" {
			fmt.Fprintf(&b, "  Description: %s\n", strings.TrimSpace(s.Description))
		}
		fmt.Fprintf(&b, "  Created: %s\n", formatUnixTime(s.SnapTime))
		if s.Parent != "" {
			fmt.Fprintf(&b, "  Parent: %s\n", s.Parent)
		}
		if s.VMState == 1 {
			b.WriteString("  Includes RAM state\n")
		}
	}
	return mcp.NewTextResult(b.String())
}

func (e *Executor) handleCreateSnapshot(ctx context.Context, args map[string]interface{}) mcp.CallToolResult {
	node, vmid, family, res := e.guestTarget(args)
	if res != nil {
		return *res
	}

	var in struct {
		SnapName    string `json:"snapname"`
		Description string `json:"description"`
		VMState     bool   `json:"vmstate"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return validationResult(err)
	}
	snapname, err := validate.Identifier("snapname", in.SnapName)
	if err != nil {
		return validationResult(err)
	}

	data := url.Values{}
	data.Set("snapname", snapname)
	if in.Description != "" {
		data.Set("description", in.Description)
	}
	if in.VMState && family == familyQemu {
		data.Set("vmstate", "1")
	}

	resp, err := e.api.Post(ctx, "/nodes/"+node+"/"+family+"/"+vmid+"/snapshot", data)
	if err != nil {
		return errorResult("creating snapshot", err,
			"snapshot name already exists",
			"storage backend does not support snapshots (e.g. plain LVM or directory with raw disks)")
	}

	return taskResult(fmt.Sprintf("Create snapshot %q of %s %s", snapname, family, vmid), resp)
}

func (e *Executor) handleDeleteSnapshot(ctx context.Context, args map[string]interface{}) mcp.CallToolResult {
	node, vmid, family, res := e.guestTarget(args)
	if res != nil {
		return *res
	}

	var in struct {
		SnapName string `json:"snapname"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return validationResult(err)
	}
	snapname, err := validate.Identifier("snapname", in.SnapName)
	if err != nil {
		return validationResult(err)
	}

	resp, err := e.api.Delete(ctx, "/nodes/"+node+"/"+family+"/"+vmid+"/snapshot/"+snapname)
	if err != nil {
		return errorResult("deleting snapshot", err,
			"snapshot does not exist",
			"snapshot has child snapshots that depend on it")
	}

	result := taskResult(fmt.Sprintf("Delete snapshot %q of %s %s", snapname, family, vmid), resp)
	result.Content = append(result.Content, mcp.NewTextContent(
		"Warning: snapshot deletion is permanent and cannot be undone."))
	return result
}

func (e *Executor) handleRollbackSnapshot(ctx context.Context, args map[string]interface{}) mcp.CallToolResult {
	node, vmid, family, res := e.guestTarget(args)
	if res != nil {
		return *res
	}

	var in struct {
		SnapName string `json:"snapname"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return validationResult(err)
	}
	snapname, err := validate.Identifier("snapname", in.SnapName)
	if err != nil {
		return validationResult(err)
	}

	resp, err := e.api.Post(ctx, "/nodes/"+node+"/"+family+"/"+vmid+"/snapshot/"+snapname+"/rollback", nil)
	if err != nil {
		return errorResult("rolling back snapshot", err,
			"snapshot does not exist",
			"guest must usually be stopped before rollback")
	}

	result := taskResult(fmt.Sprintf("Roll back %s %s to snapshot %q", family, vmid, snapname), resp)
	result.Content = append(result.Content, mcp.NewTextContent(
		"Warning: the guest state from after the snapshot is discarded by the rollback."))
	return result
}
