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

func (e *Executor) registerStorageTools() {
	e.register(mcp.Tool{
		Name:        "proxmox_get_storage",
		Description: "List storage pools with usage. Without a node filter, all nodes are queried in cluster order.",
		InputSchema: mcp.InputSchema{
			Type: "object",
			Properties: map[string]mcp.PropertySchema{
				"node": {Type: "string", Description: "Only list storage visible on this node"},
			},
		},
	}, false, e.handleGetStorage)

	e.register(mcp.Tool{
		Name:        "proxmox_get_storage_content",
		Description: "List the contents of a storage pool on a node (disk images, backups, ISO images, templates).",
		InputSchema: mcp.InputSchema{
			Type: "object",
			Properties: map[string]mcp.PropertySchema{
				"node":    {Type: "string", Description: "Node name"},
				"storage": {Type: "string", Description: "Storage pool name, e.g. 'local'"},
				"content": {Type: "string", Description: "Filter by content type", Enum: []string{"images", "rootdir", "backup", "iso", "vztmpl", "snippets"}},
			},
			Required: []string{"node", "storage"},
		},
	}, false, e.handleGetStorageContent)
}

func (e *Executor) handleGetStorage(ctx context.Context, args map[string]interface{}) mcp.CallToolResult {
	var in struct {
		Node string `json:"node"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return validationResult(err)
	}

	var nodeNames []string
	if in.Node != "" {
		node, err := validate.NodeName(in.Node)
		if err != nil {
			return validationResult(err)
		}
		nodeNames = []string{node}
	} else {
		nodes, err := e.listNodes(ctx)
		if err != nil {
			return errorResult("listing storage", err, "Proxmox host unreachable")
		}
		for _, n := range nodes {
			nodeNames = append(nodeNames, n.Node)
		}
	}

	var b strings.Builder
	total := 0
	for _, node := range nodeNames {
		data, err := e.api.Get(ctx, "/nodes/"+node+"/storage")
		if err != nil {
			return errorResult(fmt.Sprintf("listing storage on node %s", node), err,
				"node is offline",
				"a storage backend (NFS/PBS/Ceph) is unreachable, slowing the storage API")
		}
		var pools []proxmox.Storage
		if err := json.Unmarshal(data, &pools); err != nil {
			return errorResult("listing storage", fmt.Errorf("failed to decode response from node %s: %w", node, err))
		}

		fmt.Fprintf(&b, "\nNode %s:\n", node)
		for _, s := range pools {
			total++
			state := "inactive"
			if s.Active == 1 {
				state = "active"
			}
			fmt.Fprintf(&b, "  %-16s %-8s %-8s", s.Storage, s.Type, state)
			if s.Total > 0 {
				fmt.Fprintf(&b, "  %s / %s (%s)", formatBytes(s.Used), formatBytes(s.Total), formatPercent(s.Used, s.Total))
			}
			if s.Shared == 1 {
				b.WriteString("  shared")
			}
			fmt.Fprintf(&b, "  [%s]\n", s.Content)
		}
	}

	return mcp.NewTextResult(fmt.Sprintf("Storage pools (%d entries):\n%s", total, b.String()))
}

func (e *Executor) handleGetStorageContent(ctx context.Context, args map[string]interface{}) mcp.CallToolResult {
	var in struct {
		Node    string `json:"node"`
		Storage string `json:"storage"`
		Content string `json:"content"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return validationResult(err)
	}
	node, err := validate.NodeName(in.Node)
	if err != nil {
		return validationResult(err)
	}
	storage, err := validate.Identifier("storage", in.Storage)
	if err != nil {
		return validationResult(err)
	}

	path := "/nodes/" + node + "/storage/" + storage + "/content"
	if in.Content != "" {
		contentType, err := validate.Identifier("content", in.Content)
		if err != nil {
			return validationResult(err)
		}
		path += "?content=" + contentType
	}

	data, err := e.api.Get(ctx, path)
	if err != nil {
		return errorResult("listing storage content", err,
			"storage pool does not exist on this node",
			"storage is disabled or its backend is unreachable")
	}

	var items []proxmox.StorageContent
	if err := json.Unmarshal(data, &items); err != nil {
		return errorResult("listing storage content", fmt.Errorf("failed to decode response: %w", err))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Contents of %s on %s (%d items):\n", storage, node, len(items))
	for _, item := range items {
		fmt.Fprintf(&b, "\n%s\n", item.VolID)
		fmt.Fprintf(&b, "  Type: %s  Format: %s  Size: %s\n", item.Content, item.Format, formatBytes(item.Size))
		if item.VMID > 0 {
			fmt.Fprintf(&b, "  Guest: %d\n", item.VMID)
		}
		if item.CTime > 0 {
			fmt.Fprintf(&b, "  Created: %s\n", formatUnixTime(item.CTime))
		}
	}
	return mcp.NewTextResult(b.String())
}
