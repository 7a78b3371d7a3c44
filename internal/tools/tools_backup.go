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

func (e *Executor) registerBackupTools() {
	e.register(mcp.Tool{
		Name:        "proxmox_list_backups",
		Description: "List backup archives. Without a node filter, all nodes are queried in cluster order; without a storage filter, every backup-capable storage on each node is listed.",
		InputSchema: mcp.InputSchema{
			Type: "object",
			Properties: map[string]mcp.PropertySchema{
				"node":    {Type: "string", Description: "Only list backups on this node"},
				"storage": {Type: "string", Description: "Only list backups in this storage pool"},
				"vmid":    {Type: "string", Description: "Only list backups of this guest"},
			},
		},
	}, false, e.handleListBackups)

	e.register(mcp.Tool{
		Name:        "proxmox_create_backup",
		Description: "Create a backup (vzdump) of a VM or container. Requires elevated permissions.",
		InputSchema: guestArgsSchema(map[string]mcp.PropertySchema{
			"storage":  {Type: "string", Description: "Target storage pool", Default: defaultStorage},
			"mode":     {Type: "string", Description: "Backup mode", Enum: []string{"snapshot", "suspend", "stop"}, Default: "snapshot"},
			"compress": {Type: "string", Description: "Compression", Enum: []string{"0", "gzip", "lzo", "zstd"}, Default: "zstd"},
			"notes":    {Type: "string", Description: "Notes stored with the backup"},
		}),
	}, true, e.handleCreateBackup)

	e.register(mcp.Tool{
		Name:        "proxmox_delete_backup",
		Description: "Delete a backup archive by volume ID. This cannot be undone. Requires elevated permissions.",
		InputSchema: mcp.InputSchema{
			Type: "object",
			Properties: map[string]mcp.PropertySchema{
				"node":  {Type: "string", Description: "Node that can see the storage"},
				"volid": {Type: "string", Description: "Backup volume ID, e.g. 'local:backup/vzdump-qemu-100-....vma.zst'"},
			},
			Required: []string{"node", "volid"},
		},
	}, true, e.handleDeleteBackup)

	e.register(mcp.Tool{
		Name:        "proxmox_restore_backup",
		Description: "Restore a guest from a backup archive into a guest ID. Overwrites the guest if it exists and force is set. Requires elevated permissions.",
		InputSchema: guestArgsSchema(map[string]mcp.PropertySchema{
			"archive": {Type: "string", Description: "Backup volume ID to restore from"},
			"storage": {Type: "string", Description: "Target storage for restored disks"},
			"force":   {Type: "boolean", Description: "Overwrite an existing guest with this ID", Default: false},
		}, "archive"),
	}, true, e.handleRestoreBackup)
}

func (e *Executor) handleListBackups(ctx context.Context, args map[string]interface{}) mcp.CallToolResult {
	var in struct {
		Node    string `json:"node"`
		Storage string `json:"storage"`
		VMID    string `json:"vmid"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return validationResult(err)
	}

	vmidFilter := ""
	if in.VMID != "" {
		vmid, err := validate.VMID(in.VMID)
		if err != nil {
			return validationResult(err)
		}
		vmidFilter = vmid
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
			return errorResult("listing backups", err, "Proxmox host unreachable")
		}
		for _, n := range nodes {
			nodeNames = append(nodeNames, n.Node)
		}
	}

	var b strings.Builder
	total := 0
	for _, node := range nodeNames {
		storages, res := e.backupStorages(ctx, node, in.Storage)
		if res != nil {
			return *res
		}
		for _, storage := range storages {
			data, err := e.api.Get(ctx, "/nodes/"+node+"/storage/"+storage+"/content?content=backup")
			if err != nil {
				return errorResult(fmt.Sprintf("listing backups in %s on node %s", storage, node), err,
					"storage backend unreachable")
			}
			var items []proxmox.StorageContent
			if err := json.Unmarshal(data, &items); err != nil {
				return errorResult("listing backups", fmt.Errorf("failed to decode response: %w", err))
			}
			for _, item := range items {
				if vmidFilter != "" && fmt.Sprintf("%d", item.VMID) != vmidFilter {
					continue
				}
				total++
				fmt.Fprintf(&b, "\n%s\n", item.VolID)
				fmt.Fprintf(&b, "  Node: %s  Guest: %d  Size: %s  Created: %s\n",
					node, item.VMID, formatBytes(item.Size), formatUnixTime(item.CTime))
				if item.Notes != "" {
					fmt.Fprintf(&b, "  Notes: %s\n", item.Notes)
				}
			}
		}
	}

	return mcp.NewTextResult(fmt.Sprintf("Backups (%d):\n%s", total, b.String()))
}

// backupStorages resolves which storage pools to scan for backups on a node:
// the caller-supplied pool, or every pool that can hold backup content.
func (e *Executor) backupStorages(ctx context.Context, node, storageArg string) ([]string, *mcp.CallToolResult) {
	if storageArg != "" {
		storage, err := validate.Identifier("storage", storageArg)
		if err != nil {
			r := validationResult(err)
			return nil, &r
		}
		return []string{storage}, nil
	}

	data, err := e.api.Get(ctx, "/nodes/"+node+"/storage")
	if err != nil {
		r := errorResult(fmt.Sprintf("listing storage on node %s", node), err, "node is offline")
		return nil, &r
	}
	var pools []proxmox.Storage
	if err := json.Unmarshal(data, &pools); err != nil {
		r := errorResult("listing storage", fmt.Errorf("failed to decode response from node %s: %w", node, err))
		return nil, &r
	}

	var storages []string
	for _, s := range pools {
		if s.Active == 1 && strings.Contains(s.Content, "backup") {
			storages = append(storages, s.Storage)
		}
	}
	return storages, nil
}

func (e *Executor) handleCreateBackup(ctx context.Context, args map[string]interface{}) mcp.CallToolResult {
	node, vmid, _, res := e.guestTarget(args)
	if res != nil {
		return *res
	}

	var in struct {
		Storage  string `json:"storage"`
		Mode     string `json:"mode"`
		Compress string `json:"compress"`
		Notes    string `json:"notes"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return validationResult(err)
	}
	if in.Storage == "" {
		in.Storage = defaultStorage
	}
	storage, err := validate.Identifier("storage", in.Storage)
	if err != nil {
		return validationResult(err)
	}
	mode := in.Mode
	switch mode {
	case "":
		mode = "snapshot"
	case "snapshot", "suspend", "stop":
	default:
		return mcp.NewErrorResult(fmt.Sprintf("Error: invalid mode %q: must be snapshot, suspend or stop", mode))
	}
	compress := in.Compress
	switch compress {
	case "":
		compress = "zstd"
	case "0", "gzip", "lzo", "zstd":
	default:
		return mcp.NewErrorResult(fmt.Sprintf("Error: invalid compress %q: must be 0, gzip, lzo or zstd", compress))
	}

	data := url.Values{}
	data.Set("vmid", vmid)
	data.Set("storage", storage)
	data.Set("mode", mode)
	data.Set("compress", compress)
	if in.Notes != "" {
		data.Set("notes-template", in.Notes)
	}

	resp, err := e.api.Post(ctx, "/nodes/"+node+"/vzdump", data)
	if err != nil {
		return errorResult("creating backup", err,
			"target storage does not accept backup content",
			"not enough free space on the target storage",
			"another vzdump job for this guest is already running")
	}

	return taskResult(fmt.Sprintf("Backup guest %s to %s (%s mode)", vmid, storage, mode), resp)
}

func (e *Executor) handleDeleteBackup(ctx context.Context, args map[string]interface{}) mcp.CallToolResult {
	var in struct {
		Node  string `json:"node"`
		VolID string `json:"volid"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return validationResult(err)
	}
	node, err := validate.NodeName(in.Node)
	if err != nil {
		return validationResult(err)
	}
	volid, err := validate.VolumeID(in.VolID)
	if err != nil {
		return validationResult(err)
	}
	storage, _, found := strings.Cut(volid, ":")
	if !found {
		return mcp.NewErrorResult("Error: invalid volid: expected '<storage>:<path>' form")
	}

	resp, err := e.api.Delete(ctx, "/nodes/"+node+"/storage/"+storage+"/content/"+url.PathEscape(volid))
	if err != nil {
		return errorResult("deleting backup", err,
			"backup volume does not exist",
			"backup is marked protected",
			"API token lacks Datastore.Allocate")
	}

	result := taskResult(fmt.Sprintf("Delete backup %s", volid), resp)
	result.Content = append(result.Content, mcp.NewTextContent(
		"Warning: backup deletion is permanent and cannot be undone."))
	return result
}

func (e *Executor) handleRestoreBackup(ctx context.Context, args map[string]interface{}) mcp.CallToolResult {
	node, vmid, family, res := e.guestTarget(args)
	if res != nil {
		return *res
	}

	var in struct {
		Archive string `json:"archive"`
		Storage string `json:"storage"`
		Force   bool   `json:"force"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return validationResult(err)
	}
	archive, err := validate.VolumeID(in.Archive)
	if err != nil {
		return validationResult(err)
	}

	data := url.Values{}
	data.Set("vmid", vmid)
	if family == familyQemu {
		data.Set("archive", archive)
	} else {
		data.Set("ostemplate", archive)
		data.Set("restore", "1")
	}
	if in.Force {
		data.Set("force", "1")
	}
	if in.Storage != "" {
		storage, err := validate.Identifier("storage", in.Storage)
		if err != nil {
			return validationResult(err)
		}
		data.Set("storage", storage)
	}

	resp, err := e.api.Post(ctx, "/nodes/"+node+"/"+family, data)
	if err != nil {
		return errorResult("restoring backup", err,
			"guest ID already exists (set force to overwrite)",
			"archive type does not match the guest type (qemu vs lxc)",
			"target storage has insufficient space")
	}

	return taskResult(fmt.Sprintf("Restore %s %s from %s", family, vmid, archive), resp)
}
