package tools

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/pvemcp/proxmox-mcp/internal/mcp"
	"github.com/pvemcp/proxmox-mcp/internal/validate"
	"github.com/pvemcp/proxmox-mcp/pkg/proxmox"
)

var (
	qemuDiskKeyRegex = regexp.MustCompile(`^(ide|sata|scsi|virtio|efidisk)\d+$`)
	lxcDiskKeyRegex  = regexp.MustCompile(`^(rootfs|mp\d+)$`)
)

func (e *Executor) registerDiskTools() {
	e.register(mcp.Tool{
		Name:        "proxmox_list_disks",
		Description: "List the disks attached to a VM, or the rootfs and mount points of a container.",
		InputSchema: guestArgsSchema(nil),
	}, false, e.handleListDisks)

	e.register(mcp.Tool{
		Name:        "proxmox_add_disk",
		Description: "Attach a new disk to a VM. Requires elevated permissions.",
		InputSchema: guestArgsSchema(map[string]mcp.PropertySchema{
			"disk":    {Type: "string", Description: "Disk slot, e.g. 'scsi1' or 'virtio2'"},
			"storage": {Type: "string", Description: "Storage pool for the new disk", Default: defaultStorage},
			"size_gb": {Type: "integer", Description: "Disk size in GiB", Default: defaultDiskGB},
		}, "disk"),
	}, true, e.handleAddDisk)

	e.register(mcp.Tool{
		Name:        "proxmox_resize_disk",
		Description: "Grow a disk. Size is an absolute value like '50G' or a relative delta like '+10G'; shrinking is not supported by PVE. Requires elevated permissions.",
		InputSchema: guestArgsSchema(map[string]mcp.PropertySchema{
			"disk": {Type: "string", Description: "Disk slot, e.g. 'scsi0' or 'rootfs'"},
			"size": {Type: "string", Description: "Target size ('50G') or delta ('+10G')"},
		}, "disk", "size"),
	}, true, e.handleResizeDisk)

	e.register(mcp.Tool{
		Name:        "proxmox_remove_disk",
		Description: "Detach and delete a disk from a VM. Requires elevated permissions.",
		InputSchema: guestArgsSchema(map[string]mcp.PropertySchema{
			"disk": {Type: "string", Description: "Disk slot to remove, e.g. 'scsi1'"},
		}, "disk"),
	}, true, e.handleRemoveDisk)

	e.register(mcp.Tool{
		Name:        "proxmox_add_mountpoint",
		Description: "Add a mount point to a container. Requires elevated permissions.",
		InputSchema: guestArgsSchema(map[string]mcp.PropertySchema{
			"index":   {Type: "integer", Description: "Mount point index (mpN)", Default: 0},
			"storage": {Type: "string", Description: "Storage pool backing the volume", Default: defaultStorage},
			"size_gb": {Type: "integer", Description: "Volume size in GiB", Default: defaultDiskGB},
			"path":    {Type: "string", Description: "Mount path inside the container, e.g. '/data'"},
		}, "path"),
	}, true, e.handleAddMountpoint)

	e.register(mcp.Tool{
		Name:        "proxmox_remove_mountpoint",
		Description: "Remove a mount point from a container. The backing volume is deleted. Requires elevated permissions.",
		InputSchema: guestArgsSchema(map[string]mcp.PropertySchema{
			"index": {Type: "integer", Description: "Mount point index (mpN)", Default: 0},
		}),
	}, true, e.handleRemoveMountpoint)
}

func (e *Executor) handleListDisks(ctx context.Context, args map[string]interface{}) mcp.CallToolResult {
	node, vmid, family, res := e.guestTarget(args)
	if res != nil {
		return *res
	}

	cfg, err := e.guestConfig(ctx, node, family, vmid)
	if err != nil {
		return errorResult("listing disks", err,
			"guest ID does not exist on this node")
	}

	keyRegex := qemuDiskKeyRegex
	if family == familyLXC {
		keyRegex = lxcDiskKeyRegex
	}

	var keys []string
	for key := range cfg {
		if keyRegex.MatchString(key) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	if len(keys) == 0 {
		return mcp.NewTextResult(fmt.Sprintf("%s %s has no disks configured.", strings.ToUpper(family), vmid))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Disks of %s %s (%d):\n", family, vmid, len(keys))
	for _, key := range keys {
		value, _ := configString(cfg, key)
		dev := proxmox.ParseDeviceValue(value)
		fmt.Fprintf(&b, "\n%s: %s\n", key, value)
		if size, ok := dev.Get("size"); ok {
			fmt.Fprintf(&b, "  Size: %s\n", size)
		}
		if mp, ok := dev.Get("mp"); ok {
			fmt.Fprintf(&b, "  Mounted at: %s\n", mp)
		}
	}
	return mcp.NewTextResult(b.String())
}

func (e *Executor) handleAddDisk(ctx context.Context, args map[string]interface{}) mcp.CallToolResult {
	node, vmid, family, res := e.guestTarget(args)
	if res != nil {
		return *res
	}
	if family != familyQemu {
		return mcp.NewErrorResult("Error: proxmox_add_disk applies to VMs; use proxmox_add_mountpoint for containers")
	}

	var in struct {
		Disk    string `json:"disk"`
		Storage string `json:"storage"`
		SizeGB  int    `json:"size_gb"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return validationResult(err)
	}
	slot, err := validate.DiskSlot(in.Disk)
	if err != nil {
		return validationResult(err)
	}
	if in.Storage == "" {
		in.Storage = defaultStorage
	}
	storage, err := validate.Identifier("storage", in.Storage)
	if err != nil {
		return validationResult(err)
	}
	if in.SizeGB == 0 {
		in.SizeGB = defaultDiskGB
	}
	if in.SizeGB < 1 {
		return mcp.NewErrorResult("Error: invalid size_gb: must be at least 1")
	}

	// "storage:N" allocates a fresh N GiB volume on that pool.
	data := url.Values{}
	data.Set(slot, fmt.Sprintf("%s:%d", storage, in.SizeGB))

	if _, err := e.api.Put(ctx, "/nodes/"+node+"/"+family+"/"+vmid+"/config", data); err != nil {
		return errorResult("adding disk", err,
			"disk slot already in use",
			"storage pool does not allow disk images",
			"not enough free space on the storage pool")
	}

	return mcp.NewTextResult(fmt.Sprintf("Added %s to VM %s: %d GiB on %s", slot, vmid, in.SizeGB, storage))
}

func (e *Executor) handleResizeDisk(ctx context.Context, args map[string]interface{}) mcp.CallToolResult {
	node, vmid, family, res := e.guestTarget(args)
	if res != nil {
		return *res
	}

	var in struct {
		Disk string `json:"disk"`
		Size string `json:"size"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return validationResult(err)
	}
	slot, err := validate.DiskSlot(in.Disk)
	if err != nil {
		return validationResult(err)
	}
	// Passed through uninterpreted; PVE resolves relative sizes itself.
	size, err := validate.SizeToken(in.Size)
	if err != nil {
		return validationResult(err)
	}

	data := url.Values{}
	data.Set("disk", slot)
	data.Set("size", size)

	resp, err := e.api.Put(ctx, "/nodes/"+node+"/"+family+"/"+vmid+"/resize", data)
	if err != nil {
		return errorResult("resizing disk", err,
			"disk does not exist on this guest",
			"shrinking is not supported, the target size must be larger than the current size")
	}

	if len(resp) > 0 && string(resp) != "null" {
		return taskResult(fmt.Sprintf("Resize %s of %s %s to %s", slot, family, vmid, size), resp)
	}
	return mcp.NewTextResult(fmt.Sprintf("Resized %s of %s %s to %s.", slot, family, vmid, size))
}

func (e *Executor) handleRemoveDisk(ctx context.Context, args map[string]interface{}) mcp.CallToolResult {
	node, vmid, family, res := e.guestTarget(args)
	if res != nil {
		return *res
	}

	var in struct {
		Disk string `json:"disk"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return validationResult(err)
	}
	slot, err := validate.DiskSlot(in.Disk)
	if err != nil {
		return validationResult(err)
	}

	data := url.Values{}
	data.Set("delete", slot)

	if _, err := e.api.Put(ctx, "/nodes/"+node+"/"+family+"/"+vmid+"/config", data); err != nil {
		return errorResult("removing disk", err,
			"disk does not exist",
			"VM is running and the disk cannot be hot-unplugged",
			"API token lacks permission to modify this VM")
	}

	result := mcp.NewTextResult(fmt.Sprintf("Removed %s from %s %s.", slot, family, vmid))
	result.Content = append(result.Content, mcp.NewTextContent(
		"Note: the detached disk becomes an unused volume; deleting that volume is permanent."))
	return result
}

func (e *Executor) handleAddMountpoint(ctx context.Context, args map[string]interface{}) mcp.CallToolResult {
	node, vmid, family, res := e.guestTarget(args)
	if res != nil {
		return *res
	}
	if family != familyLXC {
		return mcp.NewErrorResult("Error: proxmox_add_mountpoint applies to containers; set type='lxc'")
	}

	var in struct {
		Index   int    `json:"index"`
		Storage string `json:"storage"`
		SizeGB  int    `json:"size_gb"`
		Path    string `json:"path"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return validationResult(err)
	}
	if in.Index < 0 || in.Index > 255 {
		return mcp.NewErrorResult("Error: invalid index: must be between 0 and 255")
	}
	if in.Path == "" || !strings.HasPrefix(in.Path, "/") {
		return mcp.NewErrorResult("Error: invalid path: must be an absolute path inside the container")
	}
	if in.Storage == "" {
		in.Storage = defaultStorage
	}
	storage, err := validate.Identifier("storage", in.Storage)
	if err != nil {
		return validationResult(err)
	}
	if in.SizeGB == 0 {
		in.SizeGB = defaultDiskGB
	}
	if in.SizeGB < 1 {
		return mcp.NewErrorResult("Error: invalid size_gb: must be at least 1")
	}

	key := fmt.Sprintf("mp%d", in.Index)
	dev := proxmox.ParseDeviceValue(fmt.Sprintf("%s:%d", storage, in.SizeGB))
	dev.Set("mp", in.Path)

	data := url.Values{}
	data.Set(key, dev.String())

	if _, err := e.api.Put(ctx, "/nodes/"+node+"/"+family+"/"+vmid+"/config", data); err != nil {
		return errorResult("adding mount point", err,
			"mount point index already in use",
			"storage pool does not allow container volumes")
	}

	return mcp.NewTextResult(fmt.Sprintf("Added %s to container %s: %d GiB on %s mounted at %s",
		key, vmid, in.SizeGB, storage, in.Path))
}

func (e *Executor) handleRemoveMountpoint(ctx context.Context, args map[string]interface{}) mcp.CallToolResult {
	node, vmid, family, res := e.guestTarget(args)
	if res != nil {
		return *res
	}
	if family != familyLXC {
		return mcp.NewErrorResult("Error: proxmox_remove_mountpoint applies to containers; set type='lxc'")
	}

	var in struct {
		Index int `json:"index"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return validationResult(err)
	}
	if in.Index < 0 || in.Index > 255 {
		return mcp.NewErrorResult("Error: invalid index: must be between 0 and 255")
	}
	key := fmt.Sprintf("mp%d", in.Index)

	data := url.Values{}
	data.Set("delete", key)

	if _, err := e.api.Put(ctx, "/nodes/"+node+"/"+family+"/"+vmid+"/config", data); err != nil {
		return errorResult("removing mount point", err,
			"mount point does not exist",
			"container is running and the volume cannot be detached")
	}

	result := mcp.NewTextResult(fmt.Sprintf("Removed %s from container %s.", key, vmid))
	result.Content = append(result.Content, mcp.NewTextContent(
		"Warning: the backing volume is deleted with the mount point and cannot be recovered."))
	return result
}
