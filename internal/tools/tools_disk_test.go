package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResizeDiskPassesSizeTokenThrough(t *testing.T) {
	e, api := newTestExecutor(t, true)

	// Relative deltas are handed to the remote side uninterpreted.
	_, isError := callTool(t, e, "proxmox_resize_disk", map[string]interface{}{
		"node": "pve1",
		"vmid": "100",
		"disk": "scsi0",
		"size": "+10G",
	})
	assert.False(t, isError)

	require.Len(t, api.calls, 1)
	assert.Equal(t, "PUT", api.calls[0].method)
	assert.Equal(t, "/nodes/pve1/qemu/100/resize", api.calls[0].path)
	assert.Equal(t, "+10G", api.calls[0].data.Get("size"))
	assert.Equal(t, "scsi0", api.calls[0].data.Get("disk"))
}

func TestResizeDiskRejectsBadSize(t *testing.T) {
	e, api := newTestExecutor(t, true)

	text, isError := callTool(t, e, "proxmox_resize_disk", map[string]interface{}{
		"node": "pve1",
		"vmid": "100",
		"disk": "scsi0",
		"size": "-10G",
	})
	assert.True(t, isError)
	assert.Contains(t, text, "invalid size")
	assert.Empty(t, api.calls)
}

func TestAddDiskAllocatesVolume(t *testing.T) {
	e, api := newTestExecutor(t, true)

	_, isError := callTool(t, e, "proxmox_add_disk", map[string]interface{}{
		"node":    "pve1",
		"vmid":    "100",
		"disk":    "scsi1",
		"storage": "local-lvm",
		"size_gb": 20,
	})
	assert.False(t, isError)

	require.Len(t, api.calls, 1)
	assert.Equal(t, "local-lvm:20", api.calls[0].data.Get("scsi1"))
}

func TestAddDiskRejectsContainers(t *testing.T) {
	e, api := newTestExecutor(t, true)

	text, isError := callTool(t, e, "proxmox_add_disk", map[string]interface{}{
		"node": "pve1",
		"vmid": "300",
		"type": "lxc",
		"disk": "scsi0",
	})
	assert.True(t, isError)
	assert.Contains(t, text, "proxmox_add_mountpoint")
	assert.Empty(t, api.calls)
}

func TestAddDiskRejectsBadSlot(t *testing.T) {
	e, api := newTestExecutor(t, true)

	text, isError := callTool(t, e, "proxmox_add_disk", map[string]interface{}{
		"node": "pve1",
		"vmid": "100",
		"disk": "hd0",
	})
	assert.True(t, isError)
	assert.Contains(t, text, "disk slot")
	assert.Empty(t, api.calls)
}

func TestAddMountpoint(t *testing.T) {
	e, api := newTestExecutor(t, true)

	_, isError := callTool(t, e, "proxmox_add_mountpoint", map[string]interface{}{
		"node":    "pve1",
		"vmid":    "300",
		"type":    "lxc",
		"index":   1,
		"size_gb": 8,
		"path":    "/data",
	})
	assert.False(t, isError)

	require.Len(t, api.calls, 1)
	assert.Equal(t, "/nodes/pve1/lxc/300/config", api.calls[0].path)
	assert.Equal(t, "local:8,mp=/data", api.calls[0].data.Get("mp1"))
}

func TestAddMountpointRequiresAbsolutePath(t *testing.T) {
	e, api := newTestExecutor(t, true)

	text, isError := callTool(t, e, "proxmox_add_mountpoint", map[string]interface{}{
		"node": "pve1",
		"vmid": "300",
		"type": "lxc",
		"path": "data",
	})
	assert.True(t, isError)
	assert.Contains(t, text, "absolute path")
	assert.Empty(t, api.calls)
}

func TestListDisksByFamily(t *testing.T) {
	e, api := newTestExecutor(t, false)
	api.respond("/nodes/pve1/qemu/100/config", `{
		"scsi0": "local-lvm:vm-100-disk-0,size=32G",
		"virtio1": "local-lvm:vm-100-disk-1,size=8G",
		"net0": "virtio,bridge=vmbr0"
	}`)
	api.respond("/nodes/pve1/lxc/300/config", `{
		"rootfs": "local-lvm:vm-300-disk-0,size=8G",
		"mp0": "local-lvm:vm-300-disk-1,mp=/data,size=16G"
	}`)

	text, _ := callTool(t, e, "proxmox_list_disks", map[string]interface{}{
		"node": "pve1",
		"vmid": "100",
	})
	assert.Contains(t, text, "scsi0")
	assert.Contains(t, text, "virtio1")
	assert.NotContains(t, text, "net0")

	text, _ = callTool(t, e, "proxmox_list_disks", map[string]interface{}{
		"node": "pve1",
		"vmid": "300",
		"type": "lxc",
	})
	assert.Contains(t, text, "rootfs")
	assert.Contains(t, text, "mp0")
	assert.Contains(t, text, "/data")
}

func TestRemoveDiskDetaches(t *testing.T) {
	e, api := newTestExecutor(t, true)

	text, isError := callTool(t, e, "proxmox_remove_disk", map[string]interface{}{
		"node": "pve1",
		"vmid": "100",
		"disk": "scsi1",
	})
	assert.False(t, isError)
	assert.Contains(t, text, "scsi1")

	require.Len(t, api.calls, 1)
	assert.Equal(t, "scsi1", api.calls[0].data.Get("delete"))
}
