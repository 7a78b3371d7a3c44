package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListSnapshotsFiltersCurrentEntry(t *testing.T) {
	e, api := newTestExecutor(t, false)
	// PVE appends a "current" pseudo-entry for the live state.
	api.respond("/nodes/pve1/qemu/100/snapshot", `[
		{"name": "before-upgrade", "snaptime": 1700000000, "description": "pre 8.1"},
		{"name": "nightly", "snaptime": 1700086400, "parent": "before-upgrade", "vmstate": 1},
		{"name": "current", "parent": "nightly"}
	]`)

	text, isError := callTool(t, e, "proxmox_list_snapshots", map[string]interface{}{
		"node": "pve1",
		"vmid": "100",
	})
	assert.False(t, isError)
	assert.Contains(t, text, "(2)")
	assert.Contains(t, text, "before-upgrade")
	assert.Contains(t, text, "nightly")
	assert.NotContains(t, text, "current")
}

func TestListSnapshotsOnlyCurrent(t *testing.T) {
	e, api := newTestExecutor(t, false)
	api.respond("/nodes/pve1/lxc/300/snapshot", `[{"name": "current"}]`)

	text, isError := callTool(t, e, "proxmox_list_snapshots", map[string]interface{}{
		"node": "pve1",
		"vmid": "300",
		"type": "lxc",
	})
	assert.False(t, isError)
	assert.Contains(t, text, "no snapshots")
}

func TestCreateSnapshotSendsVMStateForQemuOnly(t *testing.T) {
	e, api := newTestExecutor(t, true)

	_, _ = callTool(t, e, "proxmox_create_snapshot", map[string]interface{}{
		"node":     "pve1",
		"vmid":     "100",
		"snapname": "pre-change",
		"vmstate":  true,
	})
	require.Len(t, api.calls, 1)
	assert.Equal(t, "/nodes/pve1/qemu/100/snapshot", api.calls[0].path)
	assert.Equal(t, "1", api.calls[0].data.Get("vmstate"))

	_, _ = callTool(t, e, "proxmox_create_snapshot", map[string]interface{}{
		"node":     "pve1",
		"vmid":     "300",
		"type":     "lxc",
		"snapname": "pre-change",
		"vmstate":  true,
	})
	require.Len(t, api.calls, 2)
	assert.Equal(t, "/nodes/pve1/lxc/300/snapshot", api.calls[1].path)
	assert.Empty(t, api.calls[1].data.Get("vmstate"), "containers have no RAM state to snapshot")
}

func TestRollbackSnapshotWarnsAboutDiscardedState(t *testing.T) {
	e, api := newTestExecutor(t, true)
	api.respond("/nodes/pve1/qemu/100/snapshot/nightly/rollback",
		`"UPID:pve1:0001A2B3:04C5D6E7:65F00000:qmrollback:100:api@pam!mcp:"`)

	text, isError := callTool(t, e, "proxmox_rollback_snapshot", map[string]interface{}{
		"node":     "pve1",
		"vmid":     "100",
		"snapname": "nightly",
	})
	assert.False(t, isError)
	assert.Contains(t, text, "discarded")
}
