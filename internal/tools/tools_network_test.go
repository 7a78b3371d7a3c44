package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateNetworkInterfacePreservesUnspecifiedFields(t *testing.T) {
	e, api := newTestExecutor(t, true)
	api.respond("/nodes/pve1/qemu/100/config",
		`{"net0": "virtio=AA:BB:CC:DD:EE:FF,bridge=vmbr0,tag=50,firewall=1", "cores": 2}`)

	text, isError := callTool(t, e, "proxmox_update_network_interface", map[string]interface{}{
		"node":   "pve1",
		"vmid":   "100",
		"bridge": "vmbr1",
	})
	assert.False(t, isError)
	assert.Contains(t, text, "vmbr1")

	// One GET for the current config, one PUT with the merged value.
	require.Len(t, api.calls, 2)
	assert.Equal(t, "GET", api.calls[0].method)
	assert.Equal(t, "PUT", api.calls[1].method)
	assert.Equal(t, "virtio=AA:BB:CC:DD:EE:FF,bridge=vmbr1,tag=50,firewall=1",
		api.calls[1].data.Get("net0"),
		"the MAC, tag and firewall fields must survive a bridge change")
}

func TestUpdateNetworkInterfaceMissingInterface(t *testing.T) {
	e, api := newTestExecutor(t, true)
	api.respond("/nodes/pve1/qemu/100/config", `{"net0": "virtio,bridge=vmbr0"}`)

	text, isError := callTool(t, e, "proxmox_update_network_interface", map[string]interface{}{
		"node":   "pve1",
		"vmid":   "100",
		"index":  3,
		"bridge": "vmbr1",
	})
	assert.True(t, isError)
	assert.Contains(t, text, "net3")
	assert.Len(t, api.calls, 1, "a missing interface must not produce a write")
}

func TestUpdateNetworkInterfaceRequiresChanges(t *testing.T) {
	e, api := newTestExecutor(t, true)
	api.respond("/nodes/pve1/qemu/100/config", `{"net0": "virtio,bridge=vmbr0"}`)

	text, isError := callTool(t, e, "proxmox_update_network_interface", map[string]interface{}{
		"node": "pve1",
		"vmid": "100",
	})
	assert.True(t, isError)
	assert.Contains(t, text, "nothing to change")
}

func TestAddNetworkInterfaceQemu(t *testing.T) {
	e, api := newTestExecutor(t, true)

	_, isError := callTool(t, e, "proxmox_add_network_interface", map[string]interface{}{
		"node":  "pve1",
		"vmid":  "100",
		"index": 1,
		"tag":   42,
	})
	assert.False(t, isError)

	require.Len(t, api.calls, 1)
	assert.Equal(t, "PUT", api.calls[0].method)
	assert.Equal(t, "/nodes/pve1/qemu/100/config", api.calls[0].path)
	assert.Equal(t, "virtio,bridge=vmbr0,tag=42", api.calls[0].data.Get("net1"))
}

func TestAddNetworkInterfaceLXC(t *testing.T) {
	e, api := newTestExecutor(t, true)

	_, isError := callTool(t, e, "proxmox_add_network_interface", map[string]interface{}{
		"node":   "pve1",
		"vmid":   "300",
		"type":   "lxc",
		"bridge": "vmbr2",
	})
	assert.False(t, isError)

	require.Len(t, api.calls, 1)
	assert.Equal(t, "/nodes/pve1/lxc/300/config", api.calls[0].path)
	assert.Equal(t, "name=eth0,bridge=vmbr2,ip=dhcp", api.calls[0].data.Get("net0"))
}

func TestRemoveNetworkInterface(t *testing.T) {
	e, api := newTestExecutor(t, true)

	_, isError := callTool(t, e, "proxmox_remove_network_interface", map[string]interface{}{
		"node":  "pve1",
		"vmid":  "100",
		"index": 2,
	})
	assert.False(t, isError)

	require.Len(t, api.calls, 1)
	assert.Equal(t, "net2", api.calls[0].data.Get("delete"))
}

func TestListNetworkInterfaces(t *testing.T) {
	e, api := newTestExecutor(t, false)
	api.respond("/nodes/pve1/qemu/100/config", `{
		"net0": "virtio=AA:BB:CC:DD:EE:FF,bridge=vmbr0",
		"net1": "virtio=11:22:33:44:55:66,bridge=vmbr1,tag=7",
		"scsi0": "local-lvm:vm-100-disk-0,size=32G"
	}`)

	text, isError := callTool(t, e, "proxmox_list_network_interfaces", map[string]interface{}{
		"node": "pve1",
		"vmid": "100",
	})
	assert.False(t, isError)
	assert.Contains(t, text, "net0")
	assert.Contains(t, text, "net1")
	assert.Contains(t, text, "(2)")
	assert.NotContains(t, text, "scsi0", "disk keys are not interfaces")
}
