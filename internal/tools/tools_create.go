package tools

import (
	"context"
	"fmt"
	"net/url"

	"github.com/pvemcp/proxmox-mcp/internal/mcp"
	"github.com/pvemcp/proxmox-mcp/internal/validate"
)

// Defaults applied when the caller omits optional creation fields.
const (
	defaultMemoryMB  = 512
	defaultCores     = 1
	defaultStorage   = "local"
	defaultDiskGB    = 10
	defaultNetModel  = "virtio"
	defaultNetBridge = "vmbr0"
)

func (e *Executor) registerCreateTools() {
	e.register(mcp.Tool{
		Name:        "proxmox_create_vm",
		Description: "Create a new virtual machine. Defaults: 1 core, 512 MB memory, 10 GB disk on 'local', virtio NIC on vmbr0. Requires elevated permissions.",
		InputSchema: mcp.InputSchema{
			Type: "object",
			Properties: map[string]mcp.PropertySchema{
				"node":    {Type: "string", Description: "Node to create the VM on"},
				"vmid":    {Type: "string", Description: "ID for the new VM"},
				"name":    {Type: "string", Description: "VM name"},
				"cores":   {Type: "integer", Description: "CPU cores", Default: defaultCores},
				"memory":  {Type: "integer", Description: "Memory in MB", Default: defaultMemoryMB},
				"storage": {Type: "string", Description: "Storage pool for the system disk", Default: defaultStorage},
				"disk_gb": {Type: "integer", Description: "System disk size in GB", Default: defaultDiskGB},
			},
			Required: []string{"node", "vmid"},
		},
	}, true, e.handleCreateVM)

	e.register(mcp.Tool{
		Name:        "proxmox_create_container",
		Description: "Create a new LXC container from an OS template. Defaults: 1 core, 512 MB memory, 10 GB rootfs on 'local', DHCP on vmbr0, unprivileged. Requires elevated permissions.",
		InputSchema: mcp.InputSchema{
			Type: "object",
			Properties: map[string]mcp.PropertySchema{
				"node":       {Type: "string", Description: "Node to create the container on"},
				"vmid":       {Type: "string", Description: "ID for the new container"},
				"ostemplate": {Type: "string", Description: "Template volume, e.g. 'local:vztmpl/debian-12-standard_12.2-1_amd64.tar.zst'"},
				"hostname":   {Type: "string", Description: "Container hostname"},
				"cores":      {Type: "integer", Description: "CPU cores", Default: defaultCores},
				"memory":     {Type: "integer", Description: "Memory in MB", Default: defaultMemoryMB},
				"storage":    {Type: "string", Description: "Storage pool for the root filesystem", Default: defaultStorage},
				"disk_gb":    {Type: "integer", Description: "Root filesystem size in GB", Default: defaultDiskGB},
			},
			Required: []string{"node", "vmid", "ostemplate"},
		},
	}, true, e.handleCreateContainer)
}

func (e *Executor) handleCreateVM(ctx context.Context, args map[string]interface{}) mcp.CallToolResult {
	var in struct {
		Node    string `json:"node"`
		VMID    string `json:"vmid"`
		Name    string `json:"name"`
		Cores   int    `json:"cores"`
		Memory  int    `json:"memory"`
		Storage string `json:"storage"`
		DiskGB  int    `json:"disk_gb"`
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
	if in.Cores <= 0 {
		in.Cores = defaultCores
	}
	if in.Memory <= 0 {
		in.Memory = defaultMemoryMB
	}
	if in.Storage == "" {
		in.Storage = defaultStorage
	}
	storage, err := validate.Identifier("storage", in.Storage)
	if err != nil {
		return validationResult(err)
	}
	if in.DiskGB <= 0 {
		in.DiskGB = defaultDiskGB
	}

	data := url.Values{}
	data.Set("vmid", vmid)
	data.Set("cores", fmt.Sprintf("%d", in.Cores))
	data.Set("memory", fmt.Sprintf("%d", in.Memory))
	data.Set("scsihw", "virtio-scsi-pci")
	data.Set("scsi0", fmt.Sprintf("%s:%d", storage, in.DiskGB))
	data.Set("net0", defaultNetModel+",bridge="+defaultNetBridge)
	if in.Name != "" {
		name, err := validate.Identifier("name", in.Name)
		if err != nil {
			return validationResult(err)
		}
		data.Set("name", name)
	}

	resp, err := e.api.Post(ctx, "/nodes/"+node+"/qemu", data)
	if err != nil {
		return errorResult("creating VM", err,
			"VM ID already in use",
			"storage pool does not exist on this node",
			"API token lacks VM.Allocate")
	}

	return taskResult(fmt.Sprintf("Create VM %s (%d cores, %d MB, %d GB on %s)", vmid, in.Cores, in.Memory, in.DiskGB, storage), resp)
}

func (e *Executor) handleCreateContainer(ctx context.Context, args map[string]interface{}) mcp.CallToolResult {
	var in struct {
		Node       string `json:"node"`
		VMID       string `json:"vmid"`
		OSTemplate string `json:"ostemplate"`
		Hostname   string `json:"hostname"`
		Cores      int    `json:"cores"`
		Memory     int    `json:"memory"`
		Storage    string `json:"storage"`
		DiskGB     int    `json:"disk_gb"`
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
	ostemplate, err := validate.VolumeID(in.OSTemplate)
	if err != nil {
		return validationResult(err)
	}
	if in.Cores <= 0 {
		in.Cores = defaultCores
	}
	if in.Memory <= 0 {
		in.Memory = defaultMemoryMB
	}
	if in.Storage == "" {
		in.Storage = defaultStorage
	}
	storage, err := validate.Identifier("storage", in.Storage)
	if err != nil {
		return validationResult(err)
	}
	if in.DiskGB <= 0 {
		in.DiskGB = defaultDiskGB
	}

	data := url.Values{}
	data.Set("vmid", vmid)
	data.Set("ostemplate", ostemplate)
	data.Set("cores", fmt.Sprintf("%d", in.Cores))
	data.Set("memory", fmt.Sprintf("%d", in.Memory))
	data.Set("rootfs", fmt.Sprintf("%s:%d", storage, in.DiskGB))
	data.Set("net0", "name=eth0,bridge="+defaultNetBridge+",ip=dhcp")
	data.Set("unprivileged", "1")
	if in.Hostname != "" {
		hostname, err := validate.Identifier("hostname", in.Hostname)
		if err != nil {
			return validationResult(err)
		}
		data.Set("hostname", hostname)
	}

	resp, err := e.api.Post(ctx, "/nodes/"+node+"/lxc", data)
	if err != nil {
		return errorResult("creating container", err,
			"container ID already in use",
			"OS template volume not found (download it in the PVE UI first)",
			"storage pool does not support container images")
	}

	return taskResult(fmt.Sprintf("Create container %s from %s", vmid, ostemplate), resp)
}
