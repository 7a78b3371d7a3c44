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

// guestTypeProperty is shared by every tool that takes the family
// discriminator.
var guestTypeProperty = mcp.PropertySchema{
	Type:        "string",
	Description: "Guest type: 'qemu' for virtual machines, 'lxc' for containers",
	Enum:        []string{"qemu", "lxc"},
	Default:     "qemu",
}

func guestArgsSchema(extra map[string]mcp.PropertySchema, required ...string) mcp.InputSchema {
	props := map[string]mcp.PropertySchema{
		"node": {Type: "string", Description: "Node the guest runs on"},
		"vmid": {Type: "string", Description: "Guest ID, e.g. '100'"},
		"type": guestTypeProperty,
	}
	for k, v := range extra {
		props[k] = v
	}
	return mcp.InputSchema{
		Type:       "object",
		Properties: props,
		Required:   append([]string{"node", "vmid"}, required...),
	}
}

func (e *Executor) registerGuestTools() {
	e.register(mcp.Tool{
		Name:        "proxmox_get_vms",
		Description: "List virtual machines. Without a node filter, all nodes are queried in cluster order.",
		InputSchema: mcp.InputSchema{
			Type: "object",
			Properties: map[string]mcp.PropertySchema{
				"node": {Type: "string", Description: "Only list VMs on this node"},
			},
		},
	}, false, func(ctx context.Context, args map[string]interface{}) mcp.CallToolResult {
		return e.handleListGuests(ctx, args, familyQemu)
	})

	e.register(mcp.Tool{
		Name:        "proxmox_get_containers",
		Description: "List LXC containers. Without a node filter, all nodes are queried in cluster order.",
		InputSchema: mcp.InputSchema{
			Type: "object",
			Properties: map[string]mcp.PropertySchema{
				"node": {Type: "string", Description: "Only list containers on this node"},
			},
		},
	}, false, func(ctx context.Context, args map[string]interface{}) mcp.CallToolResult {
		return e.handleListGuests(ctx, args, familyLXC)
	})

	e.register(mcp.Tool{
		Name:        "proxmox_get_vm_status",
		Description: "Get current status of a VM or container: state, CPU, memory and uptime.",
		InputSchema: guestArgsSchema(nil),
	}, false, e.handleGetGuestStatus)

	lifecycle := []struct {
		name, action, desc string
	}{
		{"proxmox_start_vm", "start", "Start a stopped VM or container."},
		{"proxmox_stop_vm", "stop", "Force-stop a VM or container immediately (like pulling the power). Prefer shutdown for a clean stop."},
		{"proxmox_shutdown_vm", "shutdown", "Cleanly shut down a VM or container via ACPI/init."},
		{"proxmox_reboot_vm", "reboot", "Reboot a VM or container."},
		{"proxmox_suspend_vm", "suspend", "Suspend (pause) a VM or container."},
		{"proxmox_resume_vm", "resume", "Resume a suspended VM or container."},
	}
	for _, lc := range lifecycle {
		action := lc.action
		e.register(mcp.Tool{
			Name:        lc.name,
			Description: lc.desc + " Requires elevated permissions.",
			InputSchema: guestArgsSchema(nil),
		}, true, func(ctx context.Context, args map[string]interface{}) mcp.CallToolResult {
			return e.handleGuestLifecycle(ctx, args, action)
		})
	}

	e.register(mcp.Tool{
		Name:        "proxmox_delete_vm",
		Description: "Delete a VM or container permanently, including its disks. This cannot be undone. Requires elevated permissions.",
		InputSchema: guestArgsSchema(nil),
	}, true, e.handleDeleteGuest)

	e.register(mcp.Tool{
		Name:        "proxmox_clone_vm",
		Description: "Clone a VM or container to a new guest ID. Requires elevated permissions.",
		InputSchema: guestArgsSchema(map[string]mcp.PropertySchema{
			"newid":   {Type: "string", Description: "Guest ID for the clone"},
			"name":    {Type: "string", Description: "Name for the clone"},
			"target":  {Type: "string", Description: "Target node for the clone (default: same node)"},
			"storage": {Type: "string", Description: "Target storage for a full clone"},
			"full":    {Type: "boolean", Description: "Full clone instead of linked clone", Default: true},
		}, "newid"),
	}, true, e.handleCloneGuest)

	e.register(mcp.Tool{
		Name:        "proxmox_resize_vm",
		Description: "Change CPU cores and/or memory of a VM or container. Requires elevated permissions.",
		InputSchema: guestArgsSchema(map[string]mcp.PropertySchema{
			"cores":  {Type: "integer", Description: "New number of CPU cores"},
			"memory": {Type: "integer", Description: "New memory in MB"},
		}),
	}, true, e.handleResizeGuest)

	e.register(mcp.Tool{
		Name:        "proxmox_migrate_vm",
		Description: "Migrate a VM or container to another node. Requires elevated permissions.",
		InputSchema: guestArgsSchema(map[string]mcp.PropertySchema{
			"target": {Type: "string", Description: "Target node name"},
			"online": {Type: "boolean", Description: "Live migration while the guest is running", Default: false},
		}, "target"),
	}, true, e.handleMigrateGuest)
}

// handleListGuests lists guests of one family, fanning out over all nodes
// when no node filter is supplied. Fan-out is sequential in node-list order
// and aborts on the first failing sub-request.
func (e *Executor) handleListGuests(ctx context.Context, args map[string]interface{}, family string) mcp.CallToolResult {
	kind := "VMs"
	if family == familyLXC {
		kind = "Containers"
	}

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
			return errorResult("listing "+strings.ToLower(kind), err,
				"Proxmox host unreachable",
				"API token invalid or expired")
		}
		for _, n := range nodes {
			nodeNames = append(nodeNames, n.Node)
		}
	}

	var b strings.Builder
	total := 0
	for _, node := range nodeNames {
		data, err := e.api.Get(ctx, "/nodes/"+node+"/"+family)
		if err != nil {
			return errorResult(fmt.Sprintf("listing %s on node %s", strings.ToLower(kind), node), err,
				"node is offline",
				"API token lacks VM.Audit")
		}
		var guests []proxmox.Guest
		if err := json.Unmarshal(data, &guests); err != nil {
			return errorResult("listing "+strings.ToLower(kind), fmt.Errorf("failed to decode response from node %s: %w", node, err))
		}

		fmt.Fprintf(&b, "\nNode %s (%d):\n", node, len(guests))
		for _, g := range guests {
			total++
			fmt.Fprintf(&b, "  %d  %-20s %-9s", g.VMID, g.Name, g.Status)
			if g.Status == "running" {
				fmt.Fprintf(&b, "  cpu %.1f%%  mem %s/%s  up %s",
					g.CPU*100, formatBytes(g.Mem), formatBytes(g.MaxMem), formatUptime(g.Uptime))
			}
			b.WriteString("\n")
		}
	}

	return mcp.NewTextResult(fmt.Sprintf("%s (%d total):\n%s", kind, total, b.String()))
}

func (e *Executor) handleGetGuestStatus(ctx context.Context, args map[string]interface{}) mcp.CallToolResult {
	node, vmid, family, res := e.guestTarget(args)
	if res != nil {
		return *res
	}

	data, err := e.api.Get(ctx, "/nodes/"+node+"/"+family+"/"+vmid+"/status/current")
	if err != nil {
		return errorResult("getting guest status", err,
			"guest ID does not exist on this node",
			"wrong type: use type='lxc' for containers")
	}

	var g proxmox.Guest
	if err := json.Unmarshal(data, &g); err != nil {
		return errorResult("getting guest status", fmt.Errorf("failed to decode response: %w", err))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s on %s\n", strings.ToUpper(family), vmid, node)
	if g.Name != "" {
		fmt.Fprintf(&b, "  Name: %s\n", g.Name)
	}
	fmt.Fprintf(&b, "  Status: %s\n", g.Status)
	if g.Status == "running" {
		fmt.Fprintf(&b, "  Uptime: %s\n", formatUptime(g.Uptime))
		fmt.Fprintf(&b, "  CPU: %.1f%% of %d cores\n", g.CPU*100, g.CPUs)
		fmt.Fprintf(&b, "  Memory: %s / %s (%s)\n", formatBytes(g.Mem), formatBytes(g.MaxMem), formatPercent(g.Mem, g.MaxMem))
	}
	return mcp.NewTextResult(b.String())
}

func (e *Executor) handleGuestLifecycle(ctx context.Context, args map[string]interface{}, action string) mcp.CallToolResult {
	node, vmid, family, res := e.guestTarget(args)
	if res != nil {
		return *res
	}

	data, err := e.api.Post(ctx, "/nodes/"+node+"/"+family+"/"+vmid+"/status/"+action, nil)
	if err != nil {
		return errorResult(action+"ing guest", err,
			"guest is already in the requested state",
			"guest ID does not exist on this node",
			"API token lacks VM.PowerMgmt")
	}

	return taskResult(fmt.Sprintf("%s %s %s", strings.ToUpper(action[:1])+action[1:], family, vmid), data)
}

func (e *Executor) handleDeleteGuest(ctx context.Context, args map[string]interface{}) mcp.CallToolResult {
	node, vmid, family, res := e.guestTarget(args)
	if res != nil {
		return *res
	}

	data, err := e.api.Delete(ctx, "/nodes/"+node+"/"+family+"/"+vmid)
	if err != nil {
		return errorResult("deleting guest", err,
			"guest is still running (stop it first)",
			"guest ID does not exist on this node",
			"API token lacks VM.Allocate")
	}

	result := taskResult(fmt.Sprintf("Delete %s %s", family, vmid), data)
	result.Content = append(result.Content, mcp.NewTextContent(
		"Warning: deletion is permanent. The guest and its disks cannot be recovered."))
	return result
}

func (e *Executor) handleCloneGuest(ctx context.Context, args map[string]interface{}) mcp.CallToolResult {
	node, vmid, family, res := e.guestTarget(args)
	if res != nil {
		return *res
	}

	var in struct {
		NewID   string `json:"newid"`
		Name    string `json:"name"`
		Target  string `json:"target"`
		Storage string `json:"storage"`
		Full    *bool  `json:"full"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return validationResult(err)
	}
	newID, err := validate.VMID(in.NewID)
	if err != nil {
		return validationResult(err)
	}

	data := url.Values{}
	data.Set("newid", newID)
	if in.Full == nil || *in.Full {
		data.Set("full", "1")
	}
	if in.Name != "" {
		name, err := validate.Identifier("name", in.Name)
		if err != nil {
			return validationResult(err)
		}
		data.Set("name", name)
		if family == familyLXC {
			data.Del("name")
			data.Set("hostname", name)
		}
	}
	if in.Target != "" {
		target, err := validate.NodeName(in.Target)
		if err != nil {
			return validationResult(err)
		}
		data.Set("target", target)
	}
	if in.Storage != "" {
		storage, err := validate.Identifier("storage", in.Storage)
		if err != nil {
			return validationResult(err)
		}
		data.Set("storage", storage)
	}

	resp, err := e.api.Post(ctx, "/nodes/"+node+"/"+family+"/"+vmid+"/clone", data)
	if err != nil {
		return errorResult("cloning guest", err,
			"new guest ID already in use",
			"target storage has insufficient space",
			"linked clones require a template or qcow2/ZFS-backed source")
	}

	return taskResult(fmt.Sprintf("Clone %s %s to %s", family, vmid, newID), resp)
}

func (e *Executor) handleResizeGuest(ctx context.Context, args map[string]interface{}) mcp.CallToolResult {
	node, vmid, family, res := e.guestTarget(args)
	if res != nil {
		return *res
	}

	var in struct {
		Cores  int `json:"cores"`
		Memory int `json:"memory"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return validationResult(err)
	}
	if in.Cores == 0 && in.Memory == 0 {
		return mcp.NewErrorResult("Error: nothing to change: supply cores and/or memory")
	}

	data := url.Values{}
	var changes []string
	if in.Cores > 0 {
		data.Set("cores", fmt.Sprintf("%d", in.Cores))
		changes = append(changes, fmt.Sprintf("cores=%d", in.Cores))
	}
	if in.Memory > 0 {
		data.Set("memory", fmt.Sprintf("%d", in.Memory))
		changes = append(changes, fmt.Sprintf("memory=%dMB", in.Memory))
	}

	if _, err := e.api.Put(ctx, "/nodes/"+node+"/"+family+"/"+vmid+"/config", data); err != nil {
		return errorResult("resizing guest", err,
			"running VMs may need a restart for CPU changes to apply",
			"memory exceeds what the node can provide")
	}

	return mcp.NewTextResult(fmt.Sprintf("Updated %s %s: %s", family, vmid, strings.Join(changes, ", ")))
}

func (e *Executor) handleMigrateGuest(ctx context.Context, args map[string]interface{}) mcp.CallToolResult {
	node, vmid, family, res := e.guestTarget(args)
	if res != nil {
		return *res
	}

	var in struct {
		Target string `json:"target"`
		Online bool   `json:"online"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return validationResult(err)
	}
	target, err := validate.NodeName(in.Target)
	if err != nil {
		return validationResult(err)
	}

	data := url.Values{}
	data.Set("target", target)
	if in.Online {
		data.Set("online", "1")
	}

	resp, err := e.api.Post(ctx, "/nodes/"+node+"/"+family+"/"+vmid+"/migrate", data)
	if err != nil {
		return errorResult("migrating guest", err,
			"target node does not exist or is offline",
			"local disks require shared storage or --online migration support",
			"API token lacks VM.Migrate")
	}

	return taskResult(fmt.Sprintf("Migrate %s %s to %s", family, vmid, target), resp)
}

// guestTarget decodes and validates the (node, vmid, type) triple shared by
// all guest-scoped tools. On failure it returns a non-nil result to hand
// straight back to the caller.
func (e *Executor) guestTarget(args map[string]interface{}) (node, vmid, family string, errRes *mcp.CallToolResult) {
	var in struct {
		Node string `json:"node"`
		VMID string `json:"vmid"`
		Type string `json:"type"`
	}
	if err := decodeArgs(args, &in); err != nil {
		r := validationResult(err)
		return "", "", "", &r
	}
	node, err := validate.NodeName(in.Node)
	if err != nil {
		r := validationResult(err)
		return "", "", "", &r
	}
	vmid, err = validate.VMID(in.VMID)
	if err != nil {
		r := validationResult(err)
		return "", "", "", &r
	}
	family, err = guestFamily(in.Type)
	if err != nil {
		r := validationResult(err)
		return "", "", "", &r
	}
	return node, vmid, family, nil
}
