package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/pvemcp/proxmox-mcp/internal/mcp"
	"github.com/pvemcp/proxmox-mcp/pkg/proxmox"
)

var netKeyRegex = regexp.MustCompile(`^net(\d+)$`)

func (e *Executor) registerNetworkTools() {
	e.register(mcp.Tool{
		Name:        "proxmox_list_network_interfaces",
		Description: "List the network interfaces configured on a VM or container.",
		InputSchema: guestArgsSchema(nil),
	}, false, e.handleListNetworkInterfaces)

	e.register(mcp.Tool{
		Name:        "proxmox_add_network_interface",
		Description: "Add a network interface to a VM or container. Requires elevated permissions.",
		InputSchema: guestArgsSchema(map[string]mcp.PropertySchema{
			"index":    {Type: "integer", Description: "Interface index (netN)", Default: 0},
			"model":    {Type: "string", Description: "NIC model (qemu only)", Enum: []string{"virtio", "e1000", "rtl8139", "vmxnet3"}, Default: "virtio"},
			"bridge":   {Type: "string", Description: "Bridge to attach to", Default: defaultNetBridge},
			"tag":      {Type: "integer", Description: "VLAN tag"},
			"firewall": {Type: "boolean", Description: "Enable the PVE firewall on this interface"},
		}),
	}, true, e.handleAddNetworkInterface)

	e.register(mcp.Tool{
		Name:        "proxmox_update_network_interface",
		Description: "Update fields of an existing network interface. Only the supplied fields change; everything else in the interface configuration is preserved. Requires elevated permissions.",
		InputSchema: guestArgsSchema(map[string]mcp.PropertySchema{
			"index":    {Type: "integer", Description: "Interface index (netN)", Default: 0},
			"bridge":   {Type: "string", Description: "New bridge"},
			"tag":      {Type: "integer", Description: "New VLAN tag"},
			"firewall": {Type: "boolean", Description: "Enable or disable the PVE firewall"},
			"rate":     {Type: "string", Description: "Rate limit in MB/s"},
		}),
	}, true, e.handleUpdateNetworkInterface)

	e.register(mcp.Tool{
		Name:        "proxmox_remove_network_interface",
		Description: "Remove a network interface from a VM or container. Requires elevated permissions.",
		InputSchema: guestArgsSchema(map[string]mcp.PropertySchema{
			"index": {Type: "integer", Description: "Interface index (netN)", Default: 0},
		}),
	}, true, e.handleRemoveNetworkInterface)
}

// guestConfig fetches the full configuration object of a guest. Update
// operations read this, modify one key and write it back so unspecified
// sub-fields survive.
func (e *Executor) guestConfig(ctx context.Context, node, family, vmid string) (map[string]interface{}, error) {
	data, err := e.api.Get(ctx, "/nodes/"+node+"/"+family+"/"+vmid+"/config")
	if err != nil {
		return nil, err
	}
	var cfg map[string]interface{}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode guest config: %w", err)
	}
	return cfg, nil
}

func configString(cfg map[string]interface{}, key string) (string, bool) {
	v, ok := cfg[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func (e *Executor) handleListNetworkInterfaces(ctx context.Context, args map[string]interface{}) mcp.CallToolResult {
	node, vmid, family, res := e.guestTarget(args)
	if res != nil {
		return *res
	}

	cfg, err := e.guestConfig(ctx, node, family, vmid)
	if err != nil {
		return errorResult("listing network interfaces", err,
			"guest ID does not exist on this node")
	}

	var keys []string
	for key := range cfg {
		if netKeyRegex.MatchString(key) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	if len(keys) == 0 {
		return mcp.NewTextResult(fmt.Sprintf("%s %s has no network interfaces configured.", strings.ToUpper(family), vmid))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Network interfaces of %s %s (%d):\n", family, vmid, len(keys))
	for _, key := range keys {
		value, _ := configString(cfg, key)
		dev := proxmox.ParseDeviceValue(value)
		fmt.Fprintf(&b, "\n%s: %s\n", key, value)
		if bridge, ok := dev.Get("bridge"); ok {
			fmt.Fprintf(&b, "  Bridge: %s\n", bridge)
		}
		if tag, ok := dev.Get("tag"); ok {
			fmt.Fprintf(&b, "  VLAN: %s\n", tag)
		}
		if fw, ok := dev.Get("firewall"); ok {
			fmt.Fprintf(&b, "  Firewall: %s\n", fw)
		}
	}
	return mcp.NewTextResult(b.String())
}

func (e *Executor) handleAddNetworkInterface(ctx context.Context, args map[string]interface{}) mcp.CallToolResult {
	node, vmid, family, res := e.guestTarget(args)
	if res != nil {
		return *res
	}

	var in struct {
		Index    int    `json:"index"`
		Model    string `json:"model"`
		Bridge   string `json:"bridge"`
		Tag      int    `json:"tag"`
		Firewall *bool  `json:"firewall"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return validationResult(err)
	}
	if in.Index < 0 || in.Index > 31 {
		return mcp.NewErrorResult("Error: invalid index: must be between 0 and 31")
	}
	if in.Bridge == "" {
		in.Bridge = defaultNetBridge
	}

	key := fmt.Sprintf("net%d", in.Index)

	var value string
	if family == familyQemu {
		model := in.Model
		switch model {
		case "":
			model = defaultNetModel
		case "virtio", "e1000", "rtl8139", "vmxnet3":
		default:
			return mcp.NewErrorResult(fmt.Sprintf("Error: invalid model %q", model))
		}
		dev := proxmox.ParseDeviceValue(model)
		dev.Set("bridge", in.Bridge)
		if in.Tag > 0 {
			dev.Set("tag", fmt.Sprintf("%d", in.Tag))
		}
		if in.Firewall != nil && *in.Firewall {
			dev.Set("firewall", "1")
		}
		value = dev.String()
	} else {
		dev := proxmox.ParseDeviceValue(fmt.Sprintf("name=eth%d", in.Index))
		dev.Set("bridge", in.Bridge)
		dev.Set("ip", "dhcp")
		if in.Tag > 0 {
			dev.Set("tag", fmt.Sprintf("%d", in.Tag))
		}
		if in.Firewall != nil && *in.Firewall {
			dev.Set("firewall", "1")
		}
		value = dev.String()
	}

	data := url.Values{}
	data.Set(key, value)

	if _, err := e.api.Put(ctx, "/nodes/"+node+"/"+family+"/"+vmid+"/config", data); err != nil {
		return errorResult("adding network interface", err,
			"interface index already in use",
			"bridge does not exist on this node")
	}

	return mcp.NewTextResult(fmt.Sprintf("Added %s to %s %s: %s", key, family, vmid, value))
}

func (e *Executor) handleUpdateNetworkInterface(ctx context.Context, args map[string]interface{}) mcp.CallToolResult {
	node, vmid, family, res := e.guestTarget(args)
	if res != nil {
		return *res
	}

	var in struct {
		Index    int    `json:"index"`
		Bridge   string `json:"bridge"`
		Tag      int    `json:"tag"`
		Firewall *bool  `json:"firewall"`
		Rate     string `json:"rate"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return validationResult(err)
	}
	if in.Index < 0 || in.Index > 31 {
		return mcp.NewErrorResult("Error: invalid index: must be between 0 and 31")
	}
	key := fmt.Sprintf("net%d", in.Index)

	cfg, err := e.guestConfig(ctx, node, family, vmid)
	if err != nil {
		return errorResult("updating network interface", err,
			"guest ID does not exist on this node")
	}
	current, ok := configString(cfg, key)
	if !ok {
		return mcp.NewErrorResult(fmt.Sprintf("Error: %s %s has no interface %s", family, vmid, key))
	}

	// Read-modify-write: overlay only the caller-supplied fields onto the
	// existing value so unspecified sub-fields are preserved.
	dev := proxmox.ParseDeviceValue(current)
	var changes []string
	if in.Bridge != "" {
		dev.Set("bridge", in.Bridge)
		changes = append(changes, "bridge="+in.Bridge)
	}
	if in.Tag > 0 {
		dev.Set("tag", fmt.Sprintf("%d", in.Tag))
		changes = append(changes, fmt.Sprintf("tag=%d", in.Tag))
	}
	if in.Firewall != nil {
		fw := "0"
		if *in.Firewall {
			fw = "1"
		}
		dev.Set("firewall", fw)
		changes = append(changes, "firewall="+fw)
	}
	if in.Rate != "" {
		dev.Set("rate", in.Rate)
		changes = append(changes, "rate="+in.Rate)
	}
	if len(changes) == 0 {
		return mcp.NewErrorResult("Error: nothing to change: supply bridge, tag, firewall or rate")
	}

	data := url.Values{}
	data.Set(key, dev.String())

	if _, err := e.api.Put(ctx, "/nodes/"+node+"/"+family+"/"+vmid+"/config", data); err != nil {
		return errorResult("updating network interface", err,
			"bridge does not exist on this node")
	}

	return mcp.NewTextResult(fmt.Sprintf("Updated %s on %s %s (%s), now: %s",
		key, family, vmid, strings.Join(changes, ", "), dev.String()))
}

func (e *Executor) handleRemoveNetworkInterface(ctx context.Context, args map[string]interface{}) mcp.CallToolResult {
	node, vmid, family, res := e.guestTarget(args)
	if res != nil {
		return *res
	}

	var in struct {
		Index int `json:"index"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return validationResult(err)
	}
	if in.Index < 0 || in.Index > 31 {
		return mcp.NewErrorResult("Error: invalid index: must be between 0 and 31")
	}
	key := fmt.Sprintf("net%d", in.Index)

	data := url.Values{}
	data.Set("delete", key)

	if _, err := e.api.Put(ctx, "/nodes/"+node+"/"+family+"/"+vmid+"/config", data); err != nil {
		return errorResult("removing network interface", err,
			"interface does not exist",
			"guest ID does not exist on this node")
	}

	return mcp.NewTextResult(fmt.Sprintf("Removed %s from %s %s.", key, family, vmid))
}
