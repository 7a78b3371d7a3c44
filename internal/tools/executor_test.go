package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// apiCall records one request the executor made against the fake transport.
type apiCall struct {
	method string
	path   string
	data   url.Values
}

// fakeAPI is a recording ProxmoxAPI with canned per-path responses.
type fakeAPI struct {
	calls     []apiCall
	responses map[string]json.RawMessage
	errors    map[string]error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		responses: make(map[string]json.RawMessage),
		errors:    make(map[string]error),
	}
}

func (f *fakeAPI) respond(path, body string) {
	f.responses[path] = json.RawMessage(body)
}

func (f *fakeAPI) do(method, path string, data url.Values) (json.RawMessage, error) {
	f.calls = append(f.calls, apiCall{method: method, path: path, data: data})
	if err, ok := f.errors[path]; ok {
		return nil, err
	}
	if body, ok := f.responses[path]; ok {
		return body, nil
	}
	return json.RawMessage(`null`), nil
}

func (f *fakeAPI) Get(ctx context.Context, path string) (json.RawMessage, error) {
	return f.do("GET", path, nil)
}

func (f *fakeAPI) Post(ctx context.Context, path string, data url.Values) (json.RawMessage, error) {
	return f.do("POST", path, data)
}

func (f *fakeAPI) Put(ctx context.Context, path string, data url.Values) (json.RawMessage, error) {
	return f.do("PUT", path, data)
}

func (f *fakeAPI) Delete(ctx context.Context, path string) (json.RawMessage, error) {
	return f.do("DELETE", path, nil)
}

func newTestExecutor(t *testing.T, allowElevated bool) (*Executor, *fakeAPI) {
	t.Helper()
	api := newFakeAPI()
	return NewExecutor(ExecutorConfig{API: api, AllowElevated: allowElevated}), api
}

func callTool(t *testing.T, e *Executor, name string, args map[string]interface{}) (string, bool) {
	t.Helper()
	result, err := e.ExecuteTool(context.Background(), name, args)
	require.NoError(t, err, "ExecuteTool must never surface a protocol-level error")
	require.NotEmpty(t, result.Content)

	text := ""
	for _, c := range result.Content {
		text += c.Text
	}
	return text, result.IsError
}

func TestUnknownTool(t *testing.T) {
	e, api := newTestExecutor(t, true)

	text, isError := callTool(t, e, "proxmox_no_such_tool", nil)
	assert.True(t, isError)
	assert.Contains(t, text, "unknown tool")
	assert.Empty(t, api.calls)
}

func TestPermissionGateBlocksElevatedTools(t *testing.T) {
	e, api := newTestExecutor(t, false)

	text, isError := callTool(t, e, "proxmox_delete_vm", map[string]interface{}{
		"node": "pve1",
		"vmid": "100",
	})

	// The advisory is not an error: the call completed, it just did not
	// perform the operation.
	assert.False(t, isError)
	assert.Contains(t, text, "Elevated Permissions")
	assert.Contains(t, text, "proxmox_delete_vm")
	assert.Contains(t, text, "PROXMOX_ALLOW_ELEVATED")
	assert.Empty(t, api.calls, "a denied call must not reach the Proxmox API")
}

func TestPermissionGateCoversAllMutatingTools(t *testing.T) {
	e, api := newTestExecutor(t, false)

	for _, name := range []string{
		"proxmox_start_vm", "proxmox_stop_vm", "proxmox_delete_vm",
		"proxmox_clone_vm", "proxmox_create_vm", "proxmox_create_container",
		"proxmox_create_snapshot", "proxmox_rollback_snapshot",
		"proxmox_create_backup", "proxmox_delete_backup",
		"proxmox_add_disk", "proxmox_resize_disk",
		"proxmox_add_network_interface", "proxmox_update_network_interface",
		"proxmox_execute_vm_command", "proxmox_get_node_status",
	} {
		text, isError := callTool(t, e, name, map[string]interface{}{})
		assert.False(t, isError, "%s denial should not be an error", name)
		assert.Contains(t, text, "Elevated Permissions", "%s should be gated", name)
	}
	assert.Empty(t, api.calls)
}

func TestReadOnlyToolsWorkWithoutElevation(t *testing.T) {
	e, api := newTestExecutor(t, false)
	api.respond("/nodes", `[{"node": "pve1", "status": "online", "uptime": 3600, "cpu": 0.25, "maxcpu": 8, "mem": 1073741824, "maxmem": 4294967296}]`)

	text, isError := callTool(t, e, "proxmox_get_nodes", nil)
	assert.False(t, isError)
	assert.Contains(t, text, "pve1")
	assert.Contains(t, text, "online")
	require.Len(t, api.calls, 1)
	assert.Equal(t, "/nodes", api.calls[0].path)
}

func TestListGuestsFansOutOverNodes(t *testing.T) {
	e, api := newTestExecutor(t, false)
	api.respond("/nodes", `[{"node": "pve1"}, {"node": "pve2"}, {"node": "pve3"}]`)
	api.respond("/nodes/pve1/qemu", `[{"vmid": 100, "name": "web", "status": "running", "cpu": 0.1, "mem": 1024, "maxmem": 2048, "uptime": 60}]`)
	api.respond("/nodes/pve2/qemu", `[]`)
	api.respond("/nodes/pve3/qemu", `[{"vmid": 200, "name": "db", "status": "stopped"}]`)

	text, isError := callTool(t, e, "proxmox_get_vms", nil)
	assert.False(t, isError)
	assert.Contains(t, text, "web")
	assert.Contains(t, text, "db")
	assert.Contains(t, text, "2 total")

	// One node-list call plus one call per node, in cluster order.
	require.Len(t, api.calls, 4)
	assert.Equal(t, "/nodes", api.calls[0].path)
	assert.Equal(t, "/nodes/pve1/qemu", api.calls[1].path)
	assert.Equal(t, "/nodes/pve2/qemu", api.calls[2].path)
	assert.Equal(t, "/nodes/pve3/qemu", api.calls[3].path)
}

func TestListGuestsAbortsOnNodeFailure(t *testing.T) {
	e, api := newTestExecutor(t, false)
	api.respond("/nodes", `[{"node": "pve1"}, {"node": "pve2"}]`)
	api.errors["/nodes/pve1/qemu"] = fmt.Errorf("connection refused")

	text, isError := callTool(t, e, "proxmox_get_vms", nil)
	assert.True(t, isError)
	assert.Contains(t, text, "pve1")

	// The failing node stops the fan-out; pve2 is never queried.
	require.Len(t, api.calls, 2)
}

func TestListGuestsNodeFilterSkipsFanOut(t *testing.T) {
	e, api := newTestExecutor(t, false)
	api.respond("/nodes/pve2/lxc", `[{"vmid": 300, "name": "ct1", "status": "running"}]`)

	text, isError := callTool(t, e, "proxmox_get_containers", map[string]interface{}{"node": "pve2"})
	assert.False(t, isError)
	assert.Contains(t, text, "ct1")

	require.Len(t, api.calls, 1)
	assert.Equal(t, "/nodes/pve2/lxc", api.calls[0].path)
}

func TestValidationFailureBeforeTransport(t *testing.T) {
	e, api := newTestExecutor(t, true)

	text, isError := callTool(t, e, "proxmox_get_vm_status", map[string]interface{}{
		"node": "pve1; rm -rf /",
		"vmid": "100",
	})
	assert.True(t, isError)
	assert.Contains(t, text, "invalid node")
	assert.Empty(t, api.calls, "validation failures must not reach the API")

	text, isError = callTool(t, e, "proxmox_get_vm_status", map[string]interface{}{
		"node": "pve1",
		"vmid": "99",
	})
	assert.True(t, isError)
	assert.Contains(t, text, "invalid vmid")
	assert.Empty(t, api.calls)
}

func TestVMIDCanonicalizedInPath(t *testing.T) {
	e, api := newTestExecutor(t, false)
	api.respond("/nodes/pve1/qemu/100/status/current", `{"status": "running", "name": "web", "cpus": 2, "uptime": 120}`)

	_, isError := callTool(t, e, "proxmox_get_vm_status", map[string]interface{}{
		"node": "pve1",
		"vmid": "0100",
	})
	assert.False(t, isError)
	require.Len(t, api.calls, 1)
	assert.Equal(t, "/nodes/pve1/qemu/100/status/current", api.calls[0].path)
}

func TestLifecycleToolReturnsTaskHandle(t *testing.T) {
	e, api := newTestExecutor(t, true)
	api.respond("/nodes/pve1/qemu/100/status/start", `"UPID:pve1:0001A2B3:04C5D6E7:65F00000:qmstart:100:api@pam!mcp:"`)

	text, isError := callTool(t, e, "proxmox_start_vm", map[string]interface{}{
		"node": "pve1",
		"vmid": "100",
	})
	assert.False(t, isError)
	assert.Contains(t, text, "UPID:pve1:")
	assert.Contains(t, text, "proxmox_get_task_status")

	require.Len(t, api.calls, 1)
	assert.Equal(t, "POST", api.calls[0].method)
}

func TestFamilyDiscriminatorSelectsPath(t *testing.T) {
	e, api := newTestExecutor(t, true)

	_, _ = callTool(t, e, "proxmox_start_vm", map[string]interface{}{
		"node": "pve1",
		"vmid": "300",
		"type": "lxc",
	})
	require.Len(t, api.calls, 1)
	assert.Equal(t, "/nodes/pve1/lxc/300/status/start", api.calls[0].path)

	text, isError := callTool(t, e, "proxmox_start_vm", map[string]interface{}{
		"node": "pve1",
		"vmid": "300",
		"type": "openvz",
	})
	assert.True(t, isError)
	assert.Contains(t, text, "invalid type")
	assert.Len(t, api.calls, 1, "an invalid family must not produce a request")
}

func TestExecuteVMCommandRejectsMetacharacters(t *testing.T) {
	e, api := newTestExecutor(t, true)

	text, isError := callTool(t, e, "proxmox_execute_vm_command", map[string]interface{}{
		"node":    "pve1",
		"vmid":    "100",
		"command": "uptime; rm -rf /",
	})
	assert.True(t, isError)
	assert.Contains(t, text, "invalid command")
	assert.Empty(t, api.calls)
}

func TestExecuteVMCommandSubmitsViaAgent(t *testing.T) {
	e, api := newTestExecutor(t, true)
	api.respond("/nodes/pve1/qemu/100/agent/exec", `{"pid": 12345}`)

	text, isError := callTool(t, e, "proxmox_execute_vm_command", map[string]interface{}{
		"node":    "pve1",
		"vmid":    "100",
		"command": "uptime",
	})
	assert.False(t, isError)
	assert.Contains(t, text, "12345")

	require.Len(t, api.calls, 1)
	assert.Equal(t, "uptime", api.calls[0].data.Get("command"))
}

func TestListToolsStableOrder(t *testing.T) {
	e, _ := newTestExecutor(t, false)

	first := e.ListTools()
	second := e.ListTools()
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Name, second[i].Name)
	}

	names := make(map[string]bool)
	for _, tool := range first {
		assert.False(t, names[tool.Name], "duplicate tool %s", tool.Name)
		names[tool.Name] = true
		assert.NotEmpty(t, tool.Description)
		assert.Equal(t, "object", tool.InputSchema.Type)
	}
	assert.True(t, names["proxmox_get_nodes"])
	assert.True(t, names["proxmox_restore_backup"])
	assert.True(t, names["proxmox_remove_mountpoint"])
}
