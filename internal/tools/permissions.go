package tools

import (
	"fmt"

	"github.com/pvemcp/proxmox-mcp/internal/mcp"
)

// permissionDeniedResult is the advisory returned when an elevated tool is
// called without elevated permissions. It is deliberately NOT an error: the
// call completed, it merely produced guidance instead of performing the
// operation, and no request was sent to the Proxmox API.
func permissionDeniedResult(tool string) mcp.CallToolResult {
	text := fmt.Sprintf(`Elevated Permissions Required

The %s tool performs a privileged operation and is disabled while the server
runs in read-only mode. No request was sent to the Proxmox API.

To enable privileged operations, set PROXMOX_ALLOW_ELEVATED=true in the
server environment and restart the server. Make sure the configured API
token has the matching Proxmox privileges before doing so.`, tool)
	return mcp.NewTextResult(text)
}
