package tools

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pvemcp/proxmox-mcp/internal/mcp"
)

// errorResult renders a failed operation as in-band error text, optionally
// listing likely causes for this specific operation.
func errorResult(op string, err error, causes ...string) mcp.CallToolResult {
	var b strings.Builder
	fmt.Fprintf(&b, "Error: %s failed: %v", op, err)
	if len(causes) > 0 {
		b.WriteString("\n\nCommon causes:")
		for _, cause := range causes {
			b.WriteString("\n- ")
			b.WriteString(cause)
		}
	}
	return mcp.NewErrorResult(b.String())
}

// validationResult renders a validation failure.
func validationResult(err error) mcp.CallToolResult {
	return mcp.NewErrorResult("Error: " + err.Error())
}

// taskResult renders an accepted asynchronous operation. The UPID is an
// opaque job handle; acceptance does not mean completion and this server
// never polls the task.
func taskResult(action string, data json.RawMessage) mcp.CallToolResult {
	upid := decodeUPID(data)
	if upid == "" {
		return mcp.NewTextResult(fmt.Sprintf("%s: request accepted.", action))
	}
	return mcp.NewTextResult(fmt.Sprintf("%s: task %s started. Use proxmox_get_task_status to check progress.", action, upid))
}

// decodeUPID extracts the task identifier from a response payload, which is
// a bare JSON string for status-change endpoints.
func decodeUPID(data json.RawMessage) string {
	var upid string
	if err := json.Unmarshal(data, &upid); err != nil {
		return ""
	}
	return upid
}

func formatBytes(b uint64) string {
	switch {
	case b >= 1<<40:
		return fmt.Sprintf("%.2f TB", float64(b)/(1<<40))
	case b >= 1<<30:
		return fmt.Sprintf("%.2f GB", float64(b)/(1<<30))
	case b >= 1<<20:
		return fmt.Sprintf("%.2f MB", float64(b)/(1<<20))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

func formatUptime(seconds int64) string {
	if seconds <= 0 {
		return "-"
	}
	d := time.Duration(seconds) * time.Second
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}

func formatPercent(used, total uint64) string {
	if total == 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", float64(used)/float64(total)*100)
}

func formatUnixTime(ts int64) string {
	if ts <= 0 {
		return "-"
	}
	return time.Unix(ts, 0).UTC().Format(time.RFC3339)
}
