// Package validate constrains caller-supplied identifiers before they are
// interpolated into Proxmox API paths or payloads. It is the sole
// injection-prevention boundary: every handler routes node names, VMIDs and
// shell commands through here first.
package validate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	// VMIDMin and VMIDMax bound the PVE guest identifier range.
	VMIDMin = 100
	VMIDMax = 999999999

	maxNodeNameLen = 64
	maxCommandLen  = 1000
)

// nodeNameRegex validates node names (alphanumeric, underscores, hyphens).
var nodeNameRegex = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// commandDeniedChars are shell metacharacters rejected in guest commands.
const commandDeniedChars = ";&|`$(){}[]<>\\"

// Error describes a failed validation with the offending field and the
// constraint that was violated.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NodeName checks that s is a valid PVE node name and returns it unchanged.
func NodeName(s string) (string, error) {
	if s == "" {
		return "", &Error{Field: "node", Reason: "must not be empty"}
	}
	if !nodeNameRegex.MatchString(s) {
		return "", &Error{
			Field:  "node",
			Reason: fmt.Sprintf("must contain only letters, digits, underscores and hyphens, at most %d characters", maxNodeNameLen),
		}
	}
	return s, nil
}

// VMID parses s as a guest identifier and returns its canonical decimal form.
// Leading zeros and surrounding whitespace are discarded.
func VMID(s string) (string, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return "", &Error{Field: "vmid", Reason: "must be a base-10 integer"}
	}
	if n < VMIDMin || n > VMIDMax {
		return "", &Error{
			Field:  "vmid",
			Reason: fmt.Sprintf("must be between %d and %d", VMIDMin, VMIDMax),
		}
	}
	return strconv.Itoa(n), nil
}

// ShellCommand checks that s is safe to pass to a guest agent: at most 1000
// characters and free of shell metacharacters. Returns s unchanged.
func ShellCommand(s string) (string, error) {
	if s == "" {
		return "", &Error{Field: "command", Reason: "must not be empty"}
	}
	if len(s) > maxCommandLen {
		return "", &Error{
			Field:  "command",
			Reason: fmt.Sprintf("must be at most %d characters", maxCommandLen),
		}
	}
	if strings.ContainsAny(s, commandDeniedChars) {
		return "", &Error{
			Field:  "command",
			Reason: fmt.Sprintf("must not contain any of %q", commandDeniedChars),
		}
	}
	return s, nil
}
