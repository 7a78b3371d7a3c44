package tools

import (
	"encoding/json"
	"fmt"
)

// Guest family discriminators. Most guest operations exist for both families
// with near-identical request shapes; the family selects the path segment.
const (
	familyQemu = "qemu"
	familyLXC  = "lxc"
)

// decodeArgs converts the loosely-typed argument map into a typed per-tool
// argument struct. Schemas are advisory for the caller; this is where inputs
// actually get shaped before validation.
func decodeArgs(args map[string]interface{}, out interface{}) error {
	raw, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// guestFamily validates the caller-supplied family discriminator, defaulting
// to qemu.
func guestFamily(s string) (string, error) {
	switch s {
	case "", familyQemu:
		return familyQemu, nil
	case familyLXC:
		return familyLXC, nil
	default:
		return "", fmt.Errorf("invalid type %q: must be %q or %q", s, familyQemu, familyLXC)
	}
}
