package validate

import (
	"fmt"
	"regexp"
)

var (
	identifierRegex = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,128}$`)
	volumeIDRegex   = regexp.MustCompile(`^[A-Za-z0-9_.:/@-]{1,256}$`)
	upidRegex       = regexp.MustCompile(`^UPID:[A-Za-z0-9_.:@-]+$`)
	diskSlotRegex   = regexp.MustCompile(`^(ide|sata|scsi|virtio|efidisk|rootfs|mp)\d{0,2}$`)
	sizeTokenRegex  = regexp.MustCompile(`^\+?\d+(\.\d+)?[KMGT]?$`)
)

// Identifier checks a generic PVE identifier (storage IDs, snapshot names,
// pool names). The field name is reported in the error.
func Identifier(field, s string) (string, error) {
	if s == "" {
		return "", &Error{Field: field, Reason: "must not be empty"}
	}
	if !identifierRegex.MatchString(s) {
		return "", &Error{Field: field, Reason: "must contain only letters, digits, dots, underscores and hyphens, at most 128 characters"}
	}
	return s, nil
}

// VolumeID checks a storage volume identifier such as
// "local:backup/vzdump-qemu-100-2024_01_01-00_00_00.vma.zst".
func VolumeID(s string) (string, error) {
	if s == "" {
		return "", &Error{Field: "volid", Reason: "must not be empty"}
	}
	if !volumeIDRegex.MatchString(s) {
		return "", &Error{Field: "volid", Reason: "contains characters not allowed in a volume identifier"}
	}
	return s, nil
}

// UPID checks a Proxmox task identifier.
func UPID(s string) (string, error) {
	if !upidRegex.MatchString(s) {
		return "", &Error{Field: "upid", Reason: `must look like "UPID:node:...."`}
	}
	return s, nil
}

// DiskSlot checks a guest disk/mountpoint key such as "scsi0", "virtio2" or
// "mp1".
func DiskSlot(s string) (string, error) {
	if !diskSlotRegex.MatchString(s) {
		return "", &Error{Field: "disk", Reason: fmt.Sprintf("%q is not a valid disk slot (expected e.g. scsi0, virtio1, mp0)", s)}
	}
	return s, nil
}

// SizeToken checks a size value like "50G" or a relative delta like "+10G".
// The token is passed through to the PVE API uninterpreted; the remote side
// performs the arithmetic for relative values.
func SizeToken(s string) (string, error) {
	if !sizeTokenRegex.MatchString(s) {
		return "", &Error{Field: "size", Reason: `must be an absolute size like "50G" or a relative delta like "+10G"`}
	}
	return s, nil
}
