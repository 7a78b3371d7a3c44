package proxmox

import "strings"

// DeviceValue is an ordered key=value view of a Proxmox composite device
// string such as "virtio=AA:BB:CC:DD:EE:FF,bridge=vmbr0,tag=50" or
// "local-lvm:vm-100-disk-0,size=32G". Bare segments without '=' are kept as
// valueless flags. Order is preserved so a parse/serialize round trip of an
// untouched value is the identity.
type DeviceValue struct {
	keys []string
	vals map[string]string
	flag map[string]bool
}

// ParseDeviceValue parses a composite device string.
func ParseDeviceValue(s string) *DeviceValue {
	d := &DeviceValue{
		vals: make(map[string]string),
		flag: make(map[string]bool),
	}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if key, val, found := strings.Cut(part, "="); found {
			d.Set(key, val)
		} else {
			if _, exists := d.vals[part]; !exists {
				d.keys = append(d.keys, part)
			}
			d.vals[part] = ""
			d.flag[part] = true
		}
	}
	return d
}

// Get returns the value for key and whether the key is present.
func (d *DeviceValue) Get(key string) (string, bool) {
	v, ok := d.vals[key]
	return v, ok
}

// Set assigns a value for key, preserving the position of existing keys and
// appending new ones.
func (d *DeviceValue) Set(key, value string) {
	if _, exists := d.vals[key]; !exists {
		d.keys = append(d.keys, key)
	}
	d.vals[key] = value
	d.flag[key] = false
}

// Keys returns the keys in serialization order.
func (d *DeviceValue) Keys() []string {
	return append([]string(nil), d.keys...)
}

// String serializes the value back into PVE's comma-separated form.
func (d *DeviceValue) String() string {
	parts := make([]string, 0, len(d.keys))
	for _, key := range d.keys {
		if d.flag[key] {
			parts = append(parts, key)
			continue
		}
		parts = append(parts, key+"="+d.vals[key])
	}
	return strings.Join(parts, ",")
}
