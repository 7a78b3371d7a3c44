package proxmox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDeviceValueRoundTrip(t *testing.T) {
	// An untouched parse/serialize cycle must reproduce the input exactly,
	// including segment order.
	inputs := []string{
		"virtio=AA:BB:CC:DD:EE:FF,bridge=vmbr0,tag=50",
		"local-lvm:vm-100-disk-0,size=32G",
		"name=eth0,bridge=vmbr0,ip=dhcp,firewall=1",
		"virtio,bridge=vmbr0",
		"rootfs",
	}
	for _, in := range inputs {
		dev := ParseDeviceValue(in)
		assert.Equal(t, in, dev.String(), "round trip of %q", in)
	}
}

func TestDeviceValueSetPreservesUnspecifiedKeys(t *testing.T) {
	dev := ParseDeviceValue("virtio=AA:BB:CC:DD:EE:FF,bridge=vmbr0,tag=50,firewall=1")
	dev.Set("bridge", "vmbr1")

	assert.Equal(t, "virtio=AA:BB:CC:DD:EE:FF,bridge=vmbr1,tag=50,firewall=1", dev.String())

	mac, ok := dev.Get("virtio")
	require.True(t, ok)
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", mac)
}

func TestDeviceValueSetAppendsNewKeys(t *testing.T) {
	dev := ParseDeviceValue("virtio,bridge=vmbr0")
	dev.Set("tag", "42")

	assert.Equal(t, "virtio,bridge=vmbr0,tag=42", dev.String())
	assert.Equal(t, []string{"virtio", "bridge", "tag"}, dev.Keys())
}

func TestDeviceValueFlagPromotion(t *testing.T) {
	// A bare flag assigned a value serializes as key=value afterwards.
	dev := ParseDeviceValue("virtio,bridge=vmbr0")
	dev.Set("virtio", "AA:BB:CC:DD:EE:FF")

	assert.Equal(t, "virtio=AA:BB:CC:DD:EE:FF,bridge=vmbr0", dev.String())
}

func TestDeviceValueGetMissing(t *testing.T) {
	dev := ParseDeviceValue("bridge=vmbr0")
	_, ok := dev.Get("tag")
	assert.False(t, ok)
}
