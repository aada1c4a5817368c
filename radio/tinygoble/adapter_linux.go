//go:build linux && !baremetal

package tinygoble

import "tinygo.org/x/bluetooth"

// Adapter returns the BlueZ adapter with the given name ("hci0" if empty).
func Adapter(name string) *bluetooth.Adapter {
	if name == "" {
		name = "hci0"
	}
	return bluetooth.NewAdapter(name)
}
