//go:build !linux || baremetal

package tinygoble

import "tinygo.org/x/bluetooth"

// Adapter returns the default adapter; name is ignored on this platform.
func Adapter(string) *bluetooth.Adapter { return bluetooth.DefaultAdapter }
