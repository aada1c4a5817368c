//go:build rp2040 || rp2350

package main

import (
	"context"
	"time"
)

func bootDelay() { time.Sleep(2 * time.Second) }

// No signals on the MCU; the node runs until power is removed.
func notifyContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithCancel(parent)
}

// halt parks forever so the last log lines stay on the UART.
func halt(int) {
	for {
		time.Sleep(time.Hour)
	}
}
