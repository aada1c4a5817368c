//go:build !rp2040 && !rp2350

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func bootDelay() {}

func notifyContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func halt(code int) { os.Exit(code) }
