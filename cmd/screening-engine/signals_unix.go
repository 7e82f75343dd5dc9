// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

//go:build unix

package main

import (
	"os"
	"syscall"
)

// pauseSignals toggle pause of a running screen.
var pauseSignals = []os.Signal{syscall.SIGUSR1}
