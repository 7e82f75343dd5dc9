// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

//go:build !unix

package main

import "os"

var pauseSignals []os.Signal
