package elector

import (
	"fmt"
	"runtime"
)

// Set through -ldflags "-X github.com/axiomesh/elector.CurrentVersion=..." at build time.
var (
	CurrentVersion = "0.1.0"
	CurrentBranch  = "main"
	CurrentCommit  = "unknown"
	BuildDate      = "unknown"
	GoVersion      = runtime.Version()
	Platform       = fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH)
)
