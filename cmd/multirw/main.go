package main

import (
	"errors"
	"os"

	"github.com/utkarsh5026/multirw/cmd/multirw/commands"
	"github.com/utkarsh5026/multirw/internal/logger"
	"github.com/utkarsh5026/multirw/stress"
)

// Build-time variables injected via ldflags
var (
	version = "dev"
	commit  = "none"
)

func main() {
	commands.Version = version
	commands.Commit = commit

	if err := commands.Execute(); err != nil {
		logFailure(err)
		os.Exit(1)
	}
}

func logFailure(err error) {
	var terr *stress.TransferError
	if errors.As(err, &terr) {
		logger.Error("transfer failed",
			"op", terr.Op,
			"fd", terr.FD,
			"offset", terr.Offset,
			"size", terr.Size,
			"result", terr.Result,
			"error", err)
		return
	}

	var operr *stress.OpError
	if errors.As(err, &operr) {
		logger.Error("file operation failed", "op", operr.Op, "path", operr.Path, "error", err)
		return
	}
	logger.Error("multirw failed", "error", err)
}
