// Copyright 2026 Optic Labs
// Licensed under the EUPL-1.2

package main

import (
	"context"
	"log"
	"os"

	"github.com/opticlabs/console/internal/config"
	"github.com/opticlabs/console/internal/server"
	"github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:   "console",
		Usage:  "Start the account API server",
		Flags:  config.Flags(),
		Action: server.Run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
