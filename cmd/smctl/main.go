package main

import (
	"os"

	"github.com/sysmanager-dev/sysmanager/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
