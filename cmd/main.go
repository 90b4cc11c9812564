package main

import (
	"os"

	"github.com/tcfw/consentchain/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
