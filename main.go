// Command tasteos-cook runs the TasteOS cook session engine API.
package main

import (
	"os"

	"tasteos.dev/cli"
	"tasteos.dev/common"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		common.Logger.WithError(err).Error("command failed")
		os.Exit(1)
	}
}
