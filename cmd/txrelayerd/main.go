package main

import (
	"fmt"
	"os"

	"github.com/tokenize-x/tx-relayer/cmd/txrelayerd/cmd"
)

func main() {
	rootCmd := cmd.NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		//nolint:errcheck // we are already exiting the app so we don't check error.
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
