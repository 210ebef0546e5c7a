// Package main is the videodetect command itself.
package main

import (
	"fmt"
	"os"

	"go.viam.com/videodetect/cli"
)

func main() {
	if err := cli.NewApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
