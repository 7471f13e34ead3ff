// Package main implements snapctl, the one-off companion CLI to the
// snapshot service. It captures URLs and scans sitemaps without running the
// HTTP server.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
