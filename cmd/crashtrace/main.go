// Command crashtrace inspects and manages crash reports.
package main

import (
	"os"
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := newRootCmd().Execute(); err != nil {
		return 1
	}

	return 0
}
