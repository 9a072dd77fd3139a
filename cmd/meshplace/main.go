// Command meshplace places communicating cores on a 2-D mesh network-on-chip
// with simulated annealing.
package main

import (
	"github.com/tebeka/atexit"
)

func main() {
	err := newRootCmd().Execute()
	atexit.Exit(exitCode(err))
}
