// Command gatehouse runs the authentication kernel as a standalone service.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
