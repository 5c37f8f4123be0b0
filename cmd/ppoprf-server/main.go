// Command ppoprf-server runs the ppoprf randomness service.
package main

import "github.com/privacybydesign/ppoprf/cmd/ppoprf-server/cmd"

func main() {
	cmd.Execute()
}
