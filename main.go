// The main package for the evidence-resolver executable.
package main

import "github.com/ethoscan/evidence-resolver/cmd"

func main() {
	cmd.Execute()
}
