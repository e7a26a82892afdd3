// Command shopkeeper manages NPC shops from the command line.
package main

import "github.com/mesh-intelligence/shopkeeper/internal/cli"

func main() {
	cli.Execute()
}
