// Command pebble-social manages and serves the social schema.
package main

import "github.com/marshallshelly/pebble-social/cmd/pebble-social/commands"

func main() {
	commands.Execute()
}
