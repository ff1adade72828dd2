package main

import (
	"github.com/shizukutanaka/hashseek/cmd/hashseek/commands"
)

// Minimal entrypoint that delegates to the Cobra CLI defined in
// cmd/hashseek/commands.
func main() {
	commands.Execute()
}
