package main

import "github.com/agentic-research/procmirror/cmd"

func main() {
	cmd.Execute()
}
