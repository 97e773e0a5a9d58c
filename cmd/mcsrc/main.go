package main

import "mcsrc/cmd/mcsrc/cmd"

func main() {
	cmd.Execute()
}
