package main

import "github.com/frontendtony/dualexe/cmd"

func main() {
	cmd.Execute()
}
