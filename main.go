package main

import "mod-registry/cmd"

func main() {
	cmd.Execute()
}
