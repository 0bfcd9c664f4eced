package main

import "newsmint/cmd"

func main() {
	cmd.Execute()
}
