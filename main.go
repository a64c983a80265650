package main

import "github.com/keymux/keymux/cmd"

func main() {
	cmd.Execute()
}
