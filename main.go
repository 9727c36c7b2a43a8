package main

import "github.com/votabienperu/backend/cmd"

func main() {
	cmd.Execute()
}
