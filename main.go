package main

import "debateai/cmd"

func main() {
	cmd.Execute()
}
