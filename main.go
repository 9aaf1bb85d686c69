package main

import "Melodix/cmd"

func main() {
	cmd.Execute()
}
