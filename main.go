package main

import "canvasetl/cmd"

func main() {
	cmd.Execute()
}
