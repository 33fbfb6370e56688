package main

import "vipsscaler/cmd"

func main() {
	cmd.Execute()
}
