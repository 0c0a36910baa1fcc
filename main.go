package main

import "github.com/kozaktomas/face-catalog/cmd"

func main() {
	cmd.Execute()
}
