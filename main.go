package main

import "github.com/tanq16/vidq/cmd"

func main() {
	cmd.Execute()
}
