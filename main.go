package main

import "github.com/hscache-io/hscache/cmd"

func main() {
	cmd.Execute()
}
