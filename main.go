package main

import "github.com/zjrosen/autoaccept/cmd"

func main() {
	cmd.Execute()
}
