package main

import "github.com/battlesnakeio/chainsnake/cmd/chainsnake/commands"

func main() {
	commands.Execute()
}
