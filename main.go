package main

import "github.com/team-kosa-skynet/morningstar/cmd/morningstar/commands"

func main() {
	commands.Execute()
}
