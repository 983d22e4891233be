package main

import "github.com/lineupwatch/lineupwatch/cmd"

func main() {
	cmd.Execute()
}
