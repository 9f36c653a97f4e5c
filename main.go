package main

import "github.com/flagsmith-community/flagenv/cmd"

func main() {
	cmd.Execute()
}
