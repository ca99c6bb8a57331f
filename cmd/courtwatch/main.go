package main

import (
	"courtwatch/cmd/courtwatch/cmd"
)

func main() {
	cmd.Execute()
}
