package main

import (
	"collabtext/cmd"
)

func main() {
	cmd.Execute()
}
