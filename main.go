package main

import (
	"github.com/minnowstack/minnow/cmd"
)

func main() {
	cmd.Execute()
}
