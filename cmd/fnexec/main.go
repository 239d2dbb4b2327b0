package main

import (
	"github.com/dennishilgert/fnexec/cmd/fnexec/cmd"
)

func main() {
	cmd.Run()
}
