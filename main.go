package main

import (
	"os"

	"github.com/Wyatt-Stanke/ctf/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
