package main

import (
	"os"

	_ "plugind/internal/builtin/project"
	"plugind/internal/cli"
)

func main() { os.Exit(cli.Main()) }
