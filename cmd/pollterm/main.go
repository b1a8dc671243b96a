package main

import (
	"context"
	"os"

	"poll-terminal/internal/cli"
)

func main() {
	os.Exit(cli.Execute(context.Background()))
}
