package main

import (
	"context"
	"os"

	beecmd "github.com/rzbill/bee/internal/cmd/bee"
)

func main() {
	os.Exit(beecmd.Execute(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}
