// # cmd/benchtop/main.go
package main

import (
	"os"

	"benchtop/internal/ui/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
