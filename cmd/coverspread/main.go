// Command coverspread builds book cover spreads from PDF exports.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rishabh00712/sheet-base-pdf-cover-arranger/internal/cli"
)

func main() {
	app := cli.New()

	if err := app.Execute(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
