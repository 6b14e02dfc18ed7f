// Command zapcatalog runs the catalog service: license activation, the
// merchant editing API, share link composition and the public decoder.
package main

import (
	"context"
	"fmt"
	"os"

	"zapcatalog/internal/app"
)

func main() {
	application, err := app.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "zapcatalog: %v\n", err)
		os.Exit(1)
	}

	if err := application.Run(context.Background()); err != nil {
		application.Logger.Error("application exited with error", "error", err.Error())
		os.Exit(1)
	}
}
