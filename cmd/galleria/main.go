// cmd/galleria/main.go
//
// Entry point for the galleria service. All real wiring lives in
// internal/app/bootstrap; this just hands the lifecycle hooks to WAFFLE.
package main

import (
	"context"

	"github.com/dalemusser/waffle/app"

	"github.com/galleriahq/galleria/internal/app/bootstrap"
)

func main() {
	app.Run(context.Background(), bootstrap.Hooks)
}
