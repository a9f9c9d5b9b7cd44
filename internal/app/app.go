// Package app provides the main application structure and lifecycle management.
package app

import (
	"context"

	"go.uber.org/fx"
)

// Application represents the main application with its lifecycle.
type Application struct {
	app *fx.App
}

// New creates a new Application with the provided modules and options.
// Modules register their own lifecycle hooks; the application only owns the
// Fx container.
func New(modules ...fx.Option) *Application {
	return &Application{
		app: fx.New(modules...),
	}
}

// Run starts the application and blocks until it's stopped.
func (a *Application) Run() {
	a.app.Run()
}

// Stop gracefully stops the application.
func (a *Application) Stop(ctx context.Context) error {
	return a.app.Stop(ctx)
}
