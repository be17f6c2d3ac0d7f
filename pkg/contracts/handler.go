package contracts

import (
	"context"

	"github.com/julienschmidt/httprouter"
)

// Handler mounts its routes on the application router.
type Handler interface {
	RegisterRoutes(*httprouter.Router)
}

// Dependency is a backend the readiness probe pings.
type Dependency interface {
	Name() string
	Ping(ctx context.Context) error
}

// DependencyFunc adapts a ping function to Dependency.
type DependencyFunc struct {
	DependencyName string
	PingFunc       func(ctx context.Context) error
}

func (d DependencyFunc) Name() string {
	return d.DependencyName
}

func (d DependencyFunc) Ping(ctx context.Context) error {
	return d.PingFunc(ctx)
}
