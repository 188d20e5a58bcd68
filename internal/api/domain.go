package api

import (
	"github.com/JaimeStill/fable/internal/books"
	"github.com/JaimeStill/fable/internal/props"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Books books.System
	Props props.System
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(runtime *Runtime) *Domain {
	propsSystem := props.New(
		runtime.Database.Connection(),
		runtime.Storage,
		runtime.Logger,
		runtime.Pagination,
	)

	store := books.NewStore(
		runtime.Database.Connection(),
		runtime.Logger,
	)

	enricher := books.NewEnricher(
		propsSystem,
		runtime.Memory,
		runtime.Logger,
	)

	booksSystem := books.NewController(
		store,
		enricher,
		books.NewLogSink(runtime.Logger),
		runtime.Logger,
		runtime.Pagination,
	)

	return &Domain{
		Books: booksSystem,
		Props: propsSystem,
	}
}
