package books

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/fable/internal/memory"
	"github.com/JaimeStill/fable/internal/props"
)

const enrichWorkers = 4

// Enricher attaches previously generated images to step entities that
// lack one: the props store is consulted first, then semantic memory.
// First hit wins. Enrichment is best-effort by contract: lookup
// failures are logged per entity and never fail the step update.
type Enricher struct {
	props  props.System
	memory memory.Searcher
	logger *slog.Logger
}

// NewEnricher creates an Enricher over the given asset sources.
func NewEnricher(propSys props.System, searcher memory.Searcher, logger *slog.Logger) *Enricher {
	return &Enricher{
		props:  propSys,
		memory: searcher,
		logger: logger.With("system", "enrichment"),
	}
}

// Enrich returns a copy of the payload with image URLs attached to
// entities that were missing one. Steps without an image-bearing
// collection pass through untouched. Lookups run concurrently with a
// bounded worker group; the external stores are never written.
func (e *Enricher) Enrich(
	ctx context.Context,
	userID, bookID uuid.UUID,
	stepNumber int,
	p Payload,
) Payload {
	entityType, ok := entityTypes[stepNumber]
	if !ok || p == nil {
		return p
	}

	out := p.Clone()

	var pending []map[string]any
	for _, entity := range out.Entities(imageCollections[stepNumber]) {
		if !hasImage(entity) && stringField(entity, fieldName) != "" {
			pending = append(pending, entity)
		}
	}
	if len(pending) == 0 {
		return out
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(enrichWorkers)

	for _, entity := range pending {
		g.Go(func() error {
			name := stringField(entity, fieldName)
			if url := e.lookup(gctx, userID, bookID, entityType, name); url != "" {
				entity[fieldImageURL] = url
			}
			return nil
		})
	}

	// Workers never return errors; Wait only synchronizes completion.
	g.Wait()
	return out
}

func (e *Enricher) lookup(
	ctx context.Context,
	userID, bookID uuid.UUID,
	entityType, name string,
) string {
	scope := props.Scope{
		UserID:     userID,
		BookID:     bookID,
		EntityType: entityType,
		Name:       name,
	}

	url, err := e.props.ImageURL(ctx, scope)
	if err == nil && url != "" {
		return url
	}
	if err != nil && !errors.Is(err, props.ErrNotFound) {
		e.logger.Debug(
			"prop lookup failed",
			"entity", name,
			"type", entityType,
			"error", err,
		)
	}

	hits, err := e.memory.Search(ctx, memory.Query{
		Text: name,
		Tags: map[string]string{
			"book_id":     bookID.String(),
			"entity_type": entityType,
		},
		Limit: 1,
	})
	if err != nil {
		e.logger.Debug(
			"memory lookup failed",
			"entity", name,
			"type", entityType,
			"error", err,
		)
		return ""
	}

	for _, hit := range hits {
		if hit.ImageURL != "" {
			return hit.ImageURL
		}
	}
	return ""
}
