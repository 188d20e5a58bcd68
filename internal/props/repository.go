package props

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/fable/pkg/pagination"
	"github.com/JaimeStill/fable/pkg/query"
	"github.com/JaimeStill/fable/pkg/repository"
	"github.com/JaimeStill/fable/pkg/storage"
)

type repo struct {
	db         *sql.DB
	assets     storage.System
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a prop repository implementing the System interface.
func New(
	db *sql.DB,
	assets storage.System,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		assets:     assets,
		logger:     logger.With("system", "props"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) List(
	ctx context.Context,
	userID uuid.UUID,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Prop], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereEquals("UserID", userID).
		WhereSearch(page.Search, "Name", "EntityType")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count props: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanProp)
	if err != nil {
		return nil, fmt.Errorf("query props: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, scope Scope) (*Prop, error) {
	if err := validateScope(scope); err != nil {
		return nil, err
	}

	q, args := query.
		NewBuilder(projection).
		WhereEquals("UserID", scope.UserID).
		WhereEquals("BookID", scope.BookID).
		WhereEquals("EntityType", scope.EntityType).
		WhereEquals("Name", scope.Name).
		Build()

	p, err := repository.QueryOne(ctx, r.db, q, args, scanProp)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &p, nil
}

func (r *repo) ImageURL(ctx context.Context, scope Scope) (string, error) {
	p, err := r.Find(ctx, scope)
	if err != nil {
		return "", err
	}

	if p.ImageURL != nil && *p.ImageURL != "" {
		return *p.ImageURL, nil
	}

	if p.StorageKey == nil || *p.StorageKey == "" {
		return "", ErrNotFound
	}

	exists, err := r.assets.Exists(ctx, *p.StorageKey)
	if err != nil {
		return "", fmt.Errorf("check prop asset %s: %w", *p.StorageKey, err)
	}
	if !exists {
		r.logger.Warn(
			"prop references missing asset",
			"id", p.ID,
			"key", *p.StorageKey,
		)
		return "", ErrNotFound
	}

	return r.assets.URL(*p.StorageKey), nil
}

func validateScope(scope Scope) error {
	if scope.UserID == uuid.Nil ||
		scope.BookID == uuid.Nil ||
		scope.EntityType == "" ||
		scope.Name == "" {
		return ErrInvalidScope
	}
	return nil
}
