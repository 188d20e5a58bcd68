package props

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/fable/pkg/pagination"
)

// System defines the public contract for prop domain operations.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		userID uuid.UUID,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Prop], error)

	Find(ctx context.Context, scope Scope) (*Prop, error)

	// ImageURL resolves the usable image address for a scoped prop:
	// the stored URL when present, otherwise the asset-store address of
	// its storage key after an existence check. Returns ErrNotFound
	// when no prop matches or the asset is gone.
	ImageURL(ctx context.Context, scope Scope) (string, error)
}
