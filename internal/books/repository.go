package books

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/fable/pkg/pagination"
	"github.com/JaimeStill/fable/pkg/query"
	"github.com/JaimeStill/fable/pkg/repository"
)

// metadataSlot is the reserved chapter slot carrying the workflow
// document; slots >= 1 carry narrative chapter text that the downstream
// editor UI reads and writes independently.
const metadataSlot = 0

type store struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewStore creates the Postgres-backed workflow store.
func NewStore(db *sql.DB, logger *slog.Logger) Store {
	return &store{
		db:     db,
		logger: logger.With("system", "workflow-store"),
	}
}

type chapterRow struct {
	Slot      int
	Title     sql.NullString
	Content   sql.NullString
	UpdatedAt time.Time
}

func (s *store) Load(ctx context.Context, bookID, userID uuid.UUID) (*BookState, error) {
	var (
		raw       []byte
		revision  int64
		updatedAt time.Time
	)

	err := s.db.QueryRowContext(
		ctx,
		`SELECT state, revision, updated_at
		 FROM book_artifacts
		 WHERE book_id = $1 AND user_id = $2 AND chapter_slot = $3`,
		bookID, userID, metadataSlot,
	).Scan(&raw, &revision, &updatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load workflow %s: %w", bookID, err)
	}

	var state BookState
	if err := json.Unmarshal(raw, &state); err != nil {
		// Deliberate lossy recovery: a corrupt metadata row reads as
		// not-yet-created rather than wedging the workflow forever.
		s.logger.Warn(
			"workflow document unreadable, treating as absent",
			"book_id", bookID,
			"error", err,
		)
		return nil, ErrNotFound
	}
	if len(state.Steps) != StepCount {
		s.logger.Warn(
			"workflow document truncated, treating as absent",
			"book_id", bookID,
			"steps", len(state.Steps),
		)
		return nil, ErrNotFound
	}
	state.Revision = revision

	rows, err := repository.QueryMany(
		ctx, s.db,
		`SELECT chapter_slot, title, content, updated_at
		 FROM book_artifacts
		 WHERE book_id = $1 AND user_id = $2 AND chapter_slot >= 1
		 ORDER BY chapter_slot`,
		[]any{bookID, userID},
		scanChapterRow,
	)
	if err != nil {
		return nil, fmt.Errorf("load chapters %s: %w", bookID, err)
	}

	reconcileChapters(&state, rows, updatedAt)
	return &state, nil
}

func (s *store) Save(ctx context.Context, state *BookState) error {
	expected := state.Revision
	next := expected + 1

	snapshot := *state
	snapshot.Revision = next
	raw, err := json.Marshal(&snapshot)
	if err != nil {
		return fmt.Errorf("marshal workflow %s: %w", state.BookID, err)
	}

	upsertQ := `
		INSERT INTO book_artifacts (
			book_id, user_id, chapter_slot, title, content, state,
			revision, current_step, is_picture_book, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		ON CONFLICT (book_id, user_id, chapter_slot) DO UPDATE SET
			title = EXCLUDED.title,
			content = EXCLUDED.content,
			state = EXCLUDED.state,
			revision = EXCLUDED.revision,
			current_step = EXCLUDED.current_step,
			is_picture_book = EXCLUDED.is_picture_book,
			updated_at = NOW()
		WHERE book_artifacts.revision = $10
		RETURNING revision`

	upsertArgs := []any{
		state.BookID,
		state.UserID,
		metadataSlot,
		state.BookTitle,
		progressSummary(state),
		raw,
		next,
		state.CurrentStep,
		state.IsPictureBook,
		expected,
	}

	_, err = repository.WithTx(ctx, s.db, func(tx *sql.Tx) (int64, error) {
		var rev int64
		if err := tx.QueryRowContext(ctx, upsertQ, upsertArgs...).Scan(&rev); err != nil {
			return 0, fmt.Errorf("upsert workflow: %w", err)
		}

		if err := s.saveChapters(ctx, tx, &snapshot); err != nil {
			return 0, err
		}
		return rev, nil
	})

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrConflict
		}
		return fmt.Errorf("save workflow %s: %w", state.BookID, err)
	}

	state.Revision = next
	return nil
}

func (s *store) saveChapters(ctx context.Context, tx *sql.Tx, state *BookState) error {
	content := state.Step(StepFinalContent)
	if content == nil || content.Data == nil {
		return nil
	}

	q := `
		INSERT INTO book_artifacts (
			book_id, user_id, chapter_slot, title, content, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (book_id, user_id, chapter_slot) DO UPDATE SET
			title = EXCLUDED.title,
			content = EXCLUDED.content,
			updated_at = NOW()`

	for _, ch := range content.Data.Chapters() {
		if _, err := tx.ExecContext(
			ctx, q,
			state.BookID,
			state.UserID,
			ch.ChapterNumber,
			ch.Title,
			ch.Content,
		); err != nil {
			return fmt.Errorf("upsert chapter %d: %w", ch.ChapterNumber, err)
		}
	}
	return nil
}

func (s *store) List(
	ctx context.Context,
	userID uuid.UUID,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[BookSummary], error) {
	qb := query.
		NewBuilder(projection, defaultSort).
		WhereEquals("UserID", userID).
		WhereEquals("ChapterSlot", metadataSlot).
		WhereSearch(page.Search, "Title", "Progress")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := s.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count workflows: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	summaries, err := repository.QueryMany(ctx, s.db, pageSQL, pageArgs, scanSummary)
	if err != nil {
		return nil, fmt.Errorf("query workflows: %w", err)
	}

	result := pagination.NewPageResult(summaries, total, page.Page, page.PageSize)
	return &result, nil
}

// reconcileChapters folds chapter rows edited after the document's last
// save back into the step 5 payload, matching by chapter number and
// preferring the externally edited copy.
func reconcileChapters(state *BookState, rows []chapterRow, savedAt time.Time) {
	step := state.Step(StepFinalContent)
	if step == nil {
		return
	}

	for _, row := range rows {
		if !row.UpdatedAt.After(savedAt) {
			continue
		}
		if step.Data == nil {
			step.Data = Payload{}
		}
		step.Data.SetChapter(Chapter{
			ChapterNumber: row.Slot,
			Title:         row.Title.String,
			Content:       row.Content.String,
		})
	}

	if step.Data != nil {
		if raw, ok := step.Data[KeyChapters].([]any); ok {
			sortChapters(raw)
		}
	}
}

func progressSummary(state *BookState) string {
	step := state.Step(state.CurrentStep)
	if step == nil {
		return "Workflow created"
	}
	return fmt.Sprintf(
		"Step %d of %d: %s (%s)",
		state.CurrentStep, StepCount, step.StepName, step.Status,
	)
}

func scanChapterRow(s repository.Scanner) (chapterRow, error) {
	var r chapterRow
	err := s.Scan(&r.Slot, &r.Title, &r.Content, &r.UpdatedAt)
	return r, err
}
