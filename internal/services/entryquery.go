// Package services holds the storage, analytics and assistant layers that
// back the HTTP handlers.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/inkwell-journal/inkwell-backend/internal/models"
)

// ErrEntryNotFound is returned when an entry does not exist or is owned by
// another user. Handlers map it to 404 either way so entry ids never leak
// ownership information.
var ErrEntryNotFound = errors.New("entry not found")

// EntryStore implements entry persistence and the filtered, paginated list
// query over a *sql.DB.
type EntryStore struct {
	db *sql.DB
}

// NewEntryStore constructs a store bound to the given database.
func NewEntryStore(db *sql.DB) *EntryStore {
	return &EntryStore{db: db}
}

// DefaultPageSize is used when the requested page size is not allowed.
const DefaultPageSize = 10

var allowedPageSizes = map[int]bool{5: true, 10: true, 20: true}

// EntryFilter describes one filtered list request. Zero values mean "no
// filter" for every facet; all set facets are ANDed together. Unknown mood,
// category or tag values are not validated here: they are freely
// user-supplied facets and simply match zero rows.
type EntryFilter struct {
	Search        string
	Mood          string
	Category      string
	Tag           string
	FavoritesOnly bool
	Page          int
	PageSize      int
}

// Normalized clamps paging to sane values: page >= 1, page size drawn from
// the allowed set with a fallback to DefaultPageSize.
func (f EntryFilter) Normalized() EntryFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if !allowedPageSizes[f.PageSize] {
		f.PageSize = DefaultPageSize
	}
	f.Search = strings.TrimSpace(f.Search)
	return f
}

// EntryPage is one page of a filtered result set plus the pagination totals.
type EntryPage struct {
	Entries    []models.Entry `json:"entries"`
	Total      int            `json:"total"`
	TotalPages int            `json:"total_pages"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// whereClause builds the parameterized WHERE fragment for a filter. The
// user id is always the first condition so every query stays scoped to its
// owner at the storage boundary.
func (f EntryFilter) whereClause(userID uuid.UUID) (string, []interface{}) {
	conds := []string{"user_id = $1"}
	args := []interface{}{userID}

	next := func() int { return len(args) + 1 }

	if f.Search != "" {
		pattern := "%" + likeEscaper.Replace(f.Search) + "%"
		conds = append(conds, fmt.Sprintf("(title ILIKE $%d OR body ILIKE $%d)", next(), next()))
		args = append(args, pattern)
	}
	if f.Mood != "" {
		conds = append(conds, fmt.Sprintf("mood = $%d", next()))
		args = append(args, f.Mood)
	}
	if f.Category != "" {
		conds = append(conds, fmt.Sprintf("category = $%d", next()))
		args = append(args, f.Category)
	}
	if f.Tag != "" {
		conds = append(conds, fmt.Sprintf("$%d = ANY(tags)", next()))
		args = append(args, strings.ToLower(strings.TrimSpace(f.Tag)))
	}
	if f.FavoritesOnly {
		conds = append(conds, "is_favorite = TRUE")
	}

	return strings.Join(conds, " AND "), args
}

const entryColumns = "id, user_id, title, body, mood, category, tags, is_favorite, created_at, updated_at"

func scanEntry(row interface{ Scan(...interface{}) error }) (models.Entry, error) {
	var e models.Entry
	var mood, category sql.NullString
	var tags pq.StringArray
	err := row.Scan(&e.ID, &e.UserID, &e.Title, &e.Body, &mood, &category, &tags, &e.IsFavorite, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return models.Entry{}, err
	}
	e.Mood = mood.String
	e.Category = category.String
	e.Tags = []string(tags)
	if e.Tags == nil {
		e.Tags = []string{}
	}
	return e, nil
}

// List returns one page of the user's entries matching the filter, newest
// first with id as the deterministic tie-break, plus the total match count.
// A page past the end yields an empty page with the totals unchanged.
// Storage failures are returned as errors, never as an empty page.
func (s *EntryStore) List(ctx context.Context, userID uuid.UUID, filter EntryFilter) (*EntryPage, error) {
	f := filter.Normalized()
	where, args := f.whereClause(userID)

	var total int
	countQuery := "SELECT COUNT(*) FROM entries WHERE " + where
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count entries: %w", err)
	}

	page := &EntryPage{
		Entries:    []models.Entry{},
		Total:      total,
		TotalPages: (total + f.PageSize - 1) / f.PageSize,
		Page:       f.Page,
		PageSize:   f.PageSize,
	}

	query := fmt.Sprintf(
		"SELECT %s FROM entries WHERE %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d",
		entryColumns, where, len(args)+1, len(args)+2,
	)
	args = append(args, f.PageSize, (f.Page-1)*f.PageSize)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		page.Entries = append(page.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}

	return page, nil
}

// Create inserts a new entry. Timestamps are assigned by the database.
func (s *EntryStore) Create(ctx context.Context, e *models.Entry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.Tags = models.NormalizeTags(e.Tags)

	query := `
		INSERT INTO entries (id, user_id, title, body, mood, category, tags, is_favorite)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7, $8)
		RETURNING created_at, updated_at
	`
	err := s.db.QueryRowContext(ctx, query,
		e.ID, e.UserID, e.Title, e.Body, e.Mood, e.Category, pq.Array(e.Tags), e.IsFavorite,
	).Scan(&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	return nil
}

// GetByID fetches a single entry scoped to its owner.
func (s *EntryStore) GetByID(ctx context.Context, userID, entryID uuid.UUID) (*models.Entry, error) {
	query := "SELECT " + entryColumns + " FROM entries WHERE id = $1 AND user_id = $2"
	e, err := scanEntry(s.db.QueryRowContext(ctx, query, entryID, userID))
	if err == sql.ErrNoRows {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select entry: %w", err)
	}
	return &e, nil
}

// Update rewrites an entry's mutable fields and refreshes updated_at.
// Returns ErrEntryNotFound when the entry does not belong to userID.
func (s *EntryStore) Update(ctx context.Context, userID uuid.UUID, e *models.Entry) error {
	e.Tags = models.NormalizeTags(e.Tags)

	query := `
		UPDATE entries
		SET title = $1, body = $2, mood = NULLIF($3, ''), category = NULLIF($4, ''),
			tags = $5, is_favorite = $6, updated_at = NOW()
		WHERE id = $7 AND user_id = $8
		RETURNING created_at, updated_at
	`
	err := s.db.QueryRowContext(ctx, query,
		e.Title, e.Body, e.Mood, e.Category, pq.Array(e.Tags), e.IsFavorite, e.ID, userID,
	).Scan(&e.CreatedAt, &e.UpdatedAt)
	if err == sql.ErrNoRows {
		return ErrEntryNotFound
	}
	if err != nil {
		return fmt.Errorf("update entry: %w", err)
	}
	return nil
}

// Delete removes an entry scoped to its owner.
func (s *EntryStore) Delete(ctx context.Context, userID, entryID uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM entries WHERE id = $1 AND user_id = $2", entryID, userID)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrEntryNotFound
	}
	return nil
}

// Recent returns the user's most recent entries, newest first. Used to
// build the bounded assistant context.
func (s *EntryStore) Recent(ctx context.Context, userID uuid.UUID, limit int) ([]models.Entry, error) {
	if limit <= 0 {
		limit = 5
	}
	query := "SELECT " + entryColumns + " FROM entries WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2"
	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("select recent entries: %w", err)
	}
	defer rows.Close()

	entries := []models.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ExportAll returns every entry the user owns, oldest first, for the JSON
// export endpoint.
func (s *EntryStore) ExportAll(ctx context.Context, userID uuid.UUID) ([]models.Entry, error) {
	query := "SELECT " + entryColumns + " FROM entries WHERE user_id = $1 ORDER BY created_at ASC, id ASC"
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("select all entries: %w", err)
	}
	defer rows.Close()

	entries := []models.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// AttachMedia persists an uploaded attachment URL for an entry the user
// owns. Ownership is checked in the INSERT itself.
func (s *EntryStore) AttachMedia(ctx context.Context, userID, entryID uuid.UUID, url string) (*models.EntryMedia, error) {
	m := &models.EntryMedia{ID: uuid.New(), EntryID: entryID, UserID: userID, URL: url}
	query := `
		INSERT INTO entry_media (id, entry_id, user_id, url)
		SELECT $1, e.id, e.user_id, $2 FROM entries e WHERE e.id = $3 AND e.user_id = $4
		RETURNING created_at
	`
	err := s.db.QueryRowContext(ctx, query, m.ID, url, entryID, userID).Scan(&m.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("insert entry media: %w", err)
	}
	return m, nil
}

// MediaForEntry lists attachments for one entry, oldest first.
func (s *EntryStore) MediaForEntry(ctx context.Context, userID, entryID uuid.UUID) ([]models.EntryMedia, error) {
	query := `
		SELECT id, entry_id, user_id, url, created_at FROM entry_media
		WHERE entry_id = $1 AND user_id = $2 ORDER BY created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, entryID, userID)
	if err != nil {
		return nil, fmt.Errorf("select entry media: %w", err)
	}
	defer rows.Close()

	media := []models.EntryMedia{}
	for rows.Next() {
		var m models.EntryMedia
		if err := rows.Scan(&m.ID, &m.EntryID, &m.UserID, &m.URL, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan entry media: %w", err)
		}
		media = append(media, m)
	}
	return media, rows.Err()
}
