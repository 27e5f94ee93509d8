package services

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-journal/inkwell-backend/internal/models"
)

func newStoreWithMock(t *testing.T) (*EntryStore, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewEntryStore(db), mock, db
}

func entryRows(t *testing.T, entries ...models.Entry) *sqlmock.Rows {
	t.Helper()
	rows := sqlmock.NewRows([]string{
		"id", "user_id", "title", "body", "mood", "category", "tags", "is_favorite", "created_at", "updated_at",
	})
	for _, e := range entries {
		rows.AddRow(e.ID.String(), e.UserID.String(), e.Title, e.Body, e.Mood, e.Category, "{}", e.IsFavorite, e.CreatedAt, e.UpdatedAt)
	}
	return rows
}

func TestEntryFilterNormalized(t *testing.T) {
	tests := []struct {
		name     string
		in       EntryFilter
		page     int
		pageSize int
	}{
		{"defaults", EntryFilter{}, 1, 10},
		{"negative page", EntryFilter{Page: -3, PageSize: 5}, 1, 5},
		{"allowed sizes kept", EntryFilter{Page: 2, PageSize: 20}, 2, 20},
		{"disallowed size falls back", EntryFilter{Page: 2, PageSize: 100}, 2, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := tt.in.Normalized()
			assert.Equal(t, tt.page, f.Page)
			assert.Equal(t, tt.pageSize, f.PageSize)
		})
	}
}

func TestWhereClauseAlwaysScopedToUser(t *testing.T) {
	userID := uuid.New()

	tests := []struct {
		name      string
		filter    EntryFilter
		wantWhere string
		wantArgs  int
	}{
		{
			name:      "no filters",
			filter:    EntryFilter{},
			wantWhere: "user_id = $1",
			wantArgs:  1,
		},
		{
			name:      "search shares one placeholder",
			filter:    EntryFilter{Search: "rainy day"},
			wantWhere: "user_id = $1 AND (title ILIKE $2 OR body ILIKE $2)",
			wantArgs:  2,
		},
		{
			name:      "all facets ANDed",
			filter:    EntryFilter{Search: "x", Mood: "happy", Category: "work", Tag: "Travel", FavoritesOnly: true},
			wantWhere: "user_id = $1 AND (title ILIKE $2 OR body ILIKE $2) AND mood = $3 AND category = $4 AND $5 = ANY(tags) AND is_favorite = TRUE",
			wantArgs:  5,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			where, args := tt.filter.whereClause(userID)
			assert.Equal(t, tt.wantWhere, where)
			assert.Len(t, args, tt.wantArgs)
			assert.Equal(t, userID, args[0], "user id must be the first condition")
		})
	}
}

func TestWhereClauseEscapesLikeMetacharacters(t *testing.T) {
	_, args := EntryFilter{Search: "100%_done"}.whereClause(uuid.New())
	assert.Equal(t, `%100\%\_done%`, args[1])
}

func TestWhereClauseLowercasesTag(t *testing.T) {
	_, args := EntryFilter{Tag: "  Travel "}.whereClause(uuid.New())
	assert.Equal(t, "travel", args[1])
}

func TestListReturnsPageAndTotals(t *testing.T) {
	store, mock, db := newStoreWithMock(t)
	defer db.Close()

	userID := uuid.New()
	now := time.Now().UTC()
	e := models.Entry{ID: uuid.New(), UserID: userID, Title: "A walk", Body: "It rained", CreatedAt: now, UpdatedAt: now}

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM entries WHERE user_id = \$1 AND \(title ILIKE \$2 OR body ILIKE \$2\)`).
		WithArgs(userID, "%rain%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(21))

	mock.ExpectQuery(`SELECT .* FROM entries WHERE user_id = \$1 AND \(title ILIKE \$2 OR body ILIKE \$2\) ORDER BY created_at DESC, id DESC LIMIT \$3 OFFSET \$4`).
		WithArgs(userID, "%rain%", 10, 10).
		WillReturnRows(entryRows(t, e))

	page, err := store.List(context.Background(), userID, EntryFilter{Search: "rain", Page: 2})
	require.NoError(t, err)

	assert.Equal(t, 21, page.Total)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 10, page.PageSize)
	require.Len(t, page.Entries, 1)
	assert.Equal(t, "A walk", page.Entries[0].Title)
	assert.Equal(t, []string{}, page.Entries[0].Tags)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListPagePastEndIsEmptyNotError(t *testing.T) {
	store, mock, db := newStoreWithMock(t)
	defer db.Close()

	userID := uuid.New()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM entries WHERE user_id = \$1`).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))

	mock.ExpectQuery(`SELECT .* FROM entries WHERE user_id = \$1 ORDER BY`).
		WithArgs(userID, 10, 40).
		WillReturnRows(entryRows(t))

	page, err := store.List(context.Background(), userID, EntryFilter{Page: 5})
	require.NoError(t, err)

	assert.Empty(t, page.Entries)
	assert.Equal(t, 12, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListStorageFailurePropagates(t *testing.T) {
	store, mock, db := newStoreWithMock(t)
	defer db.Close()

	userID := uuid.New()
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM entries`).
		WithArgs(userID).
		WillReturnError(errors.New("connection refused"))

	page, err := store.List(context.Background(), userID, EntryFilter{})
	require.Error(t, err, "a storage failure must not read as zero matches")
	assert.Nil(t, page)
}

func TestGetByIDScopesOwnership(t *testing.T) {
	store, mock, db := newStoreWithMock(t)
	defer db.Close()

	userID := uuid.New()
	entryID := uuid.New()

	mock.ExpectQuery(`SELECT .* FROM entries WHERE id = \$1 AND user_id = \$2`).
		WithArgs(entryID, userID).
		WillReturnError(sql.ErrNoRows)

	_, err := store.GetByID(context.Background(), userID, entryID)
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestDeleteMissingEntryReturnsNotFound(t *testing.T) {
	store, mock, db := newStoreWithMock(t)
	defer db.Close()

	userID := uuid.New()
	entryID := uuid.New()

	mock.ExpectExec(`DELETE FROM entries WHERE id = \$1 AND user_id = \$2`).
		WithArgs(entryID, userID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Delete(context.Background(), userID, entryID)
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestUpdateRefreshesTimestamps(t *testing.T) {
	store, mock, db := newStoreWithMock(t)
	defer db.Close()

	userID := uuid.New()
	created := time.Now().UTC().Add(-time.Hour)
	updated := time.Now().UTC()
	e := &models.Entry{ID: uuid.New(), Title: "Later", Body: "Edited", Mood: "calm", Tags: []string{"Work", "work"}}

	mock.ExpectQuery(`UPDATE entries\s+SET title = \$1`).
		WithArgs(e.Title, e.Body, "calm", "", sqlmock.AnyArg(), false, e.ID, userID).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(created, updated))

	require.NoError(t, store.Update(context.Background(), userID, e))
	assert.Equal(t, []string{"work"}, e.Tags, "tags must be deduplicated")
	assert.True(t, e.CreatedAt.Before(e.UpdatedAt) || e.CreatedAt.Equal(e.UpdatedAt))
}
