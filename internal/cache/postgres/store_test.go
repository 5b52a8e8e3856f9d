package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flocrawl/flocrawl/internal/crawl"
)

func TestPageCachePutUpsertsRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewPageCacheWithPool(mock, "page_cache", time.Hour)
	require.NoError(t, err)

	now := time.Unix(1700000000, 0).UTC()
	store.now = func() time.Time { return now }

	res := crawl.FetchResult{
		URL:      "https://example.com/",
		FinalURL: "https://example.com/home",
		Status:   200,
		Body:     []byte("<html>x</html>"),
		Charset:  "utf-8",
		HTML:     "<html>x</html>",
	}

	mock.ExpectExec("INSERT INTO page_cache").
		WithArgs(res.URL, res.FinalURL, res.Status, res.Body, res.Charset, res.HTML, now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.Put(context.Background(), res))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPageCacheGetHit(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewPageCacheWithPool(mock, "page_cache", time.Hour)
	require.NoError(t, err)

	now := time.Unix(1700000000, 0).UTC()
	store.now = func() time.Time { return now }

	rows := pgxmock.NewRows([]string{"final_url", "status", "body", "charset", "html", "fetched_at"}).
		AddRow("https://example.com/home", 200, []byte("<html>x</html>"), "utf-8", "<html>x</html>", now.Add(-time.Minute))
	mock.ExpectQuery("SELECT final_url, status, body, charset, html, fetched_at").
		WithArgs("https://example.com/").
		WillReturnRows(rows)

	res, ok, err := store.Get(context.Background(), "https://example.com/")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "https://example.com/", res.URL)
	assert.Equal(t, "https://example.com/home", res.FinalURL)
	assert.Equal(t, 200, res.Status)
	assert.Equal(t, "<html>x</html>", res.HTML)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPageCacheGetMiss(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewPageCacheWithPool(mock, "page_cache", time.Hour)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT final_url, status, body, charset, html, fetched_at").
		WithArgs("https://example.com/missing").
		WillReturnRows(pgxmock.NewRows([]string{"final_url", "status", "body", "charset", "html", "fetched_at"}))

	_, ok, err := store.Get(context.Background(), "https://example.com/missing")
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPageCacheGetExpiredRowIsMiss(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewPageCacheWithPool(mock, "page_cache", time.Hour)
	require.NoError(t, err)

	now := time.Unix(1700000000, 0).UTC()
	store.now = func() time.Time { return now }

	rows := pgxmock.NewRows([]string{"final_url", "status", "body", "charset", "html", "fetched_at"}).
		AddRow("https://example.com/", 200, []byte(nil), "utf-8", "stale", now.Add(-2*time.Hour))
	mock.ExpectQuery("SELECT final_url, status, body, charset, html, fetched_at").
		WithArgs("https://example.com/").
		WillReturnRows(rows)

	_, ok, err := store.Get(context.Background(), "https://example.com/")
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewPageCacheWithPoolValidation(t *testing.T) {
	t.Parallel()

	_, err := NewPageCacheWithPool(nil, "page_cache", time.Hour)
	assert.Error(t, err)

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewPageCacheWithPool(mock, "bad;table", time.Hour)
	assert.Error(t, err)
}
