package csevents_api

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"ms-csevents/internal/csevents/db"
	"ms-csevents/internal/csevents/service"
	"ms-csevents/internal/models"
	"ms-csevents/internal/scraper"
)

func newUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/calendar", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<h2>CS Events</h2><ul>
			<li><a href="/event/a">AI Seminar</a> Monday, 12/1/2025 - 11:00am</li>
			<li><a href="/event/b">Systems Talk</a> Tuesday, 12/2/2025 - 3:00pm</li>
			<li><a href="/event/c">Open House</a></li>
		</ul>`)
	})
	mux.HandleFunc("/event/a", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<h1>AI Seminar</h1><p>Location: Erie Hall 1120</p><p>Abstract:</p><p>Transformers.</p>`)
	})
	mux.HandleFunc("/event/b", func(w http.ResponseWriter, r *http.Request) {
		hj, ok := w.(http.Hijacker)
		if !ok {
			http.Error(w, "no hijack", http.StatusInternalServerError)
			return
		}
		conn, _, _ := hj.Hijack()
		conn.Close()
	})
	mux.HandleFunc("/event/c", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<h1>Open House</h1><p>Location: Lambton Tower</p>`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newStore(t *testing.T) *db.DB {
	t.Helper()
	sqldb, err := sql.Open(sqliteshim.ShimName, fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { bunDB.Close() })

	_, err = bunDB.NewCreateTable().Model((*models.CSEvent)(nil)).Exec(context.Background())
	require.NoError(t, err)
	return &db.DB{Bun: bunDB}
}

func TestScrapeEndToEnd(t *testing.T) {
	upstream := newUpstream(t)
	store := newStore(t)

	s, err := scraper.New(scraper.Options{
		CalendarURL: upstream.URL + "/calendar",
		SiteOrigin:  upstream.URL,
		UserAgent:   "test",
		Timeout:     5 * time.Second,
		ListHeading: "CS Events",
	}, nil)
	require.NoError(t, err)

	pipeline := service.NewPipeline(s, service.NewReconciler(store, nil), nil)
	router := newRouter(NewHandler(store, pipeline, "", nil))

	rr := do(t, router, http.MethodPost, "/api/cs-events/scrape", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	body := decode(t, rr)
	assert.Equal(t, float64(3), body["added"])
	assert.Equal(t, float64(1), body["degraded"])

	rr = do(t, router, http.MethodPost, "/api/cs-events/scrape", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	body = decode(t, rr)
	assert.Equal(t, float64(0), body["added"])
	assert.Equal(t, float64(3), body["updated"])

	rr = do(t, router, http.MethodGet, "/api/cs-events/", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var events []EventResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &events))
	require.Len(t, events, 3)

	assert.Equal(t, "AI Seminar", events[0].Title)
	require.NotNil(t, events[0].Location)
	assert.Equal(t, "Erie Hall 1120", *events[0].Location)
	require.NotNil(t, events[0].Abstract)
	assert.Equal(t, "Transformers.", *events[0].Abstract)

	assert.Equal(t, "Systems Talk", events[1].Title)
	assert.Nil(t, events[1].Location, "degraded stub keeps only stub fields")
	require.NotNil(t, events[1].EventTime)
	assert.Equal(t, "15:00", *events[1].EventTime)

	assert.Equal(t, "Open House", events[2].Title)
	assert.Nil(t, events[2].EventDate, "undated events sort last")

	rr = do(t, router, http.MethodGet, fmt.Sprintf("/api/cs-events/%d", events[2].ID), nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}
