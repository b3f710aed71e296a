package api

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qoparu/qoparu/pkg/dashboard"
	"github.com/qoparu/qoparu/pkg/loader"
	"github.com/qoparu/qoparu/pkg/mapbridge"
	"github.com/qoparu/qoparu/pkg/metrics"
	"github.com/qoparu/qoparu/pkg/sources"
)

const testSurvey = "age,district,activity_frequency\n" +
	"26-35,Бостандыкский,Ежедневно\n" +
	"46-60,Unknown,Редко\n"

const testPoints = "lat,lon,type,name,district\n" +
	"43.23,76.95,Воркаут,Площадка,Медеуский\n" +
	"43.21,76.89,Баскетбол,Кольцо,Бостандыкский\n" +
	"43.20,76.88,Теннис,Корт,Бостандыкский\n"

const testGeoJSON = `{"type":"FeatureCollection","features":[]}`

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	svc     *dashboard.Service
	router  http.Handler
	metrics *metrics.Metrics
	db      *sources.DB
}

func newFixture(t *testing.T, withSurvey bool) *fixture {
	t.Helper()
	files := map[string]string{
		"/points.csv":     testPoints,
		"/almaty.geojson": testGeoJSON,
	}
	if withSurvey {
		files["/survey.csv"] = testSurvey
	}
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := files[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, body)
	}))
	t.Cleanup(upstream.Close)

	db, err := sources.Open(t.TempDir() + "/sources.db")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Seed([]sources.Definition{
		{ID: sources.KindSurvey, Kind: sources.KindSurvey, URL: upstream.URL + "/survey.csv"},
		{ID: sources.KindPoints, Kind: sources.KindPoints, URL: upstream.URL + "/points.csv"},
		{ID: sources.KindGeoJSON, Kind: sources.KindGeoJSON, URL: upstream.URL + "/almaty.geojson"},
	}))

	m := metrics.New()
	logger := quietLogger()
	svc := dashboard.New(dashboard.Config{
		Loader:  loader.New(loader.WithLogger(logger)),
		URLs:    db,
		History: db,
		Metrics: m,
		Logger:  logger,
	})
	svc.Reload(context.Background())

	return &fixture{
		svc:     svc,
		metrics: m,
		db:      db,
		router:  NewRouter(Deps{Service: svc, Sources: db, Metrics: m, Logger: logger}),
	}
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestSurvey(t *testing.T) {
	f := newFixture(t, true)
	rec := f.do("GET", "/v1/survey", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Total     int `json:"total"`
		Districts []struct {
			Name       string `json:"name"`
			Value      int    `json:"value"`
			Percentage int    `json:"percentage"`
		} `json:"districts"`
	}
	decode(t, rec, &resp)
	assert.Equal(t, 1, resp.Total)
	require.Len(t, resp.Districts, 1)
	assert.Equal(t, "Бостандыкский", resp.Districts[0].Name)
	assert.Equal(t, 100, resp.Districts[0].Percentage)
}

func TestSurvey_NotLoaded(t *testing.T) {
	f := newFixture(t, false)
	rec := f.do("GET", "/v1/survey", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "HTTP status 404")

	rec = f.do("GET", "/v1/survey/summary", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSummary(t *testing.T) {
	f := newFixture(t, true)
	rec := f.do("GET", "/v1/survey/summary", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		TotalResponses int `json:"total_responses"`
	}
	decode(t, rec, &resp)
	assert.Equal(t, 2, resp.TotalResponses)
}

func TestReload(t *testing.T) {
	f := newFixture(t, true)
	rec := f.do("POST", "/v1/survey/reload", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp reloadResponse
	decode(t, rec, &resp)
	assert.True(t, resp.Ready)
	assert.Equal(t, 2, resp.Rows)
	assert.Equal(t, 1, resp.Total)
	assert.Equal(t, 3, resp.Points)

	rec = f.do("GET", "/v1/survey/reload", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestReload_ClientGoneStillReloads(t *testing.T) {
	f := newFixture(t, true)
	before := f.svc.Snapshot()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest("POST", "/v1/survey/reload", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	after := f.svc.Snapshot()
	assert.NotSame(t, before, after)
	require.True(t, after.Ready())
	assert.Equal(t, 1, after.Survey.Total)
}

func TestReload_Failure(t *testing.T) {
	f := newFixture(t, false)
	rec := f.do("POST", "/v1/survey/reload", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	var resp reloadResponse
	decode(t, rec, &resp)
	assert.False(t, resp.Ready)
	assert.NotEmpty(t, resp.Error)
}

func TestPoints(t *testing.T) {
	f := newFixture(t, true)

	var all pointsResponse
	rec := f.do("GET", "/v1/points", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &all)
	assert.Equal(t, 3, all.Count)

	var filtered pointsResponse
	rec = f.do("GET", "/v1/points?district="+url.QueryEscape("бостандык"), "")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &filtered)
	assert.Equal(t, "Бостандыкский", filtered.District)
	assert.Equal(t, 2, filtered.Count)
}

func TestPointStats(t *testing.T) {
	f := newFixture(t, true)
	rec := f.do("GET", "/v1/points/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp pointStatsResponse
	decode(t, rec, &resp)
	assert.Equal(t, 3, resp.Total)
	require.Len(t, resp.Kinds, 4)
	assert.Equal(t, 1, resp.Kinds[0].Count) // workout
	assert.Equal(t, 0, resp.Kinds[1].Count) // football
	assert.Equal(t, 1, resp.Kinds[2].Count) // basketball
	assert.Equal(t, 1, resp.Kinds[3].Count) // general
}

func TestDistricts(t *testing.T) {
	f := newFixture(t, true)
	rec := f.do("GET", "/v1/districts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/geo+json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, testGeoJSON, rec.Body.String())
}

func TestMapMessages(t *testing.T) {
	f := newFixture(t, true)

	rec := f.do("POST", "/v1/map/messages", `{"type":"districtSelected","district":"Медеуский район"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"type":"selectionChanged","district":"Медеуский"}`, rec.Body.String())

	rec = f.do("GET", "/v1/map/selection", "")
	assert.JSONEq(t, `{"district":"Медеуский"}`, rec.Body.String())

	rec = f.do("POST", "/v1/map/messages", `{"type":"districtSelected","district":"Медеуский"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"type":"selectionChanged","district":null}`, rec.Body.String())
}

func TestMapMessages_Errors(t *testing.T) {
	f := newFixture(t, true)

	rec := f.do("POST", "/v1/map/messages", `{"type":"zoom"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do("POST", "/v1/map/messages", `{"type":"selectionChanged","district":"Медеуский"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do("POST", "/v1/map/messages", `{"type":"districtSelected","district":"Талгар"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestMapUpdate(t *testing.T) {
	f := newFixture(t, true)
	rec := f.do("GET", "/v1/map/update", "")
	require.Equal(t, http.StatusOK, rec.Code)

	msg, err := mapbridge.Decode(rec.Body.Bytes())
	require.NoError(t, err)
	update, ok := msg.(mapbridge.MapUpdate)
	require.True(t, ok)
	assert.Len(t, update.PointsData, 3)
	assert.JSONEq(t, testGeoJSON, string(update.GeoData))
}

func TestSourcesAndLoads(t *testing.T) {
	f := newFixture(t, true)

	rec := f.do("GET", "/v1/sources", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var srcResp struct {
		Sources []sources.Source `json:"sources"`
	}
	decode(t, rec, &srcResp)
	assert.Len(t, srcResp.Sources, 3)

	rec = f.do("GET", "/v1/loads?limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var loadResp struct {
		Loads []sources.Load `json:"loads"`
	}
	decode(t, rec, &loadResp)
	assert.Len(t, loadResp.Loads, 2)

	rec = f.do("GET", "/v1/loads?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	f := newFixture(t, true)
	rec := f.do("GET", "/v1/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp healthResponse
	decode(t, rec, &resp)
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Ready)
	assert.Equal(t, 1, resp.Respondents)
	assert.Equal(t, 3, resp.Points)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, true)
	f.do("GET", "/v1/health", "")

	rec := f.do("GET", "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `qoparu_http_requests_total{code="200",route="GET /v1/health"} 1`)
	assert.Contains(t, body, `qoparu_loads_total{source="survey",status="ok"} 1`)
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t, true)
	rec := f.do("OPTIONS", "/v1/map/messages", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestEvents(t *testing.T) {
	f := newFixture(t, true)
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", srv.URL+"/v1/map/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := make(chan [2]string, 4)
	go func() {
		sc := bufio.NewScanner(resp.Body)
		sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
		var event string
		for sc.Scan() {
			line := sc.Text()
			switch {
			case strings.HasPrefix(line, "event: "):
				event = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				events <- [2]string{event, strings.TrimPrefix(line, "data: ")}
			}
		}
		close(events)
	}()

	first := <-events
	assert.Equal(t, mapbridge.TypeUpdateMap, first[0])

	require.Eventually(t, func() bool { return f.svc.Hub().Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)
	_, err = f.svc.SelectDistrict("Алатауский")
	require.NoError(t, err)

	second := <-events
	assert.Equal(t, mapbridge.TypeSelectionChanged, second[0])
	assert.JSONEq(t, `{"type":"selectionChanged","district":"Алатауский"}`, second[1])
}
