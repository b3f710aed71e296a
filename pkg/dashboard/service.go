// CLAUDE:SUMMARY Dashboard state: loads survey, points and district GeoJSON concurrently, aggregates, and serves the current snapshot and map selection.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/qoparu/qoparu/pkg/geo"
	"github.com/qoparu/qoparu/pkg/loader"
	"github.com/qoparu/qoparu/pkg/mapbridge"
	"github.com/qoparu/qoparu/pkg/metrics"
	"github.com/qoparu/qoparu/pkg/sources"
	"github.com/qoparu/qoparu/pkg/survey"
)

var (
	// ErrNoSurveyURL is returned by Reload when no survey URL is configured.
	ErrNoSurveyURL = errors.New("CSV URL is not provided")

	// ErrUnknownDistrict is returned when a selection does not resolve to
	// an allowed district.
	ErrUnknownDistrict = errors.New("unknown district")
)

// URLStore resolves the current URL of a source. "" means unset.
type URLStore interface {
	GetURL(id string) (string, error)
}

// History records load attempts.
type History interface {
	RecordLoad(l sources.Load) (string, error)
}

// StaticURLs is a URLStore backed by a fixed map.
type StaticURLs map[string]string

func (s StaticURLs) GetURL(id string) (string, error) { return s[id], nil }

// Snapshot is the result of one reload. It is never mutated once published.
type Snapshot struct {
	Survey     *survey.Result  `json:"survey,omitempty"`
	Summary    *survey.Summary `json:"summary,omitempty"`
	Rows       int             `json:"rows"`
	Points     []geo.Point     `json:"points"`
	PointStats []geo.KindCount `json:"point_stats"`
	GeoJSON    json.RawMessage `json:"geojson,omitempty"`
	LoadedAt   time.Time       `json:"loaded_at"`
	Error      string          `json:"error,omitempty"`
	Warnings   []string        `json:"warnings,omitempty"`
}

// Ready reports whether survey data is available.
func (s *Snapshot) Ready() bool {
	return s != nil && s.Survey != nil
}

// Config wires a Service.
type Config struct {
	Loader  *loader.Loader
	Scheme  *survey.Scheme
	URLs    URLStore
	History History
	Hub     *mapbridge.Hub
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// Service owns the current snapshot and the map selection.
type Service struct {
	loader  *loader.Loader
	scheme  *survey.Scheme
	urls    URLStore
	history History
	hub     *mapbridge.Hub
	metrics *metrics.Metrics
	logger  *slog.Logger

	mu   sync.RWMutex
	snap *Snapshot
}

// New creates a Service. Loader, Scheme, Hub and Logger get defaults when
// nil; URLs is required.
func New(cfg Config) *Service {
	s := &Service{
		loader:  cfg.Loader,
		scheme:  cfg.Scheme,
		urls:    cfg.URLs,
		history: cfg.History,
		hub:     cfg.Hub,
		metrics: cfg.Metrics,
		logger:  cfg.Logger,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.loader == nil {
		s.loader = loader.New(loader.WithLogger(s.logger))
	}
	if s.scheme == nil {
		s.scheme = survey.DefaultScheme()
	}
	if s.hub == nil {
		s.hub = mapbridge.NewHub(s.logger)
	}
	if s.urls == nil {
		s.urls = StaticURLs{}
	}
	s.snap = &Snapshot{Points: []geo.Point{}, PointStats: geo.CountByKind(nil)}
	return s
}

// Hub returns the selection hub.
func (s *Service) Hub() *mapbridge.Hub { return s.hub }

// Scheme returns the category scheme in use.
func (s *Service) Scheme() *survey.Scheme { return s.scheme }

// Snapshot returns the current snapshot.
func (s *Service) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

type surveyLoad struct {
	rows    int
	result  survey.Result
	summary survey.Summary
}

// Reload fetches every configured source and publishes a new snapshot.
// The survey is required: its failure is returned and stored in
// Snapshot.Error. Points and GeoJSON failures become warnings.
// If ctx is cancelled the current snapshot stays in place and nothing is
// published.
func (s *Service) Reload(ctx context.Context) (*Snapshot, error) {
	started := time.Now()
	snap := &Snapshot{LoadedAt: started}

	var (
		sv       *surveyLoad
		points   []geo.Point
		geoJSON  json.RawMessage
		warnMu   sync.Mutex
		warnings []string
	)
	warn := func(source string, err error) {
		warnMu.Lock()
		warnings = append(warnings, fmt.Sprintf("%s: %v", source, err))
		warnMu.Unlock()
	}

	// No shared cancellation: points and GeoJSON still load when the
	// survey fails, so the map keeps rendering.
	var g errgroup.Group
	g.Go(func() error {
		var err error
		sv, err = s.loadSurvey(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		if points, err = s.loadPoints(ctx); err != nil {
			warn(sources.KindPoints, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if geoJSON, err = s.loadGeoJSON(ctx); err != nil {
			warn(sources.KindGeoJSON, err)
		}
		return nil
	})
	surveyErr := g.Wait()

	if err := ctx.Err(); err != nil {
		s.logger.Warn("reload cancelled, keeping previous snapshot", "error", err)
		return s.Snapshot(), err
	}

	if points == nil {
		points = []geo.Point{}
	}
	snap.Points = points
	snap.PointStats = geo.CountByKind(points)
	snap.GeoJSON = geoJSON
	snap.Warnings = warnings
	s.metrics.SetPoints(len(points))

	if surveyErr != nil {
		snap.Error = surveyErr.Error()
		s.logger.Error("survey load failed", "error", surveyErr)
	} else {
		snap.Survey = &sv.result
		snap.Summary = &sv.summary
		snap.Rows = sv.rows
		s.metrics.SetRespondents(sv.result.Total)
		s.logger.Info("survey loaded",
			"rows", sv.rows,
			"total", sv.result.Total,
			"districts", sv.summary.UniqueDistricts,
			"points", len(points),
			"elapsed", time.Since(started),
		)
	}

	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()

	s.hub.Publish(s.mapUpdate(snap))
	return snap, surveyErr
}

func (s *Service) loadSurvey(ctx context.Context) (*surveyLoad, error) {
	url, err := s.urls.GetURL(sources.KindSurvey)
	if err != nil && !errors.Is(err, sources.ErrNotFound) {
		return nil, err
	}
	if url == "" {
		return nil, ErrNoSurveyURL
	}

	var sv *surveyLoad
	err = s.track(sources.KindSurvey, func() (int, int, error) {
		data, err := s.loader.Load(ctx, url)
		if err != nil {
			return 0, 0, err
		}
		if err := survey.Check(data); err != nil {
			return data.RowCount(), 0, err
		}
		sv = &surveyLoad{
			rows:    data.RowCount(),
			result:  survey.Aggregate(data, s.scheme),
			summary: survey.Summarize(data, s.scheme),
		}
		return sv.rows, sv.result.Total, nil
	})
	return sv, err
}

func (s *Service) loadPoints(ctx context.Context) ([]geo.Point, error) {
	url, err := s.optionalURL(sources.KindPoints)
	if url == "" || err != nil {
		return nil, err
	}

	var points []geo.Point
	err = s.track(sources.KindPoints, func() (int, int, error) {
		text, err := s.loader.FetchText(ctx, url)
		if err != nil {
			return 0, 0, err
		}
		points, err = geo.ParsePoints(strings.NewReader(text), s.scheme.District.Normalize)
		return len(points), len(points), err
	})
	return points, err
}

func (s *Service) loadGeoJSON(ctx context.Context) (json.RawMessage, error) {
	url, err := s.optionalURL(sources.KindGeoJSON)
	if url == "" || err != nil {
		return nil, err
	}

	var doc json.RawMessage
	err = s.track(sources.KindGeoJSON, func() (int, int, error) {
		body, err := s.loader.Fetch(ctx, url)
		if err != nil {
			return 0, 0, err
		}
		doc, err = geo.ParseGeoJSON(body)
		return 0, 0, err
	})
	return doc, err
}

func (s *Service) optionalURL(id string) (string, error) {
	url, err := s.urls.GetURL(id)
	if errors.Is(err, sources.ErrNotFound) {
		return "", nil
	}
	return url, err
}

// track times fn and records the attempt in history and metrics.
func (s *Service) track(source string, fn func() (rows, total int, err error)) error {
	started := time.Now()
	rows, total, err := fn()
	elapsed := time.Since(started)

	status := sources.StatusOK
	errText := ""
	if err != nil {
		status = sources.StatusError
		errText = err.Error()
	}
	s.metrics.ObserveLoad(source, status, elapsed)

	if s.history != nil {
		_, herr := s.history.RecordLoad(sources.Load{
			SourceID:  source,
			StartedAt: started,
			Duration:  elapsed,
			Rows:      rows,
			Total:     total,
			Status:    status,
			Error:     errText,
		})
		if herr != nil {
			s.logger.Warn("record load failed", "source", source, "error", herr)
		}
	}
	return err
}
