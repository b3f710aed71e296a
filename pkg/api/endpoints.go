package api

import (
	"context"
	"errors"
	"time"

	"github.com/qoparu/qoparu/pkg/dashboard"
	"github.com/qoparu/qoparu/pkg/geo"
	"github.com/qoparu/qoparu/pkg/kit"
	"github.com/qoparu/qoparu/pkg/survey"
)

// Shared request/response types used by both HTTP and MCP transports.

// errNotReady is returned while no survey data is available and the last
// reload left no message.
var errNotReady = errors.New("survey data is not loaded yet")

type surveyResponse struct {
	survey.Result
	LoadedAt time.Time `json:"loaded_at"`
}

type summaryResponse struct {
	survey.Summary
	LoadedAt time.Time `json:"loaded_at"`
}

type reloadResponse struct {
	Ready    bool      `json:"ready"`
	Rows     int       `json:"rows"`
	Total    int       `json:"total"`
	Points   int       `json:"points"`
	LoadedAt time.Time `json:"loaded_at"`
	Error    string    `json:"error,omitempty"`
	Warnings []string  `json:"warnings,omitempty"`
}

type selectionResponse struct {
	District *string `json:"district"`
}

type pointsRequest struct {
	District string
}

type pointsResponse struct {
	District string      `json:"district,omitempty"`
	Count    int         `json:"count"`
	Points   []geo.Point `json:"points"`
}

type pointStatsResponse struct {
	Total int             `json:"total"`
	Kinds []geo.KindCount `json:"kinds"`
}

type selectRequest struct {
	District string
}

// notReady converts a snapshot without survey data into an error.
func notReady(snap *dashboard.Snapshot) error {
	if snap.Error != "" {
		return errors.New(snap.Error)
	}
	return errNotReady
}

func surveyResultsEndpoint(svc *dashboard.Service) kit.Endpoint {
	return func(_ context.Context, _ any) (any, error) {
		snap := svc.Snapshot()
		if !snap.Ready() {
			return nil, notReady(snap)
		}
		return surveyResponse{Result: *snap.Survey, LoadedAt: snap.LoadedAt}, nil
	}
}

func surveySummaryEndpoint(svc *dashboard.Service) kit.Endpoint {
	return func(_ context.Context, _ any) (any, error) {
		snap := svc.Snapshot()
		if !snap.Ready() {
			return nil, notReady(snap)
		}
		return summaryResponse{Summary: *snap.Summary, LoadedAt: snap.LoadedAt}, nil
	}
}

// reloadEndpoint never fails: the outcome is described in the response so
// callers can show the message. A caller hanging up does not abort the
// reload.
func reloadEndpoint(svc *dashboard.Service) kit.Endpoint {
	return func(ctx context.Context, _ any) (any, error) {
		snap, _ := svc.Reload(context.WithoutCancel(ctx))
		resp := reloadResponse{
			Ready:    snap.Ready(),
			Rows:     snap.Rows,
			Points:   len(snap.Points),
			LoadedAt: snap.LoadedAt,
			Error:    snap.Error,
			Warnings: snap.Warnings,
		}
		if snap.Survey != nil {
			resp.Total = snap.Survey.Total
		}
		return resp, nil
	}
}

func selectDistrictEndpoint(svc *dashboard.Service) kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		req := request.(*selectRequest)
		msg, err := svc.SelectDistrict(req.District)
		if err != nil {
			return nil, err
		}
		return selectionResponse{District: msg.District}, nil
	}
}

func pointsEndpoint(svc *dashboard.Service) kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		req := request.(*pointsRequest)
		district := req.District
		if district != "" {
			district = svc.Scheme().District.Normalize(district)
		}
		points := svc.PointsIn(district)
		return pointsResponse{District: district, Count: len(points), Points: points}, nil
	}
}

func pointStatsEndpoint(svc *dashboard.Service) kit.Endpoint {
	return func(_ context.Context, _ any) (any, error) {
		snap := svc.Snapshot()
		return pointStatsResponse{Total: len(snap.Points), Kinds: snap.PointStats}, nil
	}
}
