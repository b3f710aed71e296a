package api

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/qoparu/qoparu/pkg/dashboard"
	"github.com/qoparu/qoparu/pkg/kit"
	"github.com/qoparu/qoparu/pkg/mapbridge"
)

// SelectionNotification is the MCP notification method for selection changes.
const SelectionNotification = "notifications/district_selection"

// RegisterMCPTools registers the dashboard MCP tools on the server.
func RegisterMCPTools(srv *server.MCPServer, svc *dashboard.Service, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	mw := func(name string) kit.Middleware {
		return kit.Chain(kit.RequestID(), kit.Logging(logger, name))
	}

	kit.RegisterMCPTool(srv,
		mcp.NewTool("survey_results",
			mcp.WithDescription("Aggregated survey results for the eight Almaty districts: age groups, districts and activity frequency with counts, percentages and chart colors."),
		),
		mw("survey_results")(surveyResultsEndpoint(svc)),
		kit.NoArgs,
	)

	kit.RegisterMCPTool(srv,
		mcp.NewTool("survey_summary",
			mcp.WithDescription("Descriptive statistics over all survey rows: unique values, most frequent categories and data completeness ratios."),
		),
		mw("survey_summary")(surveySummaryEndpoint(svc)),
		kit.NoArgs,
	)

	kit.RegisterMCPTool(srv,
		mcp.NewTool("reload_survey",
			mcp.WithDescription("Fetch the survey CSV, recommendation points and district boundaries again and rebuild the dashboard."),
		),
		mw("reload_survey")(reloadEndpoint(svc)),
		kit.NoArgs,
	)

	kit.RegisterMCPTool(srv,
		mcp.NewTool("select_district",
			mcp.WithDescription("Select a district on the map. Selecting the current district again, or an empty name, clears the selection."),
			mcp.WithString("district", mcp.Description("District name in Russian or Kazakh, e.g. Медеуский")),
		),
		mw("select_district")(selectDistrictEndpoint(svc)),
		func(req mcp.CallToolRequest) (any, error) {
			district, _ := req.GetArguments()["district"].(string)
			return &selectRequest{District: district}, nil
		},
	)

	kit.RegisterMCPTool(srv,
		mcp.NewTool("point_stats",
			mcp.WithDescription("Number of recommended sports objects per kind (workout, football, basketball, general)."),
		),
		mw("point_stats")(pointStatsEndpoint(svc)),
		kit.NoArgs,
	)
}

// ForwardSelections pushes every selection change of hub to all MCP
// sessions until ctx is cancelled.
func ForwardSelections(ctx context.Context, srv *server.MCPServer, hub *mapbridge.Hub) {
	msgs, cancel := hub.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			sc, isSelection := msg.(mapbridge.SelectionChanged)
			if !isSelection {
				continue
			}
			var district any
			if sc.District != nil {
				district = *sc.District
			}
			srv.SendNotificationToAllClients(SelectionNotification, map[string]any{
				"district": district,
			})
		}
	}
}
