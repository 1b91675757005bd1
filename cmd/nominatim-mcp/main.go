// Command nominatim-mcp exposes the Nominatim client as MCP tools over
// stdio, so agents can geocode without talking HTTP themselves.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/NERVsystems/nominatim/pkg/nominatim"
	ver "github.com/NERVsystems/nominatim/pkg/version"
)

const serverName = "nominatim-mcp-server"

var (
	debug     bool
	userAgent string
	baseURL   string
)

func init() {
	flag.BoolVar(&debug, "debug", false, "Enable debug logging")
	flag.StringVar(&userAgent, "user-agent", serverName+"/"+ver.BuildVersion, "User-Agent identification string")
	flag.StringVar(&baseURL, "base-url", nominatim.DefaultBaseURL, "Nominatim server base URL")
}

func main() {
	flag.Parse()

	var logLevel slog.Level
	if debug {
		logLevel = slog.LevelDebug
	} else {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	ident, err := nominatim.UserAgent(userAgent)
	if err != nil {
		logger.Error("invalid user agent", "error", err)
		os.Exit(1)
	}

	client := nominatim.New(ident)
	client.SetLogger(logger)
	if baseURL != nominatim.DefaultBaseURL {
		if err := client.SetBaseURL(baseURL); err != nil {
			logger.Error("invalid base URL", "error", err)
			os.Exit(1)
		}
	}

	logger.Info("initializing Nominatim MCP server",
		"name", serverName,
		"version", ver.BuildVersion,
	)

	srv := mcpserver.NewMCPServer(
		serverName,
		ver.BuildVersion,
		mcpserver.WithToolCapabilities(false),
		mcpserver.WithRecovery(),
	)

	srv.AddTool(statusTool(), handleStatus(client))
	srv.AddTool(searchTool(), handleSearch(client))
	srv.AddTool(reverseTool(), handleReverse(client))
	srv.AddTool(lookupTool(), handleLookup(client))

	if err := mcpserver.ServeStdio(srv); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func statusTool() mcp.Tool {
	return mcp.NewTool("nominatim_status",
		mcp.WithDescription("Check the health of the Nominatim geocoding server"),
	)
}

func handleStatus(client *nominatim.Client) func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		status, err := client.Status(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Status check failed: %v", err)), nil
		}
		return resultJSON(status)
	}
}

func searchTool() mcp.Tool {
	return mcp.NewTool("nominatim_search",
		mcp.WithDescription("Search for places matching a free-text description and return geocoded results"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Free-text place description, e.g. 'statue of liberty'"),
		),
	)
}

func handleSearch(client *nominatim.Client) func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query := mcp.ParseString(req, "query", "")
		if query == "" {
			return mcp.NewToolResultError("Missing required parameter: query"), nil
		}

		places, err := client.Search(ctx, query)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Search failed: %v", err)), nil
		}
		return resultJSON(places)
	}
}

func reverseTool() mcp.Tool {
	return mcp.NewTool("nominatim_reverse",
		mcp.WithDescription("Convert a latitude/longitude pair into a structured place description"),
		mcp.WithString("latitude",
			mcp.Required(),
			mcp.Description("Latitude as a decimal string"),
		),
		mcp.WithString("longitude",
			mcp.Required(),
			mcp.Description("Longitude as a decimal string"),
		),
		mcp.WithNumber("zoom",
			mcp.Description("Administrative granularity of the result (0-18)"),
			mcp.DefaultNumber(-1),
		),
	)
}

func handleReverse(client *nominatim.Client) func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		latitude := mcp.ParseString(req, "latitude", "")
		longitude := mcp.ParseString(req, "longitude", "")
		if latitude == "" || longitude == "" {
			return mcp.NewToolResultError("Missing required parameters: latitude, longitude"), nil
		}

		var zoom *int
		if z := int(mcp.ParseFloat64(req, "zoom", -1)); z >= 0 {
			zoom = &z
		}

		place, err := client.Reverse(ctx, latitude, longitude, zoom)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Reverse geocoding failed: %v", err)), nil
		}
		return resultJSON(place)
	}
}

func lookupTool() mcp.Tool {
	return mcp.NewTool("nominatim_lookup",
		mcp.WithDescription("Look up OSM Node, Way or Relation identifiers, e.g. 'R146656,W50637691'"),
		mcp.WithString("osm_ids",
			mcp.Required(),
			mcp.Description("Comma-separated OSM identifiers"),
		),
	)
}

func handleLookup(client *nominatim.Client) func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		raw := mcp.ParseString(req, "osm_ids", "")
		if raw == "" {
			return mcp.NewToolResultError("Missing required parameter: osm_ids"), nil
		}

		var ids []string
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
		if len(ids) == 0 {
			return mcp.NewToolResultError("No OSM identifiers given"), nil
		}

		places, err := client.Lookup(ctx, ids)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Lookup failed: %v", err)), nil
		}
		return resultJSON(places)
	}
}

func resultJSON(v any) (*mcp.CallToolResult, error) {
	out, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError("Failed to generate result"), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}
