package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/nathanbai50/hacklytics/internal/mcp"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	serverURL := flag.String("server", "", "hacklytics server URL")
	apiKey := flag.String("api-key", os.Getenv("HACKLYTICS_AUTH_API_KEY"), "server API key (defaults to HACKLYTICS_AUTH_API_KEY)")
	userID := flag.String("user", "", "user ID to query data for")
	flag.Parse()

	// stdout carries the MCP protocol; logs go to stderr.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *serverURL == "" || *userID == "" || *apiKey == "" {
		fmt.Fprintf(os.Stderr, "Usage: hacklytics-mcp -server <URL> -user <id> -api-key <key>\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	ds := mcp.NewHTTPClient(*serverURL, *apiKey, *userID)
	s := mcp.New(ds, *userID, Version, log)

	if err := server.ServeStdio(s); err != nil {
		log.Error("mcp server error", "error", err)
		os.Exit(1)
	}
}
