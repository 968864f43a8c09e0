package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/nathanbai50/hacklytics/internal/upload"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	serverURL := flag.String("server", "", "hacklytics server URL (e.g. https://hacklytics.tail1234.ts.net)")
	apiKey := flag.String("api-key", os.Getenv("HACKLYTICS_AUTH_API_KEY"), "server API key (defaults to HACKLYTICS_AUTH_API_KEY)")
	userID := flag.String("user", "", "user ID to save workouts under")
	videoDir := flag.String("path", "", "path to directory of set recordings (.mp4/.mov)")
	dryRun := flag.Bool("dry-run", false, "report which videos would be analyzed without sending them")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("hacklytics-upload", Version)
		return
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *videoDir == "" {
		fmt.Fprintf(os.Stderr, "Usage: hacklytics-upload -server <URL> -user <id> -path <video dir> [-dry-run]\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if !*dryRun && (*serverURL == "" || *userID == "" || *apiKey == "") {
		fmt.Fprintf(os.Stderr, "Error: -server, -user, and -api-key are required (or use -dry-run)\n")
		os.Exit(1)
	}

	*serverURL = strings.TrimRight(*serverURL, "/")

	info, err := os.Stat(*videoDir)
	if err != nil || !info.IsDir() {
		log.Error("video directory not found", "path", *videoDir)
		os.Exit(1)
	}

	// Open state database
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Error("failed to get home directory", "error", err)
		os.Exit(1)
	}
	stateDir := filepath.Join(homeDir, ".hacklytics-upload")

	state, err := upload.OpenStateDB(stateDir)
	if err != nil {
		log.Error("failed to open state database", "error", err)
		os.Exit(1)
	}
	defer state.Close()

	if *dryRun {
		log.Info("DRY RUN mode — videos will be listed but not sent")
	}

	client := upload.NewClient(*serverURL, *apiKey, *userID)
	uploader := upload.New(client, state, *videoDir, *dryRun, log)
	stats, err := uploader.Run()
	if err != nil {
		log.Error("upload failed", "error", err)
		printStats(stats)
		os.Exit(1)
	}

	printStats(stats)
	log.Info("upload complete")
}

func printStats(stats *upload.Stats) {
	fmt.Println()
	fmt.Println("=== Upload Summary ===")
	fmt.Printf("  Videos total:     %d\n", stats.FilesTotal)
	fmt.Printf("  Videos analyzed:  %d\n", stats.FilesAnalyzed)
	fmt.Printf("  Videos skipped:   %d (already analyzed)\n", stats.FilesSkipped)
	fmt.Printf("  Videos errored:   %d\n", stats.FilesErrored)
	fmt.Printf("  Valid reps scored: %d\n", stats.RepsScored)
	fmt.Println()
}
