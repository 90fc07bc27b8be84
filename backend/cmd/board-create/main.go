// Command board-create adds a board.
//
// Usage:
//
//	board-create -title "Foo Bar" [-slug foo_bar] [-description ...] [-post_delay 10] [-max_posts 1000] [-status open]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/itchan-dev/itboard/backend/internal/storage/pg"
	"github.com/itchan-dev/itboard/shared/config"
	"github.com/itchan-dev/itboard/shared/domain"
	"github.com/itchan-dev/itboard/shared/logger"
)

func main() {
	var (
		configFolder string
		title        string
		slug         string
		description  string
		status       string
		postDelay    int
		maxPosts     int
		name         string
	)
	flag.StringVar(&configFolder, "config_folder", "backend/config", "path to folder with configs")
	flag.StringVar(&title, "title", "", "board title (required)")
	flag.StringVar(&slug, "slug", "", "board slug; defaults to the title lowercased with spaces replaced by _")
	flag.StringVar(&description, "description", "", "board description")
	flag.StringVar(&status, "status", domain.StatusOpen, "open, restricted, locked or archived")
	flag.IntVar(&postDelay, "post_delay", domain.DefaultPostDelay, "seconds between submissions from one origin")
	flag.IntVar(&maxPosts, "max_posts", 0, "lock threads at this many replies; 0 disables")
	flag.StringVar(&name, "name", "", "default poster name")
	flag.Parse()

	if strings.TrimSpace(title) == "" {
		fmt.Fprintln(os.Stderr, "-title is required")
		flag.Usage()
		os.Exit(2)
	}
	if slug == "" {
		slug = Slugify(title)
	}

	cfg := config.MustLoad(configFolder)
	logger.Initialize(cfg.Public.LogLevel, cfg.Public.LogJSON)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	storage, err := pg.New(ctx, cfg, pg.DefaultConnectionConfig())
	if err != nil {
		logger.Log.Error("failed to connect", "error", err)
		os.Exit(1)
	}
	defer storage.Cleanup()

	if err := storage.Migrate(ctx); err != nil {
		logger.Log.Error("failed to migrate", "error", err)
		os.Exit(1)
	}

	id, err := storage.CreateBoard(ctx, domain.BoardCreationData{
		Title:       title,
		Slug:        slug,
		Description: description,
		Status:      status,
		Settings:    domain.BoardSettings{PostDelay: postDelay, MaxPosts: maxPosts, Name: name},
	})
	if err != nil {
		logger.Log.Error("failed to create board", "slug", slug, "error", err)
		os.Exit(1)
	}
	fmt.Printf("Created board %q (/%s/) with id %d.\n", title, slug, id)
}

// Slugify lowercases title and replaces spaces with underscores.
func Slugify(title string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(title)), " ", "_")
}
