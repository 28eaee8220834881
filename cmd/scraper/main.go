package main

import (
	"context"
	"flag"
	"log"
	"strings"
	"time"

	"skills-tracker/internal/app"
	"skills-tracker/internal/config"
	"skills-tracker/internal/database/migration"
	"skills-tracker/internal/domain/skill"
)

func main() {
	source := flag.String("source", "all", "source to scrape (github|npm|pypi|huggingface|all)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	c, err := app.NewContainer(cfg, log.Default())
	if err != nil {
		log.Fatalf("failed to init container: %v", err)
	}
	defer func() {
		_ = c.Close()
	}()

	migCtx, migCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer migCancel()
	r := migration.Runner{Dir: "migrations"}
	if err := r.Run(migCtx, c.DB.SQLDB()); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	var targets []skill.Source
	raw := strings.TrimSpace(strings.ToLower(*source))
	if raw == "" || raw == "all" {
		targets = skill.Sources()
	} else {
		src, err := skill.ParseSource(raw)
		if err != nil {
			log.Fatalf("invalid -source: %v", err)
		}
		targets = []skill.Source{src}
	}

	failed := false
	for _, src := range targets {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		outcome, err := c.Scheduler.TriggerNow(ctx, src)
		cancel()
		if err != nil {
			log.Fatalf("trigger failed: source=%s err=%v", src, err)
		}
		if outcome.Failed() {
			failed = true
			log.Printf("scrape failed | source=%s error=%s", src, outcome.Message)
			continue
		}
		log.Printf("scrape completed | source=%s items=%d", src, outcome.ItemsScraped)
	}

	if failed {
		log.Fatal("one or more sources failed")
	}
}
