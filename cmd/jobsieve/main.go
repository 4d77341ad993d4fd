package main

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/joho/godotenv"

	"jobsieve/internal/ai"
	"jobsieve/internal/config"
	"jobsieve/internal/mail"
	"jobsieve/internal/parse"
	"jobsieve/internal/scan"
	"jobsieve/internal/secrets"
	"jobsieve/internal/store"
)

func main() {
	// .env is optional; real deployments use the environment directly.
	_ = godotenv.Load()

	dataDir := os.Getenv("JOBSIEVE_DATA_DIR")
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		log.Fatal(err)
	}

	userCfgPath, err := config.EnsureUserConfig(dataDir)
	if err != nil {
		log.Fatalf("config bootstrap failed: %v", err)
	}

	cfg, err := config.Load(userCfgPath)
	if err != nil {
		log.Fatalf("config load failed (%s): %v", userCfgPath, err)
	}
	cfg, val := config.NormalizeAndValidate(cfg)
	for _, w := range val.Warnings {
		log.Printf("[config] warning: %s", w)
	}
	if !val.OK() {
		for _, e := range val.Errors {
			log.Printf("[config] error: %s", e)
		}
		log.Fatalf("config invalid (%s)", userCfgPath)
	}
	if cfg.App.DataDir != "" {
		dataDir = cfg.App.DataDir
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			log.Fatal(err)
		}
	}

	// One scan at a time per data dir; overlapping runs would race the
	// watermark.
	lock := flock.New(filepath.Join(dataDir, "scan.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		log.Fatalf("scan lock: %v", err)
	}
	if !locked {
		log.Fatalf("another scan is already running (lock held in %s)", dataDir)
	}
	defer func() { _ = lock.Unlock() }()

	db, err := store.Open(filepath.Join(dataDir, "jobsieve.db"))
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()
	if err := store.Migrate(db.Pool); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if err := store.SeedBuiltinSources(ctx, db.Pool); err != nil {
		log.Fatalf("seed sources: %v", err)
	}

	var provider ai.Provider
	if cfg.AI.Enabled {
		apiKey := os.Getenv(cfg.AI.APIKeyEnv)
		switch cfg.AI.Provider {
		case "gemini":
			g, err := ai.NewGeminiProvider(ctx, apiKey, cfg.AI.Model)
			if err != nil {
				log.Fatalf("gemini provider: %v", err)
			}
			defer func() { _ = g.Close() }()
			provider = g
		case "openai":
			provider = ai.NewOpenAIProvider(cfg.AI.BaseURL, apiKey, cfg.AI.Model)
		}
	}

	registry := parse.NewRegistry(&parse.AIParser{Provider: provider, MaxTokens: cfg.AI.MaxTokens})
	registry.Register(&parse.LinkedIn{})
	registry.Register(&parse.Indeed{})
	registry.Register(&parse.Greenhouse{})
	registry.Register(&parse.Wellfound{})

	wwr := parse.NewWeWorkRemotely(cfg.Feeds.URLs, time.Duration(cfg.Feeds.LookbackDays)*24*time.Hour)
	registry.Register(wwr)

	var feeds scan.FeedFetcher
	if cfg.Feeds.Enabled {
		feeds = wwr
	}

	var client mail.Client
	if cfg.Email.Enabled {
		password, err := secrets.GetIMAPPassword(cfg.Email.KeyringAccount)
		if err != nil {
			log.Fatalf("imap credentials: %v", err)
		}
		imapClient, err := mail.Dial(ctx, cfg.Email.IMAPHost, cfg.Email.IMAPPort,
			cfg.Email.Username, password, cfg.Email.Mailbox)
		if err != nil {
			log.Fatalf("imap connect: %v", err)
		}
		defer imapClient.Close()
		client = imapClient
	}

	scanner := &scan.Scanner{
		Mail:         client,
		DB:           db.Pool,
		Registry:     registry,
		Feeds:        feeds,
		LookbackDays: cfg.Scan.LookbackDays,
		MaxResults:   cfg.Scan.MaxResults,
	}

	rep, err := scanner.RunOnce(ctx)
	if err != nil {
		log.Fatalf("scan: %v", err)
	}

	for _, e := range rep.Errors {
		log.Printf("[main] phase error: %s", e)
	}
	for _, c := range rep.Candidates {
		log.Printf("[main] new sender candidate: %s (%d messages)", c.Sender, c.Count)
	}
	log.Printf("[main] scan finished in %s: %d new jobs (%d found), %d follow-ups",
		rep.Completed.Sub(rep.Started).Round(time.Millisecond), rep.JobsNew, rep.JobsFound, rep.FollowUps)
}
