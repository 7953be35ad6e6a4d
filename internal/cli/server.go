package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"assessment-engine/internal/app"
	"assessment-engine/internal/config"
	"assessment-engine/internal/domain"
	"assessment-engine/internal/infra/memory"
	"assessment-engine/internal/infra/postgres"
	infraredis "assessment-engine/internal/infra/redis"
	"assessment-engine/internal/logging"
	transport "assessment-engine/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the assessment API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	return logging.New(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	})
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var (
		bank  app.QuestionBank
		store app.Store
	)
	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return fmt.Errorf("connect question bank: %w", err)
		}
		defer pool.Close()
		db := openBun(cfg.Postgres.URL)
		defer db.Close()

		bank = postgres.NewQuestionBank(pool)
		store = postgres.NewStore(db)
	} else {
		log.Warn("postgres not configured, serving the in-memory demo bank")
		bank = memory.NewQuestionBank(sampleQuestions())
		store = memory.NewStore()
	}

	catalogTTL := config.TTLDuration(cfg.Catalog.TTL, 10*time.Minute)
	var catalog app.TestCatalog
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		catalog = infraredis.NewTestCatalog(client, store, catalogTTL, log.Named("catalog"))
	} else {
		catalog = memory.NewTestCatalog(store, catalogTTL)
	}

	engine := app.NewEngine(bank, store, catalog, cfg.Assembly.MaxQuestions, log)
	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      transport.NewRouter(engine, transport.NewMetrics(), log.Named("http")),
		ReadTimeout:  config.TTLDuration(cfg.Server.ReadTimeout, 15*time.Second),
		WriteTimeout: config.TTLDuration(cfg.Server.WriteTimeout, 15*time.Second),
	}

	go func() {
		log.Info("starting assessment engine", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("failed to start server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleQuestions seeds the demo bank; production reads the questions table.
func sampleQuestions() []domain.Question {
	prompts := map[domain.Mode][]string{
		domain.ModePractical: {
			"Which HTTP status signals a created resource?",
			"Which SQL clause filters grouped rows?",
			"Which git command rewrites the last commit?",
			"Which index type suits equality lookups?",
			"Which isolation level prevents dirty reads at minimum?",
		},
		domain.ModeLeveling: {
			"What does idempotent mean for an HTTP method?",
			"What is a race condition?",
			"What does a foreign key enforce?",
			"What is the purpose of a mutex?",
			"What is eventual consistency?",
		},
		domain.ModeSoftSkill: {
			"Describe how you handle conflicting priorities.",
			"Describe a time you received hard feedback.",
			"How do you explain a technical trade-off to a non-engineer?",
			"How do you onboard onto an unfamiliar codebase?",
			"Describe a mistake you made and what changed afterwards.",
		},
	}

	var out []domain.Question
	for _, bank := range domain.Banks {
		for i, prompt := range prompts[bank] {
			q := domain.Question{
				ID:     fmt.Sprintf("%s-%02d", bank, i+1),
				Bank:   string(bank),
				Sector: "backend",
				Level:  "jr",
				Prompt: prompt,
				Active: true,
			}
			if bank == domain.ModeSoftSkill {
				q.Kind = domain.KindOpenText
				q.Config = domain.AnswerConfig{MinChars: 20, MaxChars: 2000}
			} else {
				q.Kind = domain.KindSingleChoice
				q.Config = domain.AnswerConfig{
					Choices:       []domain.Choice{{ID: "a", Text: "Option A"}, {ID: "b", Text: "Option B"}, {ID: "c", Text: "Option C"}},
					CorrectChoice: "a",
				}
			}
			out = append(out, q)
		}
	}
	return out
}
