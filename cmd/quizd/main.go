package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	api "github.com/mind-engage/mindengage-quiz/internal/api/http"
	"github.com/mind-engage/mindengage-quiz/internal/assembly"
	"github.com/mind-engage/mindengage-quiz/internal/bank"
	"github.com/mind-engage/mindengage-quiz/internal/catalog"
	"github.com/mind-engage/mindengage-quiz/internal/config"
	"github.com/mind-engage/mindengage-quiz/internal/db"
	"github.com/mind-engage/mindengage-quiz/internal/scoring"
	"github.com/mind-engage/mindengage-quiz/internal/session"
	"github.com/mind-engage/mindengage-quiz/internal/stats"
	"github.com/mind-engage/mindengage-quiz/internal/storage"
	syncx "github.com/mind-engage/mindengage-quiz/internal/sync"
)

func main() {
	cfg := config.FromEnv()

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		log.Fatalf("catalog: %v", err)
	}

	// --- DB (stats + journal); the quiz still runs without it ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var kv stats.KV = stats.NewMemoryKV()
	var journal syncx.Journal
	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Printf("db open failed, stats kept in memory: %v", err)
	} else {
		defer dbh.Close()
		kv = stats.NewSQLKV(dbh)
		journal = syncx.NewEventRepo(dbh)
	}
	recorder := scoring.NewRecorder(ctx, stats.NewRepository(kv), journal)

	// --- Banks ---
	local, err := storage.NewFSStore(cfg.BankDir)
	if err != nil {
		log.Fatalf("blob store: %v", err)
	}
	fetcher, err := bankFetcher(cfg, local)
	if err != nil {
		log.Fatalf("bank source: %v", err)
	}
	asm := assembly.New(bank.NewSource(fetcher), cat, nil)
	asm.Concurrency = cfg.FetchParallel
	asm.Logf = log.Printf

	engine := session.NewEngine(session.Initial(cat), asm, recorder, session.GocronTicker(cfg.TickInterval))
	defer engine.Close()

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(cors.Handler(corsOptions(cfg)))

	r.Route("/quiz", func(qr chi.Router) {
		qr.Use(middleware.Timeout(60 * time.Second))
		api.MountQuiz(qr, engine, cat)
	})
	r.Route("/banks", func(br chi.Router) {
		api.MountBanks(br, local, cat)
	})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r}
	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		_ = srv.Shutdown(sctx)
	}()

	log.Printf("listening on %s (mode=%s, db=%s, banks=%s)", cfg.HTTPAddr, cfg.Mode, cfg.DBDriver, cfg.BankSource)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}

func bankFetcher(cfg config.Config, local storage.BlobStore) (bank.Fetcher, error) {
	switch cfg.BankSource {
	case "fs":
		return bank.BlobFetcher{Store: local}, nil
	case "http":
		if cfg.BankURL == "" {
			return nil, errors.New("BANK_URL is required for BANK_SOURCE=http")
		}
		origin := bank.NewHTTPFetcher(cfg.BankURL)
		if cfg.CacheDir == "" {
			return origin, nil
		}
		cache, err := storage.NewFSStore(cfg.CacheDir)
		if err != nil {
			return nil, err
		}
		return bank.CachedFetcher{Cache: cache, Origin: origin, Logf: log.Printf}, nil
	default:
		return nil, errors.New("unknown BANK_SOURCE: " + cfg.BankSource)
	}
}

func corsOptions(cfg config.Config) cors.Options {
	o := cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		ExposedHeaders: []string{"Content-Length"},
		MaxAge:         300,
	}
	if cfg.AllowAnyOrigin {
		o.AllowedOrigins = []string{"*"}
	}
	return o
}
