package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"rich-edit/pkg/config"
	"rich-edit/pkg/db"
	"rich-edit/pkg/editor"
	"rich-edit/pkg/handlers"
	"rich-edit/pkg/imagestore"
	"rich-edit/pkg/metrics"
	"rich-edit/pkg/session"
)

// Server represents the application server
type Server struct {
	router   *mux.Router
	sessions *session.Manager
	handlers *handlers.Handlers
	docStore db.IDocumentStore
	config   *config.Config
}

// NewServer wires storage, image uploads, sessions and routes
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	logger := slog.Default()

	docStore, err := newDocumentStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	images, err := newImageStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	sessions := session.NewManager(docStore, images, editor.Options{
		Placeholder:     cfg.EditorPlaceholder,
		MaxImageSize:    cfg.EditorMaxImageWidth,
		Compact:         cfg.EditorCompact,
		PreviewFallback: cfg.EditorPreviewFallback,
		Logger:          logger,
	})

	h := handlers.NewHandlers(sessions, docStore, images, logger)

	reg := prometheus.NewRegistry()
	if err := metrics.Register(reg); err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	r := mux.NewRouter()
	h.Register(r)
	r.Handle("/metrics", metrics.Handler(reg)).Methods(http.MethodGet)

	return &Server{
		router:   r,
		sessions: sessions,
		handlers: h,
		docStore: docStore,
		config:   cfg,
	}, nil
}

func newDocumentStore(ctx context.Context, cfg *config.Config) (db.IDocumentStore, error) {
	connStr := cfg.GetDatabaseConnectionString()
	if connStr == "" {
		log.Printf("DB_HOST not set, keeping documents in memory")
		return db.NewMemoryDocumentStore(), nil
	}
	store, err := db.NewPostgresDocumentStore(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return store, nil
}

// newImageStore prefers a bucket, then a remote upload endpoint. Without
// either, image uploads are disabled.
func newImageStore(ctx context.Context, cfg *config.Config) (imagestore.Store, error) {
	var store imagestore.Store
	switch {
	case cfg.HasMinio():
		minioStore, err := imagestore.NewMinioStore(ctx, cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey,
			cfg.MinioUseSSL, cfg.MinioBucket, cfg.MinioPublicURL)
		if err != nil {
			return nil, fmt.Errorf("connect to minio: %w", err)
		}
		store = minioStore
	case cfg.ImageStoreURL != "":
		store = imagestore.NewClient(cfg.ImageStoreURL)
	default:
		log.Printf("No image store configured, uploads are disabled")
		return nil, nil
	}

	if cfg.CompressImages {
		store = imagestore.Compressing(store)
	}
	return store, nil
}

// Handler is the router wrapped in the CORS middleware
func (s *Server) Handler() http.Handler {
	return corsMiddleware(s.router)
}

// Run serves until ctx is done, then saves open sessions
func (s *Server) Run(ctx context.Context) error {
	addr := s.config.GetServerAddr()
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting editor server on %s (%s)", addr, s.config)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Printf("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}
	return err
}

// corsMiddleware handles CORS headers and responds to preflight requests
// at the outer layer so they don't get rejected by method-restricted routes.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}

		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")

		if reqHeaders := r.Header.Get("Access-Control-Request-Headers"); reqHeaders != "" {
			w.Header().Set("Access-Control-Allow-Headers", reqHeaders)
		} else {
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}

		w.Header().Set("Access-Control-Max-Age", "600")
		w.Header().Add("Vary", "Origin")
		w.Header().Add("Vary", "Access-Control-Request-Headers")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Close saves and stops every session, then closes the database
func (s *Server) Close() error {
	s.sessions.Close()
	if postgresStore, ok := s.docStore.(*db.PostgresDocumentStore); ok {
		return postgresStore.Close()
	}
	return nil
}
