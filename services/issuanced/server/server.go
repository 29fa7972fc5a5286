package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"chronicles/gateway/middleware"
	"chronicles/native/issuance"
	"chronicles/services/issuanced/index"
)

// Rate limit groups understood by the router.
const (
	LimitRead  = "read"
	LimitWrite = "write"
	LimitMint  = "mint"
)

// Config defines HTTP server parameters.
type Config struct {
	ListenAddress      string
	ShutdownTimeout    time.Duration
	StreamOrigins      []string
	StreamWriteTimeout time.Duration
	CORS               middleware.CORSConfig
}

// MintIndex is the read-side projection backing the gallery endpoints.
type MintIndex interface {
	Gallery(ctx context.Context, q index.Query) ([]index.Mint, error)
	FeeTotals(ctx context.Context, q index.Query) ([]index.FeeTotal, error)
}

// Options carries the collaborators of the server. Engine is required;
// the rest fall back to permissive defaults.
type Options struct {
	Engine        *issuance.Engine
	Hub           *Hub
	Index         MintIndex
	Auth          *middleware.Authenticator
	Limiter       *middleware.RateLimiter
	Observability *middleware.Observability
	Logger        *slog.Logger
}

// Server exposes the issuance engine over HTTP.
type Server struct {
	cfg     Config
	engine  *issuance.Engine
	hub     *Hub
	index   MintIndex
	auth    *middleware.Authenticator
	limiter *middleware.RateLimiter
	obs     *middleware.Observability
	logger  *slog.Logger
	router  http.Handler
}

// New constructs a new HTTP server.
func New(cfg Config, opts Options) (*Server, error) {
	if opts.Engine == nil {
		return nil, fmt.Errorf("issuance engine required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}
	if cfg.StreamWriteTimeout <= 0 {
		cfg.StreamWriteTimeout = 10 * time.Second
	}
	if len(cfg.StreamOrigins) == 0 {
		cfg.StreamOrigins = []string{"*"}
	}
	srv := &Server{
		cfg:     cfg,
		engine:  opts.Engine,
		hub:     opts.Hub,
		index:   opts.Index,
		auth:    opts.Auth,
		limiter: opts.Limiter,
		obs:     opts.Observability,
		logger:  logger.With("component", "server"),
	}
	if srv.hub == nil {
		srv.hub = NewHub(0, logger)
	}
	if srv.auth == nil {
		srv.auth = middleware.NewAuthenticator(middleware.AuthConfig{}, logger)
	}
	if srv.limiter == nil {
		srv.limiter = middleware.NewRateLimiter(nil, logger)
	}
	if srv.obs == nil {
		srv.obs = middleware.NewObservability(middleware.ObservabilityConfig{}, logger)
	}
	srv.router = srv.buildRouter()
	return srv, nil
}

// Handler exposes the configured HTTP router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Hub returns the event hub the websocket stream reads from.
func (s *Server) Hub() *Hub {
	return s.hub
}

func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(s.cfg.CORS))

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", s.obs.MetricsHandler())

	r.Route("/v1", func(v1 chi.Router) {
		v1.Group(func(read chi.Router) {
			read.Use(s.limiter.Middleware(LimitRead))
			read.With(s.obs.Middleware("config")).Get("/config", s.handleConfig)
			read.With(s.obs.Middleware("quote")).Get("/quote", s.handleQuote)
			read.With(s.obs.Middleware("guard")).Get("/guards/{asset}", s.handleGuard)
			read.With(s.obs.Middleware("asset")).Get("/assets/{asset}", s.handleAsset)
			read.With(s.obs.Middleware("collection")).Get("/collections/{id}", s.handleCollection)
			read.With(s.obs.Middleware("balances")).Get("/balances", s.handleBalances)
			read.With(s.obs.Middleware("balance")).Get("/balances/{id}", s.handleBalance)
			read.With(s.obs.Middleware("rugged")).Get("/rugged/{owner}", s.handleRuggedUser)
			read.With(s.obs.Middleware("gallery")).Get("/gallery", s.handleGallery)
			read.With(s.obs.Middleware("fee_totals")).Get("/fees/totals", s.handleFeeTotals)
			read.Get("/events/ws", s.handleEventsWS)
		})

		v1.Group(func(write chi.Router) {
			write.Use(s.auth.Middleware())
			write.Use(s.limiter.Middleware(LimitWrite))
			write.With(s.obs.Middleware("initialize")).Post("/admin/initialize", s.handleInitialize)
			write.With(s.obs.Middleware("create_collection")).Post("/admin/collections", s.handleCreateCollection)
			write.With(s.obs.Middleware("update_collection_ref")).Put("/admin/collections/{role}/ref", s.handleUpdateCollectionRef)
			write.With(s.obs.Middleware("update_collection_metadata")).Put("/admin/collections/{role}/metadata", s.handleUpdateCollectionMetadata)
			write.With(s.obs.Middleware("add_royalties")).Post("/admin/royalties", s.handleAddRoyalties)
			write.With(s.obs.Middleware("update_fees")).Put("/admin/fees", s.handleUpdateFees)
			write.With(s.obs.Middleware("update_minimum_payment")).Put("/admin/minimum-payment", s.handleUpdateMinimumPayment)
			write.With(s.obs.Middleware("toggle_pause")).Post("/admin/pause", s.handleTogglePause)
			write.With(s.obs.Middleware("verify_rugged")).Post("/admin/rugged/{owner}/verify", s.handleVerifyRugged)
			write.With(s.obs.Middleware("register_rugged")).Post("/rugged", s.handleRegisterRugged)
			write.With(s.obs.Middleware("add_freeze_delegate")).Post("/assets/{asset}/freeze-delegate", s.handleAddFreezeDelegate)
			write.With(s.obs.Middleware("freeze")).Post("/assets/{asset}/freeze", s.handleFreeze)
			write.With(s.obs.Middleware("thaw")).Post("/assets/{asset}/thaw", s.handleThaw)
		})

		v1.Group(func(mint chi.Router) {
			mint.Use(s.auth.Middleware())
			mint.Use(s.limiter.Middleware(LimitMint))
			mint.With(s.obs.Middleware("mint_standard")).Post("/mint/standard", s.handleMintStandard)
			mint.With(s.obs.Middleware("mint_scammed")).Post("/mint/scammed", s.handleMintScammed)
			mint.With(s.obs.Middleware("mint_rugged")).Post("/mint/rugged", s.handleMintRugged)
		})
	})

	return otelhttp.NewHandler(r, "issuanced")
}

// Run starts the HTTP server and blocks until context cancellation.
func (s *Server) Run(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("server not configured")
	}
	srv := &http.Server{
		Addr:              s.cfg.ListenAddress,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("http shutdown", "error", err)
		}
	}()

	s.logger.Info("listening", "address", s.cfg.ListenAddress)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return ctx.Err()
}

type healthResponse struct {
	Status      string `json:"status"`
	Initialized bool   `json:"initialized"`
	Paused      bool   `json:"paused"`
	Subscribers int    `json:"subscribers"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Subscribers: s.hub.Subscribers()}
	cfg, err := s.engine.Config(r.Context())
	switch {
	case err == nil:
		resp.Initialized = true
		resp.Paused = cfg.Paused
	case errors.Is(err, issuance.ErrNotInitialized):
	default:
		s.logger.ErrorContext(r.Context(), "health check", "error", err)
		resp.Status = "degraded"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
