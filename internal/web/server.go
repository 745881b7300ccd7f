package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sloppy/nettools/internal/db"
	"github.com/sloppy/nettools/internal/geo"
	"github.com/sloppy/nettools/internal/runs"
)

// Server wires the web handlers and dependencies.
type Server struct {
	DB       *db.DB
	Runs     *runs.Manager
	Resolver geo.Resolver
	Locator  geo.Locator
	Logger   *slog.Logger
	Now      func() time.Time
	Router   chi.Router
}

// NewServer constructs the router and registers routes. database may be nil,
// in which case lookups are not recorded and history pages are empty.
func NewServer(database *db.DB, manager *runs.Manager, resolver geo.Resolver, locator geo.Locator, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	server := &Server{
		DB:       database,
		Runs:     manager,
		Resolver: resolver,
		Locator:  locator,
		Logger:   logger,
		Now:      time.Now,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(sameOrigin)

	r.Get("/", server.handleHome)
	r.Route("/tools", func(r chi.Router) {
		r.Get("/my-location", server.handleMyLocationPage)
		r.Get("/ip-whois", server.handleWhoisPage)
		r.Get("/mac-lookup", server.handleMACPage)
		r.Get("/dns-lookup", server.handleDNSPage)
		r.Get("/port-scanner", server.handleScanPage)
		r.Post("/port-scanner", server.handleScanSubmit)
		r.Get("/ping-test", server.handlePingPage)
		r.Post("/ping-test", server.handlePingSubmit)
		r.Get("/speed-test", server.handleSpeedPage)
		r.Post("/speed-test", server.handleSpeedSubmit)
	})
	r.Get("/runs/{id}", server.handleRunPage)
	r.Post("/runs/{id}/stop", server.handleRunStopForm)
	r.Post("/runs/{id}/reset", server.handleRunResetForm)
	r.Get("/history", server.handleHistoryPage)
	r.Post("/history/clear", server.handleHistoryClear)

	r.Route("/api", func(r chi.Router) {
		r.Get("/myip", server.handleAPIMyIP)
		r.Get("/whois/{ip}", server.handleAPIWhois)
		r.Get("/mac/{mac}", server.handleAPIMAC)
		r.Get("/dns", server.handleAPIDNS)
		r.Post("/scans", server.handleAPIStartScan)
		r.Post("/pings", server.handleAPIStartPing)
		r.Post("/speedtests", server.handleAPIStartSpeed)
		r.Get("/runs", server.handleAPIListRuns)
		r.Get("/runs/{id}", server.handleAPIGetRun)
		r.Post("/runs/{id}/stop", server.handleAPIStopRun)
		r.Post("/runs/{id}/reset", server.handleAPIResetRun)
		r.Get("/history", server.handleAPIHistory)
		r.Delete("/history", server.handleAPIDeleteHistory)
		r.Get("/export", server.handleExport)
	})

	server.Router = r
	return server
}

// Handler exposes the configured router.
func (s *Server) Handler() http.Handler {
	return s.Router
}
