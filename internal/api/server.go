// Package api serves the channel directory over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/criollotv/criollotv/internal/auth"
	"github.com/criollotv/criollotv/internal/cache"
	"github.com/criollotv/criollotv/internal/config"
	"github.com/criollotv/criollotv/internal/favorites"
	"github.com/criollotv/criollotv/internal/indexer"
	"github.com/criollotv/criollotv/internal/logging"
	"github.com/criollotv/criollotv/internal/metrics"
)

// FavoritesDB hands out per-device favorites stores.
type FavoritesDB interface {
	ForDevice(device string) (favorites.Store, error)
}

// Server is the HTTP surface. Every dependency is passed in; there is no
// package-level state apart from the metrics registry.
type Server struct {
	Addr      string
	Cache     *cache.Cache
	Settings  *config.SettingsStore
	Auth      *auth.Authorizer
	Favorites FavoritesDB // nil disables /api/favorites
	PublicDir string      // "" disables static files
	Log       *logrus.Entry

	// NewSource builds the cache source for a playlist URL saved by an admin.
	NewSource func(m3uURL string) cache.Source
	// Header returns the #EXTM3U attributes of the last playlist, for /api/debug.
	Header func() indexer.Header

	AdminRate  float64
	AdminBurst int
	TrustProxy bool

	started time.Time
	limiter *ipLimiter
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	if s.started.IsZero() {
		s.started = time.Now()
	}
	if s.Log == nil {
		s.Log = logrus.NewEntry(logrus.StandardLogger())
	}
	s.limiter = newIPLimiter(s.AdminRate, s.AdminBurst, s.TrustProxy)

	r := mux.NewRouter()
	r.Use(metrics.Middleware)

	r.Handle("/healthz", s.serveHealth()).Methods(http.MethodGet, http.MethodHead)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	a := r.PathPrefix("/api").Subrouter()
	a.HandleFunc("/channels", s.handleChannels).Methods(http.MethodGet)
	a.HandleFunc("/config", s.handleConfig).Methods(http.MethodGet)
	a.HandleFunc("/debug", s.handleDebug).Methods(http.MethodGet)
	a.HandleFunc("/favorites", s.handleFavorites).Methods(http.MethodGet)
	a.HandleFunc("/favorites/toggle", s.handleFavoriteToggle).Methods(http.MethodPost)

	limited := a.NewRoute().Subrouter()
	limited.Use(s.limiter.middleware)
	limited.HandleFunc("/auth/hwid", s.handleAuthHWID).Methods(http.MethodPost)
	limited.HandleFunc("/admin/m3u", s.handleAdminM3U).Methods(http.MethodPost)
	limited.HandleFunc("/admin/refresh", s.handleAdminRefresh).Methods(http.MethodPost)

	a.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	})
	if s.PublicDir != "" {
		r.PathPrefix("/").Handler(spaHandler(s.PublicDir)).Methods(http.MethodGet, http.MethodHead)
	}
	return s.logRequests(cors(r))
}

// Run blocks until ctx is cancelled or the server fails to start. On shutdown it stops
// accepting new connections and waits briefly for in-flight requests to finish.
func (s *Server) Run(ctx context.Context) error {
	addr := s.Addr
	if addr == "" {
		addr = ":3000"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		s.Log.WithFields(logrus.Fields{
			"addr":        addr,
			"admin_hwids": s.Auth.AdminHWIDCount(),
			"m3u_url":     logging.RedactURL(s.Settings.Get().M3UURL),
		}).Info("listening")
		serverErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		s.Log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.Log.WithError(err).Warn("shutdown")
		}
		<-serverErr
		return nil
	}
}
