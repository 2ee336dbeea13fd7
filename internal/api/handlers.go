package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/criollotv/criollotv/internal/auth"
	"github.com/criollotv/criollotv/internal/catalog"
	"github.com/criollotv/criollotv/internal/config"
	"github.com/criollotv/criollotv/internal/logging"
	"github.com/criollotv/criollotv/internal/metrics"
	"github.com/criollotv/criollotv/internal/safeurl"
)

const maxBody = 1 << 20

type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type channelsBody struct {
	Success  bool              `json:"success"`
	Channels []catalog.Channel `json:"channels"`
	Error    string            `json:"error,omitempty"`
}

type messageBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Count   *int   `json:"count,omitempty"`
}

// adminRequest is the body of the admin and auth endpoints.
type adminRequest struct {
	HWID     string `json:"hwid"`
	Password string `json:"password"`
	Token    string `json:"token"`
	M3UURL   string `json:"m3uUrl"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeBody(r *http.Request, v any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if tok, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(tok)
	}
	return ""
}

func (s *Server) credentials(r *http.Request, req adminRequest) auth.Credentials {
	tok := req.Token
	if tok == "" {
		tok = bearerToken(r)
	}
	return auth.Credentials{HWID: req.HWID, Password: req.Password, Token: tok}
}

// authorize writes the 401 itself and returns false when creds are rejected.
func (s *Server) authorize(w http.ResponseWriter, endpoint string, c auth.Credentials) bool {
	if err := s.Auth.Authorize(c); err != nil {
		metrics.AdminAttempts.WithLabelValues(endpoint, "denied").Inc()
		s.Log.WithField("endpoint", endpoint).Warn("admin request rejected")
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "No autorizado"})
		return false
	}
	metrics.AdminAttempts.WithLabelValues(endpoint, "ok").Inc()
	return true
}

func (s *Server) handleChannels(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("refresh") == "1"
	if force {
		c := auth.Credentials{Token: bearerToken(r)}
		if c.Token == "" {
			c.Token = r.URL.Query().Get("token")
		}
		if !s.authorize(w, "channels_refresh", c) {
			return
		}
	}
	chs, err := s.Cache.Channels(r.Context(), force)
	if err != nil {
		s.Log.WithError(err).Warn("channels unavailable")
		writeJSON(w, http.StatusServiceUnavailable, channelsBody{Error: err.Error(), Channels: []catalog.Channel{}})
		return
	}
	if chs == nil {
		chs = []catalog.Channel{}
	}
	writeJSON(w, http.StatusOK, channelsBody{Success: true, Channels: chs})
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, config.Settings{M3UURL: s.Settings.Get().M3UURL})
}

func (s *Server) handleAuthHWID(w http.ResponseWriter, r *http.Request) {
	var req adminRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "JSON inválido"})
		return
	}
	out := struct {
		IsAdmin   bool       `json:"isAdmin"`
		Token     string     `json:"token,omitempty"`
		ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	}{IsAdmin: s.Auth.IsAdminHWID(req.HWID)}
	if out.IsAdmin {
		tok, exp, err := s.Auth.IssueToken(req.HWID)
		if err != nil {
			s.Log.WithError(err).Error("issue admin token")
		} else {
			out.Token, out.ExpiresAt = tok, &exp
		}
	}
	metrics.AdminAttempts.WithLabelValues("auth_hwid", map[bool]string{true: "ok", false: "denied"}[out.IsAdmin]).Inc()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAdminM3U(w http.ResponseWriter, r *http.Request) {
	var req adminRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "JSON inválido"})
		return
	}
	if !s.authorize(w, "admin_m3u", s.credentials(r, req)) {
		return
	}
	u := strings.TrimSpace(req.M3UURL)
	if !safeurl.IsHTTPOrHTTPS(u) {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "URL inválida (debe empezar con http)"})
		return
	}
	if err := s.Settings.Save(config.Settings{M3UURL: u}); err != nil {
		s.Log.WithError(err).Error("save settings")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "No se pudo guardar la configuración"})
		return
	}
	if s.NewSource != nil {
		s.Cache.SetSource(s.NewSource(u))
	} else {
		s.Cache.Invalidate()
	}
	s.Log.WithField("m3u_url", logging.RedactURL(u)).Info("playlist URL updated")
	writeJSON(w, http.StatusOK, messageBody{Success: true, Message: "URL guardada. Recargando canales..."})
}

func (s *Server) handleAdminRefresh(w http.ResponseWriter, r *http.Request) {
	var req adminRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "JSON inválido"})
		return
	}
	if !s.authorize(w, "admin_refresh", s.credentials(r, req)) {
		return
	}
	snap, err := s.Cache.Refresh(r.Context())
	if err != nil {
		s.Log.WithError(err).Warn("admin refresh failed")
		writeJSON(w, http.StatusBadGateway, errorBody{Error: err.Error()})
		return
	}
	n := len(snap.Channels)
	s.Log.WithField("channels", n).Info("channels refreshed by admin")
	writeJSON(w, http.StatusOK, messageBody{Success: true, Message: "Canales actualizados", Count: &n})
}

func (s *Server) handleDebug(w http.ResponseWriter, r *http.Request) {
	out := map[string]any{
		"status":     "ok",
		"m3uUrl":     s.Settings.Get().M3UURL,
		"adminHwids": s.Auth.AdminHWIDCount(),
		"uptime":     time.Since(s.started).Round(time.Second).String(),
		"fresh":      s.Cache.Fresh(),
	}
	if snap := s.Cache.Snapshot(); snap != nil {
		out["channels"] = len(snap.Channels)
		out["fetchedAt"] = snap.FetchedAt.Format(time.RFC3339)
		out["snapshotAge"] = snap.Age(time.Now()).Round(time.Second).String()
	}
	if s.Header != nil {
		if h := s.Header(); h.GuideURL != "" {
			out["guideUrl"] = h.GuideURL
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleFavorites(w http.ResponseWriter, r *http.Request) {
	if s.Favorites == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "favoritos deshabilitados"})
		return
	}
	store, err := s.Favorites.ForDevice(r.URL.Query().Get("hwid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	set, err := store.Load(r.Context())
	if err != nil {
		s.Log.WithError(err).Error("load favorites")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "No se pudieron leer los favoritos"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ids": set.IDs()})
}

func (s *Server) handleFavoriteToggle(w http.ResponseWriter, r *http.Request) {
	if s.Favorites == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "favoritos deshabilitados"})
		return
	}
	var req struct {
		HWID string `json:"hwid"`
		ID   int    `json:"id"`
	}
	if err := decodeBody(r, &req); err != nil || req.ID <= 0 {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "se requiere hwid e id"})
		return
	}
	store, err := s.Favorites.ForDevice(req.HWID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	ctx := r.Context()
	fav, err := store.Toggle(ctx, req.ID)
	if err == nil {
		err = store.Persist(ctx)
	}
	if err != nil {
		s.Log.WithError(err).WithFields(logrus.Fields{"id": req.ID}).Error("toggle favorite")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "No se pudo guardar el favorito"})
		return
	}
	set, err := store.Load(ctx)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "No se pudieron leer los favoritos"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"favorite": fav, "ids": set.IDs()})
}

// serveHealth returns 200 {"status":"ok",...} once channels have been loaded,
// 503 {"status":"loading"} before.
func (s *Server) serveHealth() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		snap := s.Cache.Snapshot()
		if snap == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "loading"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":       "ok",
			"channels":     len(snap.Channels),
			"last_refresh": snap.FetchedAt.Format(time.RFC3339),
			"fresh":        s.Cache.Fresh(),
		})
	})
}
