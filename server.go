package main

import (
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"
)

// Server is the HTTP surface: the websocket endpoint plus a few plain
// handlers for operations and onboarding
type Server struct {
	cfg      *Config
	hub      *Hub
	mm       *MatchManager
	rec      *Recorder
	log      *zap.Logger
	upgrader websocket.Upgrader
}

func NewServer(cfg *Config, hub *Hub, mm *MatchManager, rec *Recorder, log *zap.Logger) *Server {
	s := &Server{cfg: cfg, hub: hub, mm: mm, rec: rec, log: log}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// Routes registers all handlers on a fresh mux
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/qr", s.handleQR)
	mux.HandleFunc("/stats", s.handleStats)
	mux.HandleFunc("/healthz", s.handleHealth)
	return mux
}

// checkOrigin allows same-host requests always and any configured origin.
// With no configuration, cross-origin browsers are refused.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true // non-browser client
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if strings.EqualFold(u.Host, r.Host) {
		return true
	}
	for _, allowed := range s.cfg.Network.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) || strings.EqualFold(allowed, u.Host) {
			return true
		}
	}
	return false
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("upgrade failed", zap.Error(err))
		return
	}
	ip := clientIP(r)
	if _, err := s.hub.register(conn, ip); err != nil {
		s.log.Warn("connection refused", zap.String("ip", ip), zap.Error(err))
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error()))
		conn.Close()
	}
}

// handleQR renders a join link QR code so a phone can scan its way in
func (s *Server) handleQR(w http.ResponseWriter, r *http.Request) {
	base := s.cfg.Server.PublicURL
	if base == "" {
		base = "http://" + r.Host
	}
	if match := r.URL.Query().Get("m"); match != "" {
		base += "?m=" + url.QueryEscape(match)
	}
	png, err := qrcode.Encode(base, qrcode.Medium, 256)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

type statsResponse struct {
	Server      string           `json:"server"`
	Connections int              `json:"connections"`
	Matches     int              `json:"matches"`
	Countdowns  int              `json:"countdowns"`
	Queued      int              `json:"queued"`
	Leaderboard []LeaderboardRow `json:"leaderboard,omitempty"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	active, countdown, queued := s.mm.MatchCount()
	resp := statsResponse{
		Server:      s.cfg.Server.Name,
		Connections: s.hub.ClientCount(),
		Matches:     active,
		Countdowns:  countdown,
		Queued:      queued,
	}
	if s.rec != nil {
		board, err := s.rec.AllTimeLeaderboard(10)
		if err != nil {
			s.log.Warn("leaderboard query", zap.Error(err))
		} else {
			resp.Leaderboard = board
		}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// clientIP prefers the first X-Forwarded-For hop so caps work behind a
// reverse proxy
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			fwd = fwd[:i]
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
