// Package server exposes the coordination engine over HTTP: a JSON command
// API for the operations the game defines, and a websocket relay of the
// store's change feed so connected clients converge on the same view.
package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"dare-wheel/internal/game"
)

type Server struct {
	engine *game.Engine
	hub    *hub
	log    *zap.SugaredLogger
}

func New(engine *game.Engine, log *zap.SugaredLogger) *Server {
	s := &Server{
		engine: engine,
		hub:    newHub(log),
		log:    log,
	}
	engine.Broadcaster.AddSink(s.hub.relay)
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/rooms", s.handleCreateRoom)
	mux.HandleFunc("POST /api/rooms/join", s.handleJoinRoom)
	mux.HandleFunc("GET /api/rooms/{id}", s.handleSnapshot)
	mux.HandleFunc("POST /api/rooms/{id}/difficulty", s.handleSetDifficulty)
	mux.HandleFunc("POST /api/rooms/{id}/open", s.handleBeginSubmission)
	mux.HandleFunc("POST /api/rooms/{id}/actions", s.handleSubmitActions)
	mux.HandleFunc("POST /api/rooms/{id}/ready", s.handleSignalReady)
	mux.HandleFunc("POST /api/rooms/{id}/acknowledge", s.handleAcknowledge)
	mux.HandleFunc("POST /api/rooms/{id}/joker", s.handleUseJoker)
	mux.HandleFunc("POST /api/rooms/{id}/stop", s.handleStop)
	mux.HandleFunc("GET /ws/rooms/{id}", s.handleWebsocket)
	mux.Handle("GET /metrics", promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}
