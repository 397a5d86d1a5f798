package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/quietbit/parley/internal/config"
	"github.com/quietbit/parley/internal/core/service"
)

type Handler struct {
	cfg        config.Config
	supervisor *service.Supervisor
	upgrader   websocket.Upgrader
}

func NewHandler(cfg config.Config, supervisor *service.Supervisor) *Handler {
	return &Handler{
		cfg:        cfg,
		supervisor: supervisor,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if cfg.AllowedOrigin == "" {
					return true
				}
				return r.Header.Get("Origin") == cfg.AllowedOrigin
			},
		},
	}
}

func (h *Handler) NewRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.Healthz)
	r.Get("/ws", h.ServeWS)

	fs := http.FileServer(http.Dir(h.cfg.StaticDir))
	r.Handle("/*", fs)

	return r
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
