package router

import (
	"context"
	"net/http"
	"time"

	"pagetree/config"
	document "pagetree/internal/document"
	"pagetree/internal/document/repository"
	"pagetree/internal/document/service"
	"pagetree/middleware"
	"pagetree/socket"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthCheck reports whether the document store is reachable.
type HealthCheck func(ctx context.Context) error

func Setup(store repository.Store, hub *socket.Hub, cfg *config.Config, health HealthCheck) http.Handler {
	mux := http.NewServeMux()
	auth := middleware.NewAuth(cfg.JWTSecret)

	// Change feed
	hub.AllowOrigin = middleware.OriginAllowed(cfg.AllowedOrigins)
	wsHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		socket.ServeWs(hub, w, r, middleware.CallerID(r.Context()))
	})
	mux.Handle("/ws", auth.RequireAuth(wsHandler))

	// REST API
	docService := service.NewDocumentService(store, hub, cfg.CascadeConcurrency)
	docHandler := document.NewDocumentHandler(docService)
	required := auth.RequireAuth

	mux.Handle("/api/documents/create", required(http.HandlerFunc(docHandler.CreateDocument)))
	mux.Handle("/api/documents/sidebar", required(http.HandlerFunc(docHandler.GetSidebar)))
	mux.Handle("/api/documents/search", required(http.HandlerFunc(docHandler.GetSearch)))
	mux.Handle("/api/documents/trash", required(http.HandlerFunc(docHandler.GetTrash)))
	mux.Handle("/api/documents/get", auth.OptionalAuth(http.HandlerFunc(docHandler.GetDocument)))
	mux.Handle("/api/documents/update", required(http.HandlerFunc(docHandler.UpdateDocument)))
	mux.Handle("/api/documents/archive", required(http.HandlerFunc(docHandler.ArchiveDocument)))
	mux.Handle("/api/documents/restore", required(http.HandlerFunc(docHandler.RestoreDocument)))
	mux.Handle("/api/documents/delete", required(http.HandlerFunc(docHandler.DeleteDocument)))
	mux.Handle("/api/documents/icon", required(http.HandlerFunc(docHandler.RemoveIcon)))
	mux.Handle("/api/documents/cover", required(http.HandlerFunc(docHandler.RemoveCoverImage)))

	// Ops
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if health != nil {
			if err := health(ctx); err != nil {
				http.Error(w, "unhealthy: "+err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		w.Write([]byte("ok"))
	})

	return middleware.CORSMiddleware(cfg.AllowedOrigins)(middleware.RequestLogger(mux))
}
