package router

import (
	"net/http"

	docHandler "studyhub/internal/document"
	"studyhub/middleware"
	"studyhub/socket"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

func Setup(h *docHandler.DocumentHandler, hub *socket.Hub) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORSMiddleware)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// WebSocket sessions
	wsHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserID(r.Context())
		socket.ServeWs(hub, w, r, userID)
	})
	r.Method(http.MethodGet, "/ws", middleware.AuthMiddleware(wsHandler))

	// REST API
	r.Route("/api/v1/documents", func(r chi.Router) {
		r.Use(middleware.AuthMiddleware)

		r.Get("/", h.ListDocuments)
		r.Post("/", h.CreateDocument)
		r.Get("/archive", h.ListArchived)
		r.Post("/join", h.JoinHub)

		r.Route("/{documentID}", func(r chi.Router) {
			r.Get("/", h.GetDocument)
			r.Patch("/", h.UpdateDocument)
			r.Delete("/", h.DeleteDocument)
			r.Post("/archive", h.ArchiveDocument)
			r.Post("/restore", h.RestoreDocument)
			r.Get("/children", h.ListChildren)
			r.Post("/share", h.GenerateShareCode)
		})
	})

	return r
}
