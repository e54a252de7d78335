package web

import (
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/photo-booth/internal/web/handlers"
	"github.com/kozaktomas/photo-booth/internal/web/static"
)

func (s *Server) setupRoutes() {
	templatesHandler := handlers.NewTemplatesHandler(s.deps.Registry, s.log)
	photosHandler := handlers.NewPhotosHandler(s.deps.Ingestor, s.log)
	printHandler := handlers.NewPrintHandler(s.deps.Cloud, s.deps.Helper, s.log)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", handlers.HealthCheck)

		// Camera captures
		r.Post("/photos", photosHandler.Capture)

		// Templates
		r.Get("/templates", templatesHandler.List)
		r.Post("/templates", templatesHandler.Open)
		r.Route("/templates/{id}", func(r chi.Router) {
			r.Get("/", templatesHandler.Get)
			r.Delete("/", templatesHandler.Close)
			r.Put("/owner", templatesHandler.SetOwner)
			r.Get("/events", templatesHandler.Events)

			// Slots
			r.Post("/slots", templatesHandler.AddPhoto)
			r.Post("/slots/reorder", templatesHandler.Reorder)
			r.Post("/slots/{index}/duplicate", templatesHandler.Duplicate)
			r.Delete("/slots/{index}", templatesHandler.RemoveSlot)

			// Edits
			r.Put("/photos/{photoId}/transform", templatesHandler.SetTransform)
			r.Post("/photos/{photoId}/zoom-in", templatesHandler.ZoomIn)
			r.Post("/photos/{photoId}/zoom-out", templatesHandler.ZoomOut)
			r.Post("/photos/{photoId}/reset", templatesHandler.ResetTransform)
			r.Post("/photos/{photoId}/save", templatesHandler.SaveTransform)

			// Printing
			r.Post("/print", templatesHandler.Print)
			r.Post("/print/confirm", templatesHandler.ConfirmPrint)
			r.Get("/sheet.png", templatesHandler.Sheet)
		})

		// Print paths
		r.Get("/print/status", printHandler.Status)
		r.Get("/print/printers", printHandler.Printers)
	})

	// Serve the operator console
	s.router.Get("/*", s.serveConsole)
}

// serveConsole serves the embedded operator console.
func (s *Server) serveConsole(w http.ResponseWriter, r *http.Request) {
	if !static.HasDist() {
		http.NotFound(w, r)
		return
	}

	path := r.URL.Path
	if path == "/" {
		path = "/index.html"
	}

	f, err := static.GetFileSystem().Open(path)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil || stat.IsDir() {
		http.NotFound(w, r)
		return
	}

	contentType := "application/octet-stream"
	switch {
	case strings.HasSuffix(path, ".html"):
		contentType = "text/html; charset=utf-8"
	case strings.HasSuffix(path, ".css"):
		contentType = "text/css; charset=utf-8"
	case strings.HasSuffix(path, ".js"):
		contentType = "application/javascript; charset=utf-8"
	case strings.HasSuffix(path, ".png"):
		contentType = "image/png"
	case strings.HasSuffix(path, ".ico"):
		contentType = "image/x-icon"
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	io.Copy(w, f)
}
