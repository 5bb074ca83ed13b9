package server

import (
	"net/http"

	mediakit "github.com/mediakit/mediakit-go"
	"github.com/mediakit/mediakit-go/internal/handlers"
)

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// System routes (unauthenticated)
	s.handle(mux, http.MethodGet, "/health", s.healthHandler)
	s.handle(mux, http.MethodGet, "/debug/routes", s.routesHandler)

	// Stored artifacts from the local storage provider
	mux.Handle("/files/", http.StripPrefix("/files/", http.FileServer(http.Dir(s.filesDir))))
	s.routes = append(s.routes, routeInfo{Method: http.MethodGet, Path: "/files/"})

	// Toolkit routes
	s.handle(mux, http.MethodPost, "/v1/toolkit/test", s.protect(
		s.engine.Handle("toolkit_test", s.toolkit.TestOperation(), mediakit.BypassQueue())))
	s.handle(mux, http.MethodPost, "/v1/toolkit/authenticate", s.toolkit.AuthenticateHandler)
	s.handle(mux, http.MethodGet, "/v1/toolkit/jobs", s.protect(s.toolkit.ListJobsHandler))
	s.handle(mux, http.MethodGet, "/v1/toolkit/job/", s.protect(s.toolkit.GetJobHandler))

	// Media routes, all admission-wrapped
	s.handle(mux, http.MethodPost, "/v1/media/download", s.protect(
		s.engine.Handle("media_download", s.media.DownloadOperation(),
			mediakit.WithPayloadCheck(s.media.DownloadPayloadCheck()))))
	s.handle(mux, http.MethodPost, "/v1/media/transform/mp3", s.protect(
		s.engine.Handle("media_transform_mp3", s.media.Mp3Operation(),
			mediakit.WithPayloadCheck(s.media.Mp3PayloadCheck()))))

	return mux
}

// handle registers a route and records it for /debug/routes.
func (s *Server) handle(mux *http.ServeMux, method, path string, h http.HandlerFunc) {
	s.routes = append(s.routes, routeInfo{Method: method, Path: path})
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		if !handlers.RequireMethod(w, r, method) {
			return
		}
		h(w, r)
	})
}

// healthHandler reports liveness and current queue depth.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	handlers.WriteJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"build_number": mediakit.BuildNumber,
		"queue_length": s.engine.Queue().Len(),
	})
}

// routesHandler lists every registered route.
func (s *Server) routesHandler(w http.ResponseWriter, r *http.Request) {
	handlers.WriteJSON(w, http.StatusOK, s.routes)
}
