package server

import "net/http"

func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/api", s.handleAsk)
	mux.HandleFunc("/api/", s.handleAsk)
	mux.HandleFunc("/healthz", s.handleHealth)

	return mux
}
