// Package httpactor binds internal/actor.Actor over HTTP: one POST endpoint
// accepting the {cmd, payload} envelope and replying with the matching
// {type, payload} envelope, for callers that can't link the module directly
// (non-Go FFI bindings, out-of-process CLIs).
package httpactor

import (
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"

	"github.com/iotaledger/wallet.go/internal/actor"
	"github.com/iotaledger/wallet.go/log"
)

var logger = log.NewModuleLogger(log.Actor)

// Server wraps an *actor.Actor with an httprouter mux and a permissive CORS
// policy, matching the teacher's habit of handing a *http.Server to
// cmd/<binary> rather than owning process lifecycle itself.
type Server struct {
	handler http.Handler
}

// New builds a Server dispatching every POST /command through a.
func New(a *actor.Actor) *Server {
	router := httprouter.New()
	router.POST("/command", dispatchHandler(a))
	router.GET("/health", healthHandler)

	handler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodPost, http.MethodGet},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(router)

	return &Server{handler: handler}
}

func (s *Server) Handler() http.Handler { return s.handler }

// ListenAndServe binds addr and serves until the process exits or the
// caller cancels via a wrapping http.Server (exposed through Handler for
// callers that want graceful shutdown).
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s.handler)
}

func healthHandler(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	w.WriteHeader(http.StatusOK)
}

func dispatchHandler(a *actor.Actor) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var msg actor.Message
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		resp := a.Dispatch(r.Context(), msg)

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			logger.Errorw("failed to encode actor response", "cmd", msg.Cmd, "err", err)
		}
	}
}
