package server

import (
	"net/http"

	"mcsrc/internal/gateway/handler/rpc"
	"mcsrc/internal/gateway/middleware"
)

func NewMux(viewer *rpc.ViewerHandler, state *rpc.StateHandler) http.Handler {
	mux := http.NewServeMux()

	// RPC Handlers
	mux.Handle(viewer.Routes())

	// State stream
	mux.HandleFunc("/ws/state", state.HandleStateWS)

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	return middleware.CORS(mux)
}
