package relay

import (
	"errors"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/peerhelp/peerhelp/pkg/api"
	"github.com/peerhelp/peerhelp/pkg/network/httpx"
)

// routes builds the HTTP API of the relay.
func (r *Relay) routes() *httpx.Mux {
	h := httpx.NewServeMux("")
	h.HandleFunc("POST /api/session/create", r.cors(r.createSession))
	h.HandleFunc("GET /api/session/{id}", r.cors(r.getSession))
	h.HandleFunc("DELETE /api/session/{id}", r.cors(r.deleteSession))
	h.HandleFunc("OPTIONS /api/", r.cors(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	h.HandleFunc("GET /health", r.health)
	h.HandleFunc("GET /ws", r.hub.handleWebsocket)
	return h
}

func (r *Relay) createSession(w http.ResponseWriter, _ *http.Request) {
	session, err := r.store.Create()
	if err != nil {
		r.log.Error().Err(err).Msg("couldn't create a session")
		writeJSON(w, http.StatusServiceUnavailable, api.HttpErrorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, api.CreateSessionResponse{
		SessionId: session.Code,
		ExpiresIn: int64(r.store.Ttl() / time.Second),
	})
}

func (r *Relay) getSession(w http.ResponseWriter, rq *http.Request) {
	session, err := r.store.Get(normalizeCode(rq.PathValue("id")))
	if err != nil {
		writeJSON(w, http.StatusNotFound, api.HttpErrorResponse{Error: ErrNotFound.Error()})
		return
	}
	info := session.Info()
	if info.Status == Expired {
		writeJSON(w, http.StatusNotFound, api.HttpErrorResponse{Error: ErrNotFound.Error()})
		return
	}
	writeJSON(w, http.StatusOK, api.SessionInfoResponse{
		Id:          info.Code,
		Status:      info.Status.String(),
		Created:     info.CreatedAt.UnixMilli(),
		ViewerCount: info.ViewerCount,
	})
}

func (r *Relay) deleteSession(w http.ResponseWriter, rq *http.Request) {
	err := r.store.Delete(normalizeCode(rq.PathValue("id")))
	if errors.Is(err, ErrNotFound) {
		writeJSON(w, http.StatusNotFound, api.HttpErrorResponse{Error: ErrNotFound.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (r *Relay) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, api.HealthResponse{
		Status:            "ok",
		Timestamp:         time.Now().UnixMilli(),
		ActiveSessions:    r.store.Len(),
		ActiveConnections: r.hub.Connections(),
	})
}

// cors adds the CORS headers for the allowed origins
// and rejects the browser requests from the others.
func (r *Relay) cors(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, rq *http.Request) {
		origin := rq.Header.Get("Origin")
		if origin != "" {
			if !r.origins.Allowed(origin) {
				writeJSON(w, http.StatusForbidden, api.HttpErrorResponse{Error: "Origin not allowed"})
				return
			}
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.Header().Add("Vary", "Origin")
		}
		next(w, rq)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
