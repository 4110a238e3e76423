package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"
)

const replyWait = 15 * time.Second

// Router builds the REST facade in front of the gateway queue. Every
// handler submits a typed request and waits on its own single-use reply
// channel; if the client goes away first the reply is dropped by the
// serve loop, not the handler.
func (g *Gateway) Router() *chi.Mux {
	discoverLimit := rate.NewLimiter(rate.Every(3*time.Second), 1)

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Put("/play", g.putSignal(Signal{Kind: SignalPlay}))
		r.Put("/pause", g.putSignal(Signal{Kind: SignalPause}))
		r.Put("/stop", g.putSignal(Signal{Kind: SignalStop}))
		r.Put("/seek", g.putSeek)
		r.Put("/device", g.putDevice)
		r.Put("/discover", g.putDiscover(discoverLimit))
		r.Put("/cast", g.putCast)
		r.Put("/close", g.putClose)
		r.Get("/status", g.getStatus)
		r.Get("/devices", g.getDevices)
	})
	return r
}

func (g *Gateway) putSignal(sig Signal) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reply := make(chan string, 1)
		g.submit(w, r, NewControl(sig, reply), reply)
	}
}

func (g *Gateway) putSeek(w http.ResponseWriter, r *http.Request) {
	seconds, err := strconv.ParseFloat(r.URL.Query().Get("t"), 64)
	if err != nil || seconds < 0 {
		writeError(w, http.StatusBadRequest, "query parameter t must be a non-negative number of seconds")
		return
	}

	reply := make(chan string, 1)
	g.submit(w, r, NewControl(Signal{Kind: SignalSeek, Seconds: seconds}, reply), reply)
}

func (g *Gateway) putDevice(w http.ResponseWriter, r *http.Request) {
	addr := r.URL.Query().Get("addr")
	if addr == "" {
		writeError(w, http.StatusBadRequest, "query parameter addr is required")
		return
	}

	reply := make(chan string, 1)
	g.submit(w, r, NewSelectDevice(addr, reply), reply)
}

func (g *Gateway) putDiscover(limit *rate.Limiter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !limit.Allow() {
			writeError(w, http.StatusTooManyRequests, "discovery already running, try again later")
			return
		}

		reply := make(chan string, 1)
		if !g.enqueue(w, r, NewDiscover(reply)) {
			return
		}
		g.awaitJSON(w, r, reply)
	}
}

func (g *Gateway) putCast(w http.ResponseWriter, r *http.Request) {
	port := 0
	if raw := r.URL.Query().Get("port"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 65535 {
			writeError(w, http.StatusBadRequest, "query parameter port must be a valid TCP port")
			return
		}
		port = parsed
	}

	reply := make(chan string, 1)
	g.submit(w, r, NewCast(port, reply), reply)
}

func (g *Gateway) putClose(w http.ResponseWriter, r *http.Request) {
	reply := make(chan string, 1)
	g.submit(w, r, NewClose(reply), reply)
}

func (g *Gateway) getStatus(w http.ResponseWriter, r *http.Request) {
	reply := make(chan string, 1)
	if !g.enqueue(w, r, NewStatus(reply)) {
		return
	}
	g.awaitJSON(w, r, reply)
}

func (g *Gateway) getDevices(w http.ResponseWriter, r *http.Request) {
	reply := make(chan string, 1)
	if !g.enqueue(w, r, NewDevices(reply)) {
		return
	}
	g.awaitJSON(w, r, reply)
}

// submit enqueues a mutation request and renders its ok/error reply.
func (g *Gateway) submit(w http.ResponseWriter, r *http.Request, req Request, reply <-chan string) {
	if !g.enqueue(w, r, req) {
		return
	}

	select {
	case payload := <-reply:
		if payload == replyOK {
			writeJSON(w, http.StatusAccepted, map[string]string{"message": replyOK})
			return
		}
		writeError(w, http.StatusInternalServerError, payload)
	case <-r.Context().Done():
	case <-time.After(replyWait):
		writeError(w, http.StatusGatewayTimeout, "no reply from cast controller")
	}
}

func (g *Gateway) enqueue(w http.ResponseWriter, r *http.Request, req Request) bool {
	select {
	case g.requests <- req:
		return true
	default:
		writeError(w, http.StatusServiceUnavailable, "request queue full")
		return false
	}
}

// awaitJSON renders a query reply that is already a JSON document.
func (g *Gateway) awaitJSON(w http.ResponseWriter, r *http.Request, reply <-chan string) {
	select {
	case payload := <-reply:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(payload)); err != nil {
			g.Log().Error().Str("Method", "awaitJSON").Err(err).Msg("response write failed")
		}
	case <-r.Context().Done():
	case <-time.After(replyWait):
		writeError(w, http.StatusGatewayTimeout, "no reply from cast controller")
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
