package web

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/example/spoon-voicebot/internal/metrics"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const requestIDHeader = "X-Request-Id"

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrader take over the connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		r = r.WithContext(log.With().Str("request_id", id).Logger().WithContext(r.Context()))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		metrics.RequestDuration.WithLabelValues(routeLabel(r.URL.Path), strconv.Itoa(rec.status)).Observe(time.Since(start).Seconds())
	})
}

var knownRoutes = map[string]bool{
	"/healthz":  true,
	"/metrics":  true,
	"/dialout":  true,
	"/twiml":    true,
	"/ws":       true,
	"/bookings": true,
}

// routeLabel maps a request path onto a fixed set of metric labels.
func routeLabel(path string) string {
	if knownRoutes[path] {
		return path
	}
	if id, ok := strings.CutPrefix(path, "/bookings/"); ok && id != "" && !strings.Contains(id, "/") {
		return "/bookings/{id}"
	}
	return "other"
}
