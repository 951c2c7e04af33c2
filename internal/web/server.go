package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/example/spoon-voicebot/internal/auth"
	"github.com/example/spoon-voicebot/internal/bookings"
	"github.com/example/spoon-voicebot/internal/errs"
	"github.com/example/spoon-voicebot/internal/metrics"
	"github.com/example/spoon-voicebot/internal/twilio"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// CallServer runs a voice conversation over an accepted media stream.
type CallServer interface {
	Serve(ctx context.Context, ws *websocket.Conn) error
}

type Dialer interface {
	CreateCall(ctx context.Context, p twilio.CallParams) (twilio.Call, error)
}

type Server struct {
	Calls    CallServer
	Dialer   Dialer
	Bookings bookings.Store
	Admin    auth.Admin
	// Tokens is optional; when set TwiML carries a signed stream token.
	Tokens *auth.StreamTokens

	// PublicHost overrides the request Host when building callback URLs.
	PublicHost string
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Twilio does not send an Origin header
	CheckOrigin: func(r *http.Request) bool { return true },
}

var e164 = regexp.MustCompile(`^\+[1-9][0-9]{7,14}$`)

type dialoutRequest struct {
	ToNumber   string `json:"to_number"`
	FromNumber string `json:"from_number"`
}

type dialoutResponse struct {
	CallSID  string `json:"call_sid"`
	Status   string `json:"status"`
	ToNumber string `json:"to_number"`
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/dialout", s.handleDialout)
	mux.HandleFunc("/twiml", s.handleTwiML)
	mux.HandleFunc("/ws", s.handleWS)

	if s.Admin.Enabled() && s.Bookings != nil {
		mux.Handle("/bookings", s.Admin.RequireAuth(http.HandlerFunc(s.handleBookings)))
		mux.Handle("/bookings/", s.Admin.RequireAuth(http.HandlerFunc(s.handleBooking)))
	}

	return instrument(mux)
}

func (s *Server) handleDialout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	logger := zerolog.Ctx(r.Context())
	logger.Info().Msg("Received outbound call request")

	req, err := parseDialout(w, r)
	if err != nil {
		metrics.Dialouts.WithLabelValues("invalid").Inc()
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	call, err := s.Dialer.CreateCall(r.Context(), twilio.CallParams{
		To:   req.ToNumber,
		From: req.FromNumber,
		URL:  "https://" + s.host(r) + "/twiml",
	})
	if err != nil {
		logger.Error().Err(err).Str("to_number", req.ToNumber).Msg("place outbound call")
		status := http.StatusInternalServerError
		var apiErr *twilio.Error
		if errors.As(err, &apiErr) {
			status = http.StatusBadGateway
		}
		metrics.Dialouts.WithLabelValues("failed").Inc()
		http.Error(w, fmt.Sprintf("Failed to initiate call: %v", err), status)
		return
	}
	metrics.Dialouts.WithLabelValues("initiated").Inc()
	logger.Info().Str("call_sid", call.SID).Str("to_number", req.ToNumber).Msg("call initiated")

	writeJSON(w, http.StatusOK, dialoutResponse{
		CallSID:  call.SID,
		Status:   "call_initiated",
		ToNumber: req.ToNumber,
	})
}

func parseDialout(w http.ResponseWriter, r *http.Request) (dialoutRequest, error) {
	var req dialoutRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		return req, fmt.Errorf("%w: body must be JSON with to_number and from_number", errs.ErrInvalidRequest)
	}
	req.ToNumber = strings.TrimSpace(req.ToNumber)
	req.FromNumber = strings.TrimSpace(req.FromNumber)
	if req.ToNumber == "" || req.FromNumber == "" {
		return req, fmt.Errorf("%w: to_number and from_number are required", errs.ErrInvalidRequest)
	}
	if !e164.MatchString(req.ToNumber) || !e164.MatchString(req.FromNumber) {
		return req, fmt.Errorf("%w: phone numbers must be in E.164 format", errs.ErrInvalidRequest)
	}
	return req, nil
}

func (s *Server) handleTwiML(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	log.Info().Msg("Serving TwiML for outbound call")

	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	params := []twilio.Param{
		{Name: "to_number", Value: r.PostFormValue("To")},
		{Name: "from_number", Value: r.PostFormValue("From")},
	}
	if s.Tokens != nil {
		tok, err := s.Tokens.Issue(r.PostFormValue("CallSid"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		params = append(params, twilio.Param{Name: "token", Value: tok})
	}

	body, err := twilio.StreamTwiML("wss://"+s.host(r)+"/ws", params...)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	_, _ = w.Write(body)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	log.Info().Msg("WebSocket connection accepted for outbound call")

	if err := s.Calls.Serve(r.Context(), ws); err != nil {
		log.Error().Msgf("Error in WebSocket endpoint: %v", err)
	}
	_ = ws.Close()
}

func (s *Server) handleBookings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	admin, _ := auth.AdminFromContext(r.Context())
	zerolog.Ctx(r.Context()).Info().Str("admin", admin).Msg("list bookings")

	all, err := s.Bookings.List(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if all == nil {
		all = []bookings.Booking{}
	}
	writeJSON(w, http.StatusOK, all)
}

func (s *Server) handleBooking(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/bookings/")
	admin, _ := auth.AdminFromContext(r.Context())
	zerolog.Ctx(r.Context()).Info().Str("admin", admin).Str("booking_id", id).Msg("get booking")
	b, err := s.Bookings.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			http.Error(w, "booking not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) host(r *http.Request) string {
	if s.PublicHost != "" {
		return s.PublicHost
	}
	return r.Host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write response")
	}
}

// Start serves h on addr until ctx is done. Request contexts, including
// running calls, derive from ctx.
func Start(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	log.Info().Msgf("Starting Twilio outbound chatbot server on port %s", strings.TrimPrefix(addr, ":"))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
