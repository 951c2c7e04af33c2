package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"time"

	"github.com/example/spoon-voicebot/internal/errs"
	"github.com/gorilla/securecookie"
	"golang.org/x/crypto/bcrypt"
)

const (
	streamTokenName   = "voicebot_stream"
	streamTokenMaxAge = 10 * time.Minute
)

// StreamTokens signs the call SID into a stream parameter so /ws only
// accepts streams set up by our own TwiML.
type StreamTokens struct {
	sc *securecookie.SecureCookie
}

func NewStreamTokens(hashKey, blockKey []byte) *StreamTokens {
	sc := securecookie.New(hashKey, blockKey)
	sc.MaxAge(int(streamTokenMaxAge.Seconds()))
	return &StreamTokens{sc: sc}
}

type streamClaims struct {
	CallSID string
	V       int
}

func (s *StreamTokens) Issue(callSID string) (string, error) {
	return s.sc.Encode(streamTokenName, streamClaims{CallSID: callSID, V: 1})
}

func (s *StreamTokens) Verify(token, callSID string) error {
	if token == "" {
		return errors.New("missing token")
	}
	var c streamClaims
	if err := s.sc.Decode(streamTokenName, token, &c); err != nil {
		return err
	}
	// an empty SID was issued when Twilio did not send one with the TwiML request
	if c.CallSID != "" && !secureEq(c.CallSID, callSID) {
		return errors.New("token issued for another call")
	}
	return nil
}

func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b), err
}

func CheckPassword(hash, pw string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw))
	return err == nil
}

// Admin guards the operator endpoints with HTTP basic auth.
type Admin struct {
	User         string
	PasswordHash string
}

func (a Admin) Enabled() bool {
	return a.PasswordHash != ""
}

func (a Admin) Authenticate(user, pw string) error {
	if !a.Enabled() || !secureEq(user, a.User) || !CheckPassword(a.PasswordHash, pw) {
		return errs.ErrUnauthorized
	}
	return nil
}

type ctxKey string

const adminKey ctxKey = "admin"

func (a Admin) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pw, ok := r.BasicAuth()
		if !ok || a.Authenticate(user, pw) != nil {
			w.Header().Set("WWW-Authenticate", `Basic realm="voicebot"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), adminKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func AdminFromContext(ctx context.Context) (string, bool) {
	u, ok := ctx.Value(adminKey).(string)
	return u, ok
}

func secureEq(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
