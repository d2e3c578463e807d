package middleware

import (
	"context"
	"encoding/gob"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"

	"github.com/ch-Arham/NFT-Drop/internal/observability"
)

const (
	sessionName   = "nftdrop_session"
	keySessionID  = "sid"
	keyAddress    = "wallet"
	keyNonce      = "nonce"
	sessionMaxAge = 7 * 24 * 60 * 60
)

// Flash kinds shown as notifications.
const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashInfo    = "info"
)

func init() {
	gob.Register(Flash{})
}

// Flash is a one-shot notification carried across a redirect.
type Flash struct {
	Kind    string
	Message string
}

type sessionContextKey struct{}

// SessionOptions configures the wallet session cookie.
type SessionOptions struct {
	Key    []byte
	Secure bool
}

// NewSessionStore returns the signed cookie store backing wallet sessions.
func NewSessionStore(opts SessionOptions) *sessions.CookieStore {
	store := sessions.NewCookieStore(opts.Key)
	store.Options.Path = "/"
	store.Options.HttpOnly = true
	store.Options.Secure = opts.Secure
	store.Options.SameSite = http.SameSiteLaxMode
	store.Options.MaxAge = sessionMaxAge
	return store
}

// Session is the wallet session of one browser.
type Session struct {
	raw *sessions.Session
	r   *http.Request
}

// WithSession loads the wallet session, assigns it an id on first visit and attaches it to
// the request context. Undecodable cookies start a fresh session.
func WithSession(store sessions.Store) func(http.Handler) http.Handler {
	if store == nil {
		panic("session store is required")
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := store.Get(r, sessionName)
			if err != nil {
				observability.FromContext(r.Context()).Debug("session cookie rejected", zap.Error(err))
			}
			sess := &Session{raw: raw, r: r}
			if sess.ID() == "" {
				raw.Values[keySessionID] = uuid.NewString()
				if err := sess.Save(w); err != nil {
					observability.FromContext(r.Context()).Warn("session save failed", zap.Error(err))
				}
			}
			ctx := context.WithValue(r.Context(), sessionContextKey{}, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFromContext returns the session attached by WithSession.
func SessionFromContext(ctx context.Context) (*Session, bool) {
	if ctx == nil {
		return nil, false
	}
	sess, ok := ctx.Value(sessionContextKey{}).(*Session)
	return sess, ok && sess != nil
}

// ID is a stable random identifier of the browser session.
func (s *Session) ID() string {
	return s.stringValue(keySessionID)
}

// Address is the connected wallet address, empty when signed out.
func (s *Session) Address() string {
	return s.stringValue(keyAddress)
}

// SetAddress records the verified wallet address.
func (s *Session) SetAddress(addr string) {
	s.raw.Values[keyAddress] = addr
}

// Nonce returns the outstanding sign-in nonce.
func (s *Session) Nonce() string {
	return s.stringValue(keyNonce)
}

// SetNonce stores a new sign-in nonce, replacing any previous one.
func (s *Session) SetNonce(nonce string) {
	s.raw.Values[keyNonce] = nonce
}

// ConsumeNonce returns and forgets the outstanding nonce.
func (s *Session) ConsumeNonce() string {
	nonce := s.Nonce()
	delete(s.raw.Values, keyNonce)
	return nonce
}

// SignOut forgets the wallet and any pending nonce. The session id is kept.
func (s *Session) SignOut() {
	delete(s.raw.Values, keyAddress)
	delete(s.raw.Values, keyNonce)
}

// AddFlash queues a notification for the next page render.
func (s *Session) AddFlash(kind, message string) {
	s.raw.AddFlash(Flash{Kind: kind, Message: message})
}

// Flashes drains queued notifications. Callers must Save afterwards.
func (s *Session) Flashes() []Flash {
	var out []Flash
	for _, f := range s.raw.Flashes() {
		if flash, ok := f.(Flash); ok {
			out = append(out, flash)
		}
	}
	return out
}

// Save writes the session cookie. It must run before the response body.
func (s *Session) Save(w http.ResponseWriter) error {
	return s.raw.Save(s.r, w)
}

func (s *Session) stringValue(key string) string {
	v, _ := s.raw.Values[key].(string)
	return v
}
