package flash

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/starter/pkg/cookie"
	"github.com/dmitrymomot/starter/pkg/logger"
)

// Kind classifies a notice for display.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
)

// Message is a single notice shown once on the next rendered page.
type Message struct {
	Kind Kind   `json:"k"`
	Text string `json:"t"`
}

func Success(text string) Message { return Message{Kind: KindSuccess, Text: text} }
func Error(text string) Message   { return Message{Kind: KindError, Text: text} }
func Info(text string) Message    { return Message{Kind: KindInfo, Text: text} }

// Messages is the list of pending notices.
type Messages []Message

// Of returns the messages of the given kind.
func (m Messages) Of(kind Kind) []string {
	var out []string
	for _, msg := range m {
		if msg.Kind == kind {
			out = append(out, msg.Text)
		}
	}
	return out
}

const cookieKey = "notices"

// Store keeps notices in an encrypted one-time cookie between a redirect and
// the page it lands on.
type Store struct {
	cookies *cookie.Manager
	log     *slog.Logger
}

func New(cookies *cookie.Manager, log *slog.Logger) *Store {
	if log == nil {
		log = logger.Discard()
	}
	return &Store{cookies: cookies, log: log}
}

// Set replaces the pending notices with msgs.
func (s *Store) Set(w http.ResponseWriter, msgs ...Message) error {
	if len(msgs) == 0 {
		return nil
	}
	return s.cookies.SetFlash(w, cookieKey, Messages(msgs))
}

// Pop reads and clears the pending notices.
func (s *Store) Pop(w http.ResponseWriter, r *http.Request) Messages {
	var msgs Messages
	if err := s.cookies.GetFlash(w, r, cookieKey, &msgs); err != nil {
		if !errors.Is(err, cookie.ErrCookieNotFound) {
			s.log.WarnContext(r.Context(), "discarding unreadable flash cookie",
				logger.Component("flash"), logger.Error(err))
		}
		return nil
	}
	return msgs
}

// Middleware moves pending notices into the request context for rendering.
func (s *Store) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if msgs := s.Pop(w, r); len(msgs) > 0 {
			r = r.WithContext(WithContext(r.Context(), msgs))
		}
		next.ServeHTTP(w, r)
	})
}

type contextKey struct{}

func WithContext(ctx context.Context, msgs Messages) context.Context {
	return context.WithValue(ctx, contextKey{}, msgs)
}

// FromContext returns the notices attached by Middleware.
func FromContext(ctx context.Context) Messages {
	msgs, _ := ctx.Value(contextKey{}).(Messages)
	return msgs
}
