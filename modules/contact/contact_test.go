package contact_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/starter/modules/contact"
	"github.com/dmitrymomot/starter/pkg/cookie"
	"github.com/dmitrymomot/starter/pkg/email"
	"github.com/dmitrymomot/starter/pkg/flash"
	accountsvc "github.com/dmitrymomot/starter/svc/account"
)

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) SendEmail(ctx context.Context, p email.SendEmailParams) error {
	return m.Called(ctx, p).Error(0)
}

func stubViews() contact.Views {
	return contact.Views{
		ContactPage: func(p contact.PageParams) templ.Component {
			return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
				_, err := fmt.Fprintf(w, "anonymous=%t name=%s message=%s errors=%s",
					p.Anonymous, p.Name, p.Message, strings.Join(p.Errors.Messages(), ";"))
				return err
			})
		},
	}
}

func newRouter(t *testing.T, mailer email.EmailSender, user *accountsvc.User) (http.Handler, *flash.Store) {
	t.Helper()
	cookies, err := cookie.New([]string{strings.Repeat("c", 32)})
	require.NoError(t, err)
	notices := flash.New(cookies, nil)

	r := chi.NewRouter()
	if user != nil {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				next.ServeHTTP(w, r.WithContext(accountsvc.WithUser(r.Context(), user)))
			})
		})
	}
	contact.New(mailer, notices, stubViews(), "support@example.com").Routes(r)
	return r, notices
}

func postForm(h http.Handler, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestContactPage(t *testing.T) {
	t.Parallel()

	r, _ := newRouter(t, &mockMailer{}, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/contact", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "anonymous=true")

	r, _ = newRouter(t, &mockMailer{}, &accountsvc.User{Email: "jane@example.com"})
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/contact", nil))
	assert.Contains(t, rec.Body.String(), "anonymous=false")
}

func TestContactSend(t *testing.T) {
	t.Parallel()

	mailer := &mockMailer{}
	mailer.On("SendEmail", mock.Anything, mock.MatchedBy(func(p email.SendEmailParams) bool {
		return p.SendTo == "support@example.com" &&
			p.ReplyTo == "jane@example.com" &&
			strings.Contains(p.Subject, "Jane") &&
			strings.Contains(p.BodyHTML, "Hello &lt;b&gt;there&lt;/b&gt;")
	})).Return(nil).Once()

	r, _ := newRouter(t, mailer, nil)
	rec := postForm(r, url.Values{
		"name":    {"Jane"},
		"email":   {"Jane@Example.com"},
		"message": {"Hello <b>there</b>"},
	})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/contact", rec.Header().Get("Location"))
	mailer.AssertExpectations(t)
}

func TestContactReturnsToReferringPage(t *testing.T) {
	t.Parallel()

	mailer := &mockMailer{}
	mailer.On("SendEmail", mock.Anything, mock.Anything).Return(nil)
	r, _ := newRouter(t, mailer, nil)

	send := func(referer string) string {
		form := url.Values{"name": {"Jane"}, "email": {"jane@example.com"}, "message": {"Hi"}}
		req := httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Referer", referer)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		require.Equal(t, http.StatusSeeOther, rec.Code)
		return rec.Header().Get("Location")
	}

	assert.Equal(t, "http://example.com/?from=footer", send("http://example.com/?from=footer"))
	assert.Equal(t, "/contact", send("https://evil.test/phish"))
}

func TestContactUsesSignedInIdentity(t *testing.T) {
	t.Parallel()

	mailer := &mockMailer{}
	mailer.On("SendEmail", mock.Anything, mock.MatchedBy(func(p email.SendEmailParams) bool {
		return p.ReplyTo == "jane@example.com" && strings.Contains(p.Subject, "Jane Doe")
	})).Return(nil).Once()

	user := &accountsvc.User{Email: "jane@example.com", Profile: accountsvc.Profile{Name: "Jane Doe"}}
	r, _ := newRouter(t, mailer, user)
	rec := postForm(r, url.Values{"name": {"Mallory"}, "email": {"mallory@evil.test"}, "message": {"Hi"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	mailer.AssertExpectations(t)
}

func TestContactValidation(t *testing.T) {
	t.Parallel()

	mailer := &mockMailer{}
	r, _ := newRouter(t, mailer, nil)
	rec := postForm(r, url.Values{"name": {""}, "email": {"nope"}, "message": {"  "}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Name is required")
	assert.Contains(t, body, "valid email")
	assert.Contains(t, body, "Message is required")
	mailer.AssertNotCalled(t, "SendEmail", mock.Anything, mock.Anything)
}

func TestContactDeliveryFailure(t *testing.T) {
	t.Parallel()

	mailer := &mockMailer{}
	mailer.On("SendEmail", mock.Anything, mock.Anything).Return(errors.New("postmark: 500")).Once()

	r, notices := newRouter(t, mailer, nil)
	rec := postForm(r, url.Values{"name": {"Jane"}, "email": {"jane@example.com"}, "message": {"Hi"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/contact", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	msgs := notices.Pop(httptest.NewRecorder(), req)
	require.Len(t, msgs, 1)
	assert.Equal(t, flash.KindError, msgs[0].Kind)
	assert.NotContains(t, msgs[0].Text, "postmark")
}
