package views_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/starter/handler"
	"github.com/dmitrymomot/starter/modules/account"
	"github.com/dmitrymomot/starter/modules/contact"
	"github.com/dmitrymomot/starter/pkg/flash"
	"github.com/dmitrymomot/starter/pkg/validator"
	accountsvc "github.com/dmitrymomot/starter/svc/account"
	"github.com/dmitrymomot/starter/views"
)

func render(t *testing.T, ctx context.Context, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Render(ctx, &buf))
	return buf.String()
}

func newRenderer(t *testing.T) *views.Renderer {
	t.Helper()
	r, err := views.New()
	require.NoError(t, err)
	return r
}

func TestLayoutNavigation(t *testing.T) {
	t.Parallel()
	r := newRenderer(t)

	anon := render(t, context.Background(), r.Home().HomePage())
	assert.Contains(t, anon, `href="/login"`)
	assert.Contains(t, anon, `href="/signup"`)
	assert.NotContains(t, anon, `href="/logout"`)

	user := &accountsvc.User{Email: "jane@example.com", Profile: accountsvc.Profile{Name: "Jane"}}
	ctx := accountsvc.WithUser(context.Background(), user)
	signedIn := render(t, ctx, r.Home().HomePage())
	assert.Contains(t, signedIn, `href="/logout"`)
	assert.Contains(t, signedIn, "Jane")
	assert.Contains(t, signedIn, "gravatar.com/avatar/")
}

func TestFlashNotices(t *testing.T) {
	t.Parallel()
	r := newRenderer(t)

	ctx := flash.WithContext(context.Background(), flash.Messages{
		flash.Success("Saved <b>ok</b>"),
		flash.Error("Nope"),
	})
	out := render(t, ctx, r.Home().HomePage())
	assert.Contains(t, out, `class="alert alert-success"`)
	assert.Contains(t, out, "Saved &lt;b&gt;ok&lt;/b&gt;")
	assert.Contains(t, out, `class="alert alert-error"`)
}

func TestLoginPageKeepsInputAndErrors(t *testing.T) {
	t.Parallel()
	r := newRenderer(t)

	out := render(t, context.Background(), r.Account().LoginPage(account.LoginPageParams{
		Email: `"><script>x</script>`,
		Errors: validator.ValidationErrors{
			{Field: "password", Message: "Password cannot be blank"},
		},
	}))
	assert.Contains(t, out, "Password cannot be blank")
	assert.NotContains(t, out, "<script>x</script>")
	assert.Contains(t, out, `action="/login"`)
}

func TestResetPageFormAction(t *testing.T) {
	t.Parallel()
	r := newRenderer(t)

	out := render(t, context.Background(), r.Account().ResetPage(account.ResetPageParams{Token: "abc123"}))
	assert.Contains(t, out, `action="/reset/abc123"`)
}

func TestAccountPage(t *testing.T) {
	t.Parallel()
	r := newRenderer(t)

	user := &accountsvc.User{Email: "jane@example.com"}
	out := render(t, context.Background(), r.Account().AccountPage(account.AccountPageParams{
		User: user,
		Profile: account.ProfileFields{
			Email:   "jane@example.com",
			Gender:  "female",
			Website: "https://jane.dev",
		},
		PasswordErrors: validator.ValidationErrors{
			{Field: "confirm_password", Message: "Passwords do not match"},
		},
	}))
	assert.Contains(t, out, `value="female" checked`)
	assert.Contains(t, out, "Female")
	assert.Contains(t, out, `value="https://jane.dev"`)
	assert.Contains(t, out, "Passwords do not match")
	assert.Contains(t, out, `action="/account/delete"`)
}

func TestContactPageAsksIdentityOnlyWhenAnonymous(t *testing.T) {
	t.Parallel()
	r := newRenderer(t)

	anon := render(t, context.Background(), r.Contact().ContactPage(contact.PageParams{Anonymous: true}))
	assert.Contains(t, anon, `name="email"`)

	known := render(t, context.Background(), r.Contact().ContactPage(contact.PageParams{Message: "hi"}))
	assert.NotContains(t, known, `name="email"`)
	assert.Contains(t, known, ">hi</textarea>")
}

func TestErrorRenderers(t *testing.T) {
	t.Parallel()
	cfg := newRenderer(t).ErrorHandler()

	page := render(t, context.Background(), cfg.ErrorPage(handler.ErrorPageParams{
		StatusCode: 404,
		Message:    "Not found",
		RequestID:  "req-1",
	}))
	assert.Contains(t, page, "<h1>404</h1>")
	assert.Contains(t, page, "req-1")
	assert.NotContains(t, page, "error-details")

	toast := render(t, context.Background(), cfg.ErrorToast(handler.ErrorToastParams{
		Message: "Slow down",
		Type:    "warning",
	}))
	assert.Contains(t, toast, `class="toast toast-warning"`)
	assert.Contains(t, toast, "Slow down")
	assert.Equal(t, "#toast-container", cfg.ToastTarget)
}
