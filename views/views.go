// Package views renders the application pages. Pages are html/template files
// embedded in the binary and exposed as templ components.
package views

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/a-h/templ"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/dmitrymomot/starter/handler"
	"github.com/dmitrymomot/starter/modules/account"
	"github.com/dmitrymomot/starter/modules/contact"
	"github.com/dmitrymomot/starter/modules/home"
	"github.com/dmitrymomot/starter/pkg/flash"
	accountsvc "github.com/dmitrymomot/starter/svc/account"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{"home", "login", "signup", "forgot", "reset", "account", "contact", "error"}

// Renderer holds the parsed page templates.
type Renderer struct {
	pages map[string]*template.Template
	toast *template.Template
}

// pageData is what the layout sees. User and Flash come from the request
// context, Page from the handler.
type pageData struct {
	Title string
	User  *accountsvc.User
	Flash flash.Messages
	Page  any
}

func funcs() template.FuncMap {
	return template.FuncMap{
		// a Caser is stateful, so each call gets its own
		"title":   func(s string) string { return cases.Title(language.English).String(s) },
		"genders": func() []string { return []string{"male", "female", "other"} },
	}
}

// New parses every page against the shared layout.
func New() (*Renderer, error) {
	layout, err := template.New("layout").Funcs(funcs()).ParseFS(templateFS, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("views: parse layout: %w", err)
	}

	r := &Renderer{pages: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		t, err := layout.Clone()
		if err != nil {
			return nil, fmt.Errorf("views: clone layout for %s: %w", name, err)
		}
		if _, err := t.ParseFS(templateFS, "templates/"+name+".html"); err != nil {
			return nil, fmt.Errorf("views: parse %s: %w", name, err)
		}
		r.pages[name] = t
	}

	r.toast, err = template.ParseFS(templateFS, "templates/toast.html")
	if err != nil {
		return nil, fmt.Errorf("views: parse toast: %w", err)
	}
	return r, nil
}

func (r *Renderer) page(name, title string, data any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		u, _ := accountsvc.UserFromContext(ctx)
		return execute(w, r.pages[name], "layout", pageData{
			Title: title,
			User:  u,
			Flash: flash.FromContext(ctx),
			Page:  data,
		})
	})
}

// execute buffers the output so a failing template never leaves a half
// written page behind.
func execute(w io.Writer, t *template.Template, name string, data any) error {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}

func (r *Renderer) Home() home.Views {
	return home.Views{
		HomePage: func() templ.Component { return r.page("home", "Home", nil) },
	}
}

func (r *Renderer) Account() account.Views {
	return account.Views{
		LoginPage: func(p account.LoginPageParams) templ.Component {
			return r.page("login", "Login", p)
		},
		SignupPage: func(p account.SignupPageParams) templ.Component {
			return r.page("signup", "Create Account", p)
		},
		ForgotPage: func(p account.ForgotPageParams) templ.Component {
			return r.page("forgot", "Forgot Password", p)
		},
		ResetPage: func(p account.ResetPageParams) templ.Component {
			return r.page("reset", "Reset Password", p)
		},
		AccountPage: func(p account.AccountPageParams) templ.Component {
			return r.page("account", "Account Management", p)
		},
	}
}

func (r *Renderer) Contact() contact.Views {
	return contact.Views{
		ContactPage: func(p contact.PageParams) templ.Component {
			return r.page("contact", "Contact", p)
		},
	}
}

// ErrorHandler returns the error page and toast renderers for
// handler.NewErrorHandler.
func (r *Renderer) ErrorHandler() handler.ErrorHandlerConfig {
	return handler.ErrorHandlerConfig{
		ErrorPage: func(p handler.ErrorPageParams) templ.Component {
			return r.page("error", "Error", p)
		},
		ErrorToast: func(p handler.ErrorToastParams) templ.Component {
			return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
				return execute(w, r.toast, "toast", p)
			})
		},
		ToastTarget: "#toast-container",
	}
}
