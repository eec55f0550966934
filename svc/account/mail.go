package account

import (
	"context"
	"html/template"
	"io"
	"time"

	"github.com/a-h/templ"
)

const (
	subjectPasswordReset   = "Reset your password"
	subjectPasswordChanged = "Your password has been changed"
)

// PasswordResetMail is the data of the reset link email.
type PasswordResetMail struct {
	Email      string
	Link       string
	ExpiresAt  time.Time
	SenderName string
}

// PasswordChangedMail is the data of the post-reset confirmation email.
type PasswordChangedMail struct {
	Email      string
	SenderName string
}

// MailTemplates renders account email bodies.
type MailTemplates struct {
	PasswordReset   func(PasswordResetMail) templ.Component
	PasswordChanged func(PasswordChangedMail) templ.Component
}

var (
	resetMailTpl = template.Must(template.New("reset").Parse(`<p>Hello,</p>
<p>You are receiving this email because you (or someone else) requested a password reset for {{.Email}}.</p>
<p><a href="{{.Link}}">Reset your password</a></p>
<p>The link expires at {{.ExpiresAt.UTC.Format "2006-01-02 15:04 MST"}}. If you did not request this, ignore this email and your password will remain unchanged.</p>
<p>{{.SenderName}}</p>`))

	changedMailTpl = template.Must(template.New("changed").Parse(`<p>Hello,</p>
<p>This is a confirmation that the password for your account {{.Email}} has just been changed.</p>
<p>{{.SenderName}}</p>`))
)

func defaultMailTemplates() MailTemplates {
	return MailTemplates{
		PasswordReset: func(d PasswordResetMail) templ.Component {
			return htmlComponent(resetMailTpl, d)
		},
		PasswordChanged: func(d PasswordChangedMail) templ.Component {
			return htmlComponent(changedMailTpl, d)
		},
	}
}

func htmlComponent(t *template.Template, data any) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		return t.Execute(w, data)
	})
}
