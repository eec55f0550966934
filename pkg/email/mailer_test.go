package email_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/starter/pkg/email"
	"github.com/dmitrymomot/starter/pkg/logger"
)

func validParams() email.SendEmailParams {
	return email.SendEmailParams{
		SendTo:   "user@example.com",
		Subject:  "Reset your password",
		BodyHTML: "<p>hello</p>",
		Tag:      "password-reset",
	}
}

func TestSendEmailParams_Validate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, validParams().Validate())

	apostrophe := validParams()
	apostrophe.SendTo = "o'brien@example.com"
	apostrophe.ReplyTo = "d'arcy@example.com"
	assert.NoError(t, apostrophe.Validate())

	cases := map[string]func(*email.SendEmailParams){
		"bad recipient": func(p *email.SendEmailParams) { p.SendTo = "nope" },
		"bad reply-to":  func(p *email.SendEmailParams) { p.ReplyTo = "nope" },
		"empty subject": func(p *email.SendEmailParams) { p.Subject = "  " },
		"empty body":    func(p *email.SendEmailParams) { p.BodyHTML = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			p := validParams()
			mutate(&p)
			assert.ErrorIs(t, p.Validate(), email.ErrInvalidParams)
		})
	}
}

func TestDevSender(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	sender := email.NewDevSender(filepath.Join(dir, "out"))

	params := validParams()
	params.ReplyTo = "visitor@example.com"
	require.NoError(t, sender.SendEmail(context.Background(), params))

	entries, err := os.ReadDir(filepath.Join(dir, "out"))
	require.NoError(t, err)
	require.Len(t, entries, 2)

	var htmlFile, jsonFile string
	for _, e := range entries {
		switch {
		case strings.HasSuffix(e.Name(), ".html"):
			htmlFile = e.Name()
		case strings.HasSuffix(e.Name(), ".json"):
			jsonFile = e.Name()
		}
	}
	assert.Contains(t, htmlFile, "password-reset")

	body, err := os.ReadFile(filepath.Join(dir, "out", htmlFile))
	require.NoError(t, err)
	assert.Equal(t, "<p>hello</p>", string(body))

	raw, err := os.ReadFile(filepath.Join(dir, "out", jsonFile))
	require.NoError(t, err)
	var env map[string]string
	require.NoError(t, json.Unmarshal(raw, &env))
	assert.Equal(t, "user@example.com", env["send_to"])
	assert.Equal(t, "visitor@example.com", env["reply_to"])

	assert.ErrorIs(t, sender.SendEmail(context.Background(), email.SendEmailParams{}), email.ErrInvalidParams)
}

func TestNewFromConfig(t *testing.T) {
	t.Parallel()

	log := logger.Discard()

	s, err := email.NewFromConfig(email.Config{Driver: "dev", DevDir: t.TempDir()}, log)
	require.NoError(t, err)
	assert.IsType(t, &email.DevSender{}, s)

	_, err = email.NewFromConfig(email.Config{Driver: "postmark"}, log)
	assert.ErrorIs(t, err, email.ErrInvalidConfig)

	_, err = email.NewFromConfig(email.Config{Driver: "smtp"}, log)
	assert.ErrorIs(t, err, email.ErrInvalidConfig)

	s, err = email.NewFromConfig(email.Config{
		Driver:               "postmark",
		PostmarkServerToken:  "server",
		PostmarkAccountToken: "account",
		SenderEmail:          "sender@example.com",
		SupportEmail:         "support@example.com",
		TLSFallback:          true,
	}, log)
	require.NoError(t, err)
	assert.NotNil(t, s)
}
