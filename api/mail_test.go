package main

import (
	"testing"

	"github.com/go-mail/mail/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMailer(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name            string
		cfg             smtpConfig
		baseURL         string
		expectedBaseURL string
		expectedPolicy  mail.StartTLSPolicy
	}{
		{
			name:            "Authenticated relay",
			cfg:             smtpConfig{Host: "smtp.example.com", Port: 587, Username: "u", Password: "p", Sender: "noreply@example.com"},
			baseURL:         "https://tasks.example.com/",
			expectedBaseURL: "https://tasks.example.com",
			expectedPolicy:  mail.MandatoryStartTLS,
		},
		{
			name:            "Local relay",
			cfg:             smtpConfig{Host: "localhost", Port: 1025},
			baseURL:         "http://localhost:8000",
			expectedBaseURL: "http://localhost:8000",
			expectedPolicy:  mail.OpportunisticStartTLS,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			m, err := newMailer(tc.cfg, tc.baseURL)
			require.NoError(t, err)
			assert.Equal(t, tc.expectedBaseURL, m.baseURL)
			assert.Equal(t, tc.cfg.Host, m.dialer.Host)
			assert.Equal(t, tc.cfg.Port, m.dialer.Port)
			assert.Equal(t, tc.expectedPolicy, m.dialer.StartTLSPolicy)
		})
	}
}

func TestVerificationLink(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "http://localhost:8000/auth/verify?token=abc.def.ghi",
		verificationLink("http://localhost:8000", "abc.def.ghi"))
	assert.Equal(t, "http://localhost:8000/auth/verify?token=a%2Bb%3D",
		verificationLink("http://localhost:8000", "a+b="))
}

func TestRenderVerificationEmail(t *testing.T) {
	t.Parallel()
	m, err := newMailer(smtpConfig{Host: "localhost", Port: 1025}, "http://localhost:8000")
	require.NoError(t, err)

	link := verificationLink(m.baseURL, "abc.def.ghi")
	content, err := render(m.verification, struct {
		Username string
		Link     string
	}{Username: "alice", Link: link})
	require.NoError(t, err)

	assert.Equal(t, "Verify your Task account", content.subject)
	assert.Contains(t, content.plainBody, "Hi alice,")
	assert.Contains(t, content.plainBody, link)
	assert.Contains(t, content.htmlBody, `href="`+link+`"`)
	assert.Contains(t, content.htmlBody, "Welcome to Task, alice!")
}

func TestRenderEscapesUsername(t *testing.T) {
	t.Parallel()
	m, err := newMailer(smtpConfig{Host: "localhost", Port: 1025}, "http://localhost:8000")
	require.NoError(t, err)

	content, err := render(m.verification, struct {
		Username string
		Link     string
	}{Username: "<b>mallory</b>", Link: "http://localhost:8000/auth/verify?token=x"})
	require.NoError(t, err)
	assert.NotContains(t, content.htmlBody, "<b>mallory</b>")
	assert.Contains(t, content.htmlBody, "&lt;b&gt;mallory&lt;/b&gt;")
}
