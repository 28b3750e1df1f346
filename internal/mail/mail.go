// Package mail sends outbound email.
package mail

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Message is a single outbound email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// FormatPurpose turns a purpose such as "reset_password" into "Reset Password".
func FormatPurpose(purpose string) string {
	p := strings.ReplaceAll(purpose, "_", " ")
	return cases.Title(language.English).String(p)
}

// VerificationMessage builds the email carrying a verification code.
func VerificationMessage(to, code, purpose string, ttl time.Duration) Message {
	minutes := int(ttl.Minutes())
	if minutes < 1 {
		minutes = 1
	}
	title := FormatPurpose(purpose)
	return Message{
		To:      to,
		Subject: fmt.Sprintf("Your %s verification code", title),
		Body: fmt.Sprintf(
			"<p>Your %s verification code is <strong>%s</strong>.</p>"+
				"<p>It expires in %d minutes. If you did not request it, ignore this email.</p>",
			title, code, minutes,
		),
	}
}
