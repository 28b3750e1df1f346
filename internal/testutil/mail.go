package testutil

import (
	"context"
	"sync"

	"homeserve/internal/mail"
)

// MailRecorder is a mail.Sender that keeps every message in memory. Setting
// Err makes Send fail.
type MailRecorder struct {
	mu       sync.Mutex
	messages []mail.Message
	Err      error
}

// Send records msg or returns Err.
func (r *MailRecorder) Send(_ context.Context, msg mail.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.messages = append(r.messages, msg)
	return nil
}

// Messages returns a copy of the recorded messages.
func (r *MailRecorder) Messages() []mail.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]mail.Message(nil), r.messages...)
}
