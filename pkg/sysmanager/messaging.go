package sysmanager

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sysmanager-dev/sysmanager/pkg/dispatch"
)

// SMSChunkSize is the longest text sent in one SMS, in characters
const SMSChunkSize = 160

// SMS holds the parameters of SendSMS
type SMS struct {
	To      string `json:"to" validate:"required,e164"`
	Message string `json:"message" validate:"required"`
}

// Email holds the parameters of SendEmail
type Email struct {
	To      []string `json:"to" validate:"required,min=1,dive,email"`
	Cc      []string `json:"cc,omitempty" validate:"omitempty,dive,email"`
	Subject string   `json:"subject" validate:"required"`
	Body    string   `json:"body" validate:"required"`
	HTML    bool     `json:"html,omitempty"`
}

// MessageReceipt is the server acknowledgement of one sent message
type MessageReceipt struct {
	ID     string `json:"_id"`
	Status string `json:"status"`
}

type smsPart struct {
	To      string `json:"to"`
	Message string `json:"message"`
	Part    int    `json:"part"`
	Parts   int    `json:"parts"`
}

// MessagingService sends SMS and email through the System Manager
type MessagingService struct {
	d *dispatch.Dispatcher
}

// SendSMS splits the message into SMSChunkSize character parts and sends
// them one at a time, in order. On failure it returns the receipts of the
// parts already sent.
func (s *MessagingService) SendSMS(ctx context.Context, token string, sms SMS) ([]MessageReceipt, error) {
	if err := requireSession(token); err != nil {
		return nil, err
	}
	if err := dispatch.ValidateStruct(sms); err != nil {
		return nil, err
	}

	parts := splitMessage(sms.Message, SMSChunkSize)
	receipts := make([]MessageReceipt, 0, len(parts))

	for i, part := range parts {
		var receipt MessageReceipt
		err := s.d.Call(ctx, dispatch.Request{
			Method:  http.MethodPost,
			Path:    endpoint("message", "sms"),
			Session: token,
			Body: smsPart{
				To:      sms.To,
				Message: part,
				Part:    i + 1,
				Parts:   len(parts),
			},
		}, &receipt)
		if err != nil {
			return receipts, fmt.Errorf("failed to send sms part %d of %d: %w", i+1, len(parts), err)
		}
		receipts = append(receipts, receipt)
	}

	return receipts, nil
}

// SendEmail sends one email
func (s *MessagingService) SendEmail(ctx context.Context, token string, email Email) (*MessageReceipt, error) {
	if err := requireSession(token); err != nil {
		return nil, err
	}
	if err := dispatch.ValidateStruct(email); err != nil {
		return nil, err
	}

	var receipt MessageReceipt
	err := s.d.Call(ctx, dispatch.Request{
		Method:  http.MethodPost,
		Path:    endpoint("message", "email"),
		Session: token,
		Body:    email,
	}, &receipt)
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}

// splitMessage cuts text into parts of at most size characters
func splitMessage(text string, size int) []string {
	runes := []rune(text)
	parts := make([]string, 0, (len(runes)+size-1)/size)
	for start := 0; start < len(runes); start += size {
		end := min(start+size, len(runes))
		parts = append(parts, string(runes[start:end]))
	}
	return parts
}
