package sysmanager

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sysmanager-dev/sysmanager/pkg/dispatch"
)

func TestSplitMessage(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []int
	}{
		{name: "short", text: "hello", want: []int{5}},
		{name: "exact", text: strings.Repeat("a", 160), want: []int{160}},
		{name: "one over", text: strings.Repeat("a", 161), want: []int{160, 1}},
		{name: "multi byte", text: strings.Repeat("ç", 330), want: []int{160, 160, 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parts := splitMessage(tt.text, SMSChunkSize)

			var lengths []int
			for _, p := range parts {
				lengths = append(lengths, len([]rune(p)))
			}
			assert.Equal(t, tt.want, lengths)
			assert.Equal(t, tt.text, strings.Join(parts, ""))
		})
	}
}

func TestSendSMS_SequentialParts(t *testing.T) {
	var received []string
	var inFlight, maxInFlight int

	mux := http.NewServeMux()
	mux.HandleFunc("POST /message/sms", func(w http.ResponseWriter, r *http.Request) {
		inFlight++
		maxInFlight = max(maxInFlight, inFlight)
		defer func() { inFlight-- }()

		body := decodeBody(t, r)
		assert.Equal(t, "+15551234567", body["to"])
		assert.Equal(t, float64(3), body["parts"])
		received = append(received, body["message"].(string))

		part := int(body["part"].(float64))
		reply(w, `{"_id":"m`+strconv.Itoa(part)+`","status":"queued"}`)
	})
	api := newTestAPI(t, mux)

	text := strings.Repeat("a", 160) + strings.Repeat("b", 160) + "c"
	receipts, err := api.Messaging.SendSMS(context.Background(), "tok", SMS{To: "+15551234567", Message: text})
	require.NoError(t, err)

	require.Len(t, receipts, 3)
	assert.Equal(t, "m1", receipts[0].ID)
	assert.Equal(t, "m3", receipts[2].ID)
	assert.Equal(t, []string{strings.Repeat("a", 160), strings.Repeat("b", 160), "c"}, received)
	assert.Equal(t, 1, maxInFlight)
}

func TestSendSMS_StopsAtFirstFailure(t *testing.T) {
	calls := 0
	api := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 2 {
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte(`{"message":"carrier unavailable"}`))
			return
		}
		reply(w, `{"_id":"m1"}`)
	}))

	receipts, err := api.Messaging.SendSMS(context.Background(), "tok", SMS{
		To:      "+15551234567",
		Message: strings.Repeat("x", 400),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "part 2 of 3")
	assert.Contains(t, err.Error(), "carrier unavailable")
	assert.Equal(t, http.StatusBadGateway, dispatch.StatusCode(err))
	assert.Len(t, receipts, 1)
	assert.Equal(t, 2, calls)
}

func TestSendSMS_Validation(t *testing.T) {
	api := newTestAPI(t, http.NotFoundHandler())

	_, err := api.Messaging.SendSMS(context.Background(), "tok", SMS{To: "5551234", Message: "hi"})
	var validationErr *dispatch.ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "to", validationErr.Field)

	_, err = api.Messaging.SendSMS(context.Background(), "tok", SMS{To: "+15551234567"})
	assert.EqualError(t, err, "message is required")
}

func TestSendEmail(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /message/email", func(w http.ResponseWriter, r *http.Request) {
		body := decodeBody(t, r)
		assert.Equal(t, []any{"ana@example.com"}, body["to"])
		assert.Equal(t, "Welcome", body["subject"])
		assert.Equal(t, true, body["html"])
		reply(w, `{"_id":"e1","status":"sent"}`)
	})
	api := newTestAPI(t, mux)

	receipt, err := api.Messaging.SendEmail(context.Background(), "tok", Email{
		To:      []string{"ana@example.com"},
		Subject: "Welcome",
		Body:    "<p>Hi</p>",
		HTML:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, "sent", receipt.Status)

	_, err = api.Messaging.SendEmail(context.Background(), "tok", Email{
		To:      []string{"not-an-email"},
		Subject: "Welcome",
		Body:    "Hi",
	})
	var validationErr *dispatch.ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "to[0]", validationErr.Field)
}
