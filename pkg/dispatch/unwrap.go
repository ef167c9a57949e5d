package dispatch

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Envelope is the raw transport response before unwrapping
type Envelope struct {
	StatusCode int
	Body       json.RawMessage
	Message    string
}

type envelopeBody struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// Unwrap applies the System Manager response convention to env. A non-200
// status becomes a *RemoteError carrying the server message (or
// FallbackMessage); a 200 returns body.data decoded as T, or def when data is
// absent.
func Unwrap[T any](env *Envelope, def T) (T, error) {
	if env == nil {
		return def, errors.New("dispatch: nil envelope")
	}

	if env.StatusCode != http.StatusOK {
		return def, remoteError(env)
	}

	data, err := env.data()
	if err != nil {
		return def, err
	}
	if data == nil {
		return def, nil
	}

	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return def, fmt.Errorf("failed to decode response data: %w", err)
	}
	return out, nil
}

// UnwrapInto is the non-generic form of Unwrap used by Call. out is left
// untouched when the response carries no data.
func UnwrapInto(env *Envelope, out any) error {
	if env == nil {
		return errors.New("dispatch: nil envelope")
	}

	if env.StatusCode != http.StatusOK {
		return remoteError(env)
	}

	if out == nil {
		return nil
	}

	data, err := env.data()
	if err != nil || data == nil {
		return err
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}
	return nil
}

// data returns the raw data member, or nil when it is missing or null
func (e *Envelope) data() (json.RawMessage, error) {
	if len(e.Body) == 0 {
		return nil, nil
	}

	var body envelopeBody
	if err := json.Unmarshal(e.Body, &body); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(body.Data) == 0 || string(body.Data) == "null" {
		return nil, nil
	}
	return body.Data, nil
}

// message returns the server supplied message, if any
func (e *Envelope) message() string {
	if e.Message != "" {
		return e.Message
	}

	var body envelopeBody
	if len(e.Body) > 0 && json.Unmarshal(e.Body, &body) == nil {
		return body.Message
	}
	return ""
}

func remoteError(env *Envelope) *RemoteError {
	msg := env.message()
	if msg == "" {
		msg = FallbackMessage
	}
	return &RemoteError{StatusCode: env.StatusCode, Message: msg}
}
