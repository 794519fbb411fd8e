package calendar

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Brief is the user's planning request.
type Brief struct {
	Title          string `json:"title,omitempty"`
	Topic          string `json:"topic"`
	TargetAudience string `json:"targetAudience"`
	Goals          string `json:"goals"`
	Duration       string `json:"duration"`

	raw json.RawMessage
}

// DecodeBrief strictly decodes a request body into a Brief. Unknown fields are
// rejected. The body is kept verbatim for storage on the calendar header.
func DecodeBrief(body []byte) (Brief, error) {
	var b Brief
	if len(bytes.TrimSpace(body)) == 0 {
		return b, clientError("Request body is required.")
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&b); err != nil {
		return Brief{}, &Error{Kind: KindClient, Message: "Request body is not a valid calendar brief.", Err: err}
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return Brief{}, clientError("Request body must contain a single JSON object.")
	}
	b.raw = append(json.RawMessage(nil), bytes.TrimSpace(body)...)
	return b, nil
}

// Validate requires every field except Title.
func (b Brief) Validate() error {
	var missing []string
	for _, f := range []struct {
		name, value string
	}{
		{"topic", b.Topic},
		{"targetAudience", b.TargetAudience},
		{"goals", b.Goals},
		{"duration", b.Duration},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return clientError(fmt.Sprintf("Missing required brief fields: %s.", strings.Join(missing, ", ")))
	}
	return nil
}

// EffectiveTitle is the calendar title: the brief's title or "Calendar for <topic>".
func (b Brief) EffectiveTitle() string {
	if t := strings.TrimSpace(b.Title); t != "" {
		return t
	}
	return "Calendar for " + b.Topic
}

// Raw returns the brief as received, or its JSON encoding when it was built in code.
func (b Brief) Raw() json.RawMessage {
	if len(b.raw) > 0 {
		return b.raw
	}
	data, _ := json.Marshal(b)
	return data
}
