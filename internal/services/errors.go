package services

import "encoding/json"

// InputError marks a caller mistake: a missing or malformed request
// parameter. Surfaced as HTTP 400 and never retried.
type InputError struct {
	Message string
}

func (e *InputError) Error() string {
	return e.Message
}

// RenderError marks a failure while turning validated content into a
// downloadable artifact. Retrying with the same content would fail
// identically, so it is surfaced directly.
type RenderError struct {
	Err error
}

func (e *RenderError) Error() string {
	return "render document: " + e.Err.Error()
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

func jsonBody(payload any) ([]byte, error) {
	return json.Marshal(payload)
}
