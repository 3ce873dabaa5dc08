package shell

import (
	"encoding/json"
	"time"
)

type FlashKind string

const (
	FlashSuccess FlashKind = "success"
	FlashError   FlashKind = "error"
)

// FlashHideAfter is how long a success message stays on screen.
const FlashHideAfter = 5 * time.Second

// Flash is a transient message shown next to a form. Error flashes stay
// until the next submit.
type Flash struct {
	Kind      FlashKind
	Message   string
	HideAfter time.Duration
}

func Success(msg string) *Flash {
	return &Flash{Kind: FlashSuccess, Message: msg, HideAfter: FlashHideAfter}
}

func Failure(msg string) *Flash {
	return &Flash{Kind: FlashError, Message: msg}
}

func (f Flash) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind        FlashKind `json:"kind"`
		Message     string    `json:"message"`
		HideAfterMS int64     `json:"hide_after_ms,omitempty"`
	}{f.Kind, f.Message, f.HideAfter.Milliseconds()})
}
