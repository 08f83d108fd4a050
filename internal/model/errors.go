package model

import (
	"encoding/json"
	"errors"
)

// Invalid-input sentinels. Both are rejected before any external call and
// reported to the caller verbatim.
var (
	ErrEmptyBrief        = errors.New("brief is required")
	ErrUnknownImageModel = errors.New("unknown image model")
)

// ErrorInfo holds structured failure information for a Run.
type ErrorInfo struct {
	FailedStep string `json:"failed_step"`
	Message    string `json:"message"`
	FailedAt   string `json:"failed_at"`
}

// ToJSON serializes ErrorInfo to a JSON string.
func (e ErrorInfo) ToJSON() string {
	b, _ := json.Marshal(e)
	return string(b)
}
