package services

import (
	"encoding/json"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/desertthunder/lqx/internal/models"
	"github.com/desertthunder/lqx/internal/shared"
)

// Lock reasons the platform reports while background processing holds a lesson.
const (
	LockTokenizing           = "tokenizing"
	LockGeneratingTimestamps = "generating_timestamps"
	LockNormalizingAudio     = "normalizing_audio"
	LockTranscribing         = "transcribing"
	LockGeneratingLIPP       = "generating_lipp"
)

var lockReasons = map[string]bool{
	LockTokenizing:           true,
	LockGeneratingTimestamps: true,
	LockNormalizingAudio:     true,
	LockTranscribing:         true,
	LockGeneratingLIPP:       true,
}

// KnownLockReason reports whether reason belongs to the documented set.
func KnownLockReason(reason string) bool {
	return lockReasons[reason]
}

const detailLimit = 300

// errorBody is the structured error shape; every field is optional.
type errorBody struct {
	ErrorType string          `json:"errorType"`
	IsLocked  json.RawMessage `json:"isLocked"`
	Detail    string          `json:"detail"`
}

// lockReason returns the declared lock reason and whether the body declares a lock at all.
func (b errorBody) lockReason() (string, bool) {
	var reason string
	if len(b.IsLocked) > 0 {
		if err := json.Unmarshal(b.IsLocked, &reason); err != nil {
			reason = strings.TrimSpace(string(b.IsLocked))
		}
	}
	switch {
	case reason == "false" || reason == "null":
		reason = ""
	case reason == "true":
		reason = "unspecified"
	}
	if strings.EqualFold(b.ErrorType, "locked") {
		if reason == "" {
			reason = "unspecified"
		}
		return reason, true
	}
	return reason, reason != ""
}

func (b errorBody) invalidCredentials() bool {
	d := strings.ToLower(b.Detail)
	return strings.Contains(d, "invalid token") || strings.Contains(d, "credentials were not provided")
}

// classify maps a response to its outcome and, for failures, the sentinel error callers match on.
func classify(status int, body []byte) (models.RequestOutcome, error) {
	out := models.RequestOutcome{StatusCode: status, Detail: excerpt(body)}
	if status >= 200 && status < 300 {
		out.Status = models.OutcomeSuccess
		return out, nil
	}

	var eb errorBody
	structured := json.Unmarshal(body, &eb) == nil

	if status == http.StatusUnauthorized || (structured && eb.invalidCredentials()) {
		out.Status = models.OutcomeFatal
		return out, shared.ErrInvalidCredentials
	}
	if structured {
		if reason, locked := eb.lockReason(); locked {
			out.Status = models.OutcomeLocked
			out.LockReason = reason
			return out, shared.ErrLocked
		}
	}

	switch {
	case status == http.StatusTooManyRequests:
		out.Status = models.OutcomeRateLimited
		return out, shared.ErrRateLimited
	case status >= 500:
		out.Status = models.OutcomeTransient
		return out, shared.ErrTransient
	case status == http.StatusNotFound:
		out.Status = models.OutcomeFatal
		return out, shared.ErrNotFound
	case status >= 400:
		out.Status = models.OutcomeFatal
		return out, shared.ErrRequestRejected
	default:
		out.Status = models.OutcomeFatal
		return out, shared.ErrAPIRequest
	}
}

// excerpt shortens a body for diagnostics without splitting a rune.
func excerpt(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) <= detailLimit {
		return s
	}
	cut := detailLimit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
