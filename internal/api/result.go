package api

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"tweetqueue/internal/platform"
	"tweetqueue/internal/services"
	"tweetqueue/internal/session"
)

// Result is the envelope every command returns.
type Result struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

// ErrorBody classifies a failed command.
type ErrorBody struct {
	Kind              string `json:"kind"`
	Code              string `json:"code"`
	Message           string `json:"message"`
	Action            string `json:"action"`
	RetryAfterSeconds int    `json:"retry_after_seconds,omitempty"`
}

func (e *ErrorBody) Error() string {
	if e.Action != "" {
		return fmt.Sprintf("%s (%s; %s)", e.Message, e.Code, strings.ReplaceAll(e.Action, "_", " "))
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Code)
}

// Ok wraps data in a successful Result.
func Ok(data any) Result {
	return Result{Success: true, Data: data}
}

// Fail wraps err in a failed Result.
func Fail(err error) Result {
	return Result{Error: FromError(err)}
}

// FromError classifies err for transport.
func FromError(err error) *ErrorBody {
	if err == nil {
		return nil
	}
	kind := services.KindOf(err)
	body := &ErrorBody{
		Kind:    string(kind),
		Code:    string(kind),
		Message: err.Error(),
		Action:  string(services.ActionFor(err)),
	}

	var authErr *session.AuthError
	if errors.As(err, &authErr) {
		body.Code = string(authErr.Reason)
	}
	var platformErr *platform.Error
	if errors.As(err, &platformErr) {
		body.Code = "platform_" + string(platformErr.Kind)
		if platformErr.RetryAfter > 0 {
			body.RetryAfterSeconds = int(math.Ceil(platformErr.RetryAfter.Seconds()))
		}
	}
	return body
}
