// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/canonical/erp-auth/internal/logging"
)

const internalErrorMessage = "internal server error"

// Response is the envelope wrapping every JSON body the API writes.
type Response struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data"`
	Message   string      `json:"message"`
	Timestamp string      `json:"timestamp"`
	Path      string      `json:"path"`
}

func WriteJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	write(w, status, &Response{
		Success:   status < http.StatusBadRequest,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Path:      r.URL.Path,
	})
}

// WriteError renders err in the failure envelope. Anything that is not a
// typed failure is logged and reported as a generic internal error.
func WriteError(w http.ResponseWriter, r *http.Request, err error, logger logging.LoggerInterface) {
	e := Classify(err)

	if e.Kind == KindInternal {
		logger.Errorf("%s %s failed: %v", r.Method, r.URL.Path, err)
	}

	write(w, e.Status(), &Response{
		Success:   false,
		Data:      nil,
		Message:   e.Message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Path:      r.URL.Path,
	})
}

// Classify maps err onto a client-facing failure.
func Classify(err error) *Error {
	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		return BadRequest(validationMessage(validationErrs))
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return BadRequest("malformed request body")
	}

	return &Error{Kind: KindInternal, Message: internalErrorMessage, Err: err}
}

func validationMessage(errs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(errs))
	for _, fe := range errs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		case "email":
			msgs = append(msgs, fmt.Sprintf("%s must be a valid email", fe.Field()))
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}

func write(w http.ResponseWriter, status int, body *Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
