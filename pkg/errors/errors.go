// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlotWeave Contributors

package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/samber/oops"
)

// Code is the machine-readable identifier for an error.
type Code string

const (
	CodeWorldDuplicateID     Code = "world.graph.add.conflict"
	CodeWorldMissingEndpoint Code = "world.edge.endpoint.not_found"
	CodeWorldEntityNotFound  Code = "world.entity.not_found"
	CodeWorldEdgeNotFound    Code = "world.edge.not_found"
	CodeWorldNotReady        Code = "world.lifecycle.not_ready"
	CodeWorldInvalidInput    Code = "world.invalid_input"
	CodeWorldSnapshotCorrupt Code = "world.snapshot.load.corrupt"
	CodeWorldSnapshotFailure Code = "world.snapshot.failure"

	CodeEmbeddingUnavailable Code = "embedding.generate.upstream_failure"
	CodeEmbeddingDimensions  Code = "embedding.dimensions.invalid_value"

	CodeIndexFailure      Code = "index.database.failure"
	CodeIndexInvalidInput Code = "index.invalid_input"

	CodeConfigLoadFailure Code = "config.load.failure"
	CodeConfigInvalid     Code = "config.validate.invalid_value"

	CodeProjectNotFound    Code = "project.not_found"
	CodeProjectLoadFailure Code = "project.load.failure"
	CodeProjectSaveFailure Code = "project.save.failure"
	CodeProjectInvalid     Code = "project.invalid_input"

	CodeSecretNotFound     Code = "secret.not_found"
	CodeSecretInvalidInput Code = "secret.invalid_input"
	CodeSecretStoreFailure Code = "secret.store.failure"

	CodeServerRequestInvalid  Code = "server.request.invalid_input"
	CodeServerInternalFailure Code = "server.internal.failure"
	CodeServerStartFailure    Code = "server.start.failure"

	CodeCLISetupFailure Code = "cli.setup.failure"
	CodeCLIInputInvalid Code = "cli.input.invalid_input"
)

// Attr is a structured key/value context attached to an error.
type Attr struct {
	Key   string
	Value any
}

// Field creates a structured error field.
func Field(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

func FieldEntityID(value string) Attr  { return Field("entity_id", value) }
func FieldEdgeID(value string) Attr    { return Field("edge_id", value) }
func FieldProjectID(value string) Attr { return Field("project_id", value) }

func New(code Code, msg string, fields ...Attr) error {
	return oops.Code(code).With(flatten(fields)...).New(msg)
}

func Errorf(code Code, format string, args ...any) error {
	return oops.Code(code).Errorf(format, args...)
}

func Wrap(err error, code Code, msg string, fields ...Attr) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).With(flatten(fields)...).Wrapf(err, "%s", msg)
}

func Wrapf(err error, code Code, format string, args ...any) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).Wrapf(err, format, args...)
}

func CodeOf(err error) Code {
	if err == nil {
		return ""
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}

	if code, ok := oopsErr.Code().(Code); ok {
		return code
	}

	if code, ok := oopsErr.Code().(string); ok {
		return Code(code)
	}

	return Code(fmt.Sprintf("%v", oopsErr.Code()))
}

func FieldsOf(err error) map[string]any {
	if err == nil {
		return nil
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}

	return oopsErr.Context()
}

func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

func IsNotFound(err error) bool {
	return reason(CodeOf(err)) == "not_found"
}

// IsDuplicateID reports whether the error is an id collision on insert.
func IsDuplicateID(err error) bool {
	return reason(CodeOf(err)) == "conflict"
}

// IsMissingEndpoint reports whether an edge insert referenced an absent entity.
func IsMissingEndpoint(err error) bool {
	return HasCode(err, CodeWorldMissingEndpoint)
}

func IsNotReady(err error) bool {
	return reason(CodeOf(err)) == "not_ready"
}

func IsCorruptSnapshot(err error) bool {
	return reason(CodeOf(err)) == "corrupt"
}

func IsInvalidInput(err error) bool {
	r := reason(CodeOf(err))
	return r == "invalid" || r == "invalid_input" || r == "invalid_value"
}

// IsEmbeddingUnavailable reports a potentially-transient embedding provider
// failure. Callers may retry the whole mutation; the store has already rolled
// back its graph half.
func IsEmbeddingUnavailable(err error) bool {
	return HasCode(err, CodeEmbeddingUnavailable)
}

func IsUpstreamFailure(err error) bool {
	code := CodeOf(err)
	return strings.Contains(string(code), "upstream") && reason(code) == "failure"
}

func HTTPStatus(err error) int {
	switch {
	case IsNotFound(err):
		return http.StatusNotFound
	case IsDuplicateID(err):
		return http.StatusConflict
	case IsInvalidInput(err):
		return http.StatusBadRequest
	case IsNotReady(err):
		return http.StatusServiceUnavailable
	case IsUpstreamFailure(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func Join(errs ...error) error {
	return oops.Code(CodeServerInternalFailure).Wrap(stderrors.Join(errs...))
}

func flatten(fields []Attr) []any {
	pairs := make([]any, 0, len(fields)*2)
	for _, field := range fields {
		if field.Key == "" {
			continue
		}
		pairs = append(pairs, field.Key, field.Value)
	}
	return pairs
}

func reason(code Code) string {
	if code == "" {
		return ""
	}

	raw := string(code)
	idx := strings.LastIndex(raw, ".")
	if idx == -1 || idx == len(raw)-1 {
		return raw
	}
	return raw[idx+1:]
}
