package apierror

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// ConflictMessage is used for 409 responses whose body carries no message of its own.
// The backend only returns 409 for duplicate registrations today.
const ConflictMessage = "An account with this email already exists."

// Shape identifies which backend error envelope produced the message.
type Shape int

const (
	ShapeDetailString Shape = iota
	ShapeValidation
	ShapeDetailObject
	ShapeGateway
	ShapeConflict
	ShapeGeneric
)

func (s Shape) String() string {
	switch s {
	case ShapeDetailString:
		return "detail_string"
	case ShapeValidation:
		return "validation"
	case ShapeDetailObject:
		return "detail_object"
	case ShapeGateway:
		return "gateway"
	case ShapeConflict:
		return "conflict"
	default:
		return "generic"
	}
}

// Envelope is the result of matching a failure body against the known shapes.
type Envelope struct {
	Shape   Shape
	Message string
	Code    string
}

// FieldError is one entry of a validation error array.
type FieldError struct {
	Loc  []any  `json:"loc"`
	Msg  string `json:"msg"`
	Type string `json:"type,omitempty"`
}

type rawBody struct {
	Detail  json.RawMessage `json:"detail"`
	Error   json.RawMessage `json:"error"`
	Message json.RawMessage `json:"message"`
	Code    json.RawMessage `json:"code"`
}

type messageObject struct {
	Msg     string          `json:"msg"`
	Message string          `json:"message"`
	Code    json.RawMessage `json:"code"`
}

// Normalize builds the typed error for a non-2xx response.
func Normalize(status int, body []byte) *APIError {
	env := Match(status, body)
	return &APIError{
		Message: env.Message,
		Status:  status,
		Code:    env.Code,
		Kind:    KindForStatus(status),
	}
}

// Match applies the envelope rules in order. Later rules only apply when earlier ones don't match.
func Match(status int, body []byte) Envelope {
	var raw rawBody
	parsed := json.Unmarshal(bytes.TrimSpace(body), &raw) == nil
	code := ""
	if parsed {
		code = firstCode(raw)
	}

	if parsed {
		if msg, ok := asString(raw.Detail); ok {
			return Envelope{Shape: ShapeDetailString, Message: msg, Code: code}
		}
		if msg, ok := validationMessage(raw.Detail); ok {
			return Envelope{Shape: ShapeValidation, Message: msg, Code: code}
		}
		if obj, ok := asMessageObject(raw.Detail); ok {
			if msg := firstNonEmpty(obj.Msg, obj.Message); msg != "" {
				return Envelope{Shape: ShapeDetailObject, Message: msg, Code: code}
			}
		}
		if msg, ok := gatewayMessage(raw); ok {
			return Envelope{Shape: ShapeGateway, Message: msg, Code: code}
		}
	}

	if status == http.StatusConflict {
		return Envelope{Shape: ShapeConflict, Message: ConflictMessage, Code: code}
	}
	return Envelope{Shape: ShapeGeneric, Message: fmt.Sprintf("Request failed with status %d", status), Code: code}
}

func validationMessage(detail json.RawMessage) (string, bool) {
	if !isKind(detail, '[') {
		return "", false
	}
	var items []FieldError
	if err := json.Unmarshal(detail, &items); err != nil || len(items) == 0 {
		return "", false
	}

	parts := make([]string, 0, len(items))
	for _, item := range items {
		field := fieldName(item.Loc)
		if field == "" {
			parts = append(parts, item.Msg)
			continue
		}
		parts = append(parts, field+": "+item.Msg)
	}
	return strings.Join(parts, ". "), true
}

// fieldName drops a leading "body" segment and makes the remaining path readable.
func fieldName(loc []any) string {
	if len(loc) > 0 {
		if s, ok := loc[0].(string); ok && s == "body" {
			loc = loc[1:]
		}
	}
	segments := make([]string, 0, len(loc))
	for _, seg := range loc {
		switch v := seg.(type) {
		case string:
			segments = append(segments, strings.ReplaceAll(v, "_", " "))
		case float64:
			segments = append(segments, fmt.Sprintf("%d", int(v)))
		default:
			segments = append(segments, fmt.Sprint(v))
		}
	}
	return strings.Join(segments, ".")
}

func gatewayMessage(raw rawBody) (string, bool) {
	if msg, ok := asString(raw.Error); ok {
		return msg, true
	}
	if obj, ok := asMessageObject(raw.Error); ok && obj.Message != "" {
		return obj.Message, true
	}
	if msg, ok := asString(raw.Message); ok {
		return msg, true
	}
	return "", false
}

func firstCode(raw rawBody) string {
	if obj, ok := asMessageObject(raw.Detail); ok {
		if c, ok := codeString(obj.Code); ok {
			return c
		}
	}
	if obj, ok := asMessageObject(raw.Error); ok {
		if c, ok := codeString(obj.Code); ok {
			return c
		}
	}
	if c, ok := codeString(raw.Code); ok {
		return c
	}
	return ""
}

func codeString(raw json.RawMessage) (string, bool) {
	if s, ok := asString(raw); ok {
		return s, true
	}
	if isKind(raw, '0', '1', '2', '3', '4', '5', '6', '7', '8', '9') {
		return string(bytes.TrimSpace(raw)), true
	}
	return "", false
}

func asString(raw json.RawMessage) (string, bool) {
	if !isKind(raw, '"') {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

func asMessageObject(raw json.RawMessage) (messageObject, bool) {
	if !isKind(raw, '{') {
		return messageObject{}, false
	}
	var obj messageObject
	if err := json.Unmarshal(raw, &obj); err != nil {
		return messageObject{}, false
	}
	return obj, true
}

func isKind(raw json.RawMessage, first ...byte) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return false
	}
	for _, b := range first {
		if trimmed[0] == b {
			return true
		}
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
