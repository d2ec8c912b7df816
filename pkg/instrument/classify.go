package instrument

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strconv"

	"storefront/beacon/pkg/telemetry/metrics"
)

// MaxFallbackMessageLength caps the raw body used as a message when the
// body could not be interpreted.
const MaxFallbackMessageLength = 200

// Kinds and messages used when the body does not provide one.
const (
	GraphQLErrorKind    = "GRAPHQL_ERROR"
	GraphQLErrorMessage = "GraphQL error"
	UnknownErrorMessage = "Unknown error"
	NoResponseMessage   = "No response"
)

var errTrailingData = errors.New("unexpected data after top-level value")

// ErrorDetail describes a failed response.
type ErrorDetail struct {
	Kind    string
	Message string
}

// ClassifyError derives an ErrorDetail from a response body and status code.
// body may be a string or []byte holding JSON, an already decoded value, or
// nil. It never fails: anything it cannot interpret is reported as
// HTTP_<status> with the raw body as message.
//
// GraphQL envelopes use the first entry of "errors":
//
//	{"errors":[{"message":"Not found","extensions":{"code":"NOT_FOUND"}}]}
//	=> {Kind: "NOT_FOUND", Message: "Not found"}
//
// Other objects use "error" or "name" for the kind and "message" or
// "description" for the message.
func ClassifyError(body any, statusCode int) ErrorDetail {
	if obj, ok := asObject(body); ok {
		if detail, ok := classifyObject(obj, statusCode); ok {
			return detail
		}
	}
	return fallbackDetail(body, statusCode)
}

// classifyObject applies the envelope rules. ok is false when the envelope
// is malformed and the raw fallback should be used instead.
func classifyObject(obj map[string]any, statusCode int) (ErrorDetail, bool) {
	if list, isList := obj["errors"].([]any); isList {
		if len(list) == 0 || list[0] == nil {
			return ErrorDetail{}, false
		}

		detail := ErrorDetail{Kind: GraphQLErrorKind, Message: GraphQLErrorMessage}
		if first, ok := list[0].(map[string]any); ok {
			if ext, ok := first["extensions"].(map[string]any); ok {
				if code := textValue(ext["code"]); code != "" {
					detail.Kind = code
				}
			}
			if msg := textValue(first["message"]); msg != "" {
				detail.Message = msg
			}
		}
		return detail, true
	}

	detail := ErrorDetail{
		Kind:    firstText(obj["error"], obj["name"]),
		Message: firstText(obj["message"], obj["description"]),
	}
	if detail.Kind == "" {
		detail.Kind = httpKind(statusCode)
	}
	if detail.Message == "" {
		detail.Message = UnknownErrorMessage
	}
	return detail, true
}

func fallbackDetail(body any, statusCode int) ErrorDetail {
	raw := rawText(body)
	if raw == "" {
		raw = NoResponseMessage
	} else {
		raw = metrics.TruncateRunes(raw, MaxFallbackMessageLength)
	}
	return ErrorDetail{Kind: httpKind(statusCode), Message: raw}
}

func httpKind(statusCode int) string {
	return "HTTP_" + strconv.Itoa(statusCode)
}

// asObject returns body as a JSON object, decoding or re-encoding it as
// needed. A JSON array is treated as an object without fields, so it gets
// the generic HTTP_<code> kind. Scalars and null are not objects.
func asObject(body any) (map[string]any, bool) {
	var (
		value any
		err   error
	)
	switch b := body.(type) {
	case nil:
		return nil, false
	case string:
		value, err = decodeJSON([]byte(b))
	case []byte:
		value, err = decodeJSON(b)
	case json.RawMessage:
		value, err = decodeJSON(b)
	default:
		var data []byte
		if data, err = json.Marshal(b); err == nil {
			value, err = decodeJSON(data)
		}
	}
	if err != nil {
		return nil, false
	}
	switch v := value.(type) {
	case map[string]any:
		return v, true
	case []any:
		return map[string]any{}, true
	default:
		return nil, false
	}
}

// decodeJSON decodes exactly one JSON value. Numbers are kept as
// json.Number so they render the way they were written.
func decodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errTrailingData
	}
	return v, nil
}

func firstText(values ...any) string {
	for _, v := range values {
		if s := textValue(v); s != "" {
			return s
		}
	}
	return ""
}

// textValue renders a decoded JSON value as label text. Values that are
// falsy in JSON terms (null, false, 0, "") yield the empty string and count
// as absent.
func textValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if !t {
			return ""
		}
		return "true"
	case json.Number:
		if f, err := t.Float64(); err == nil && f == 0 {
			return ""
		}
		return t.String()
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(data)
	}
}

// rawText is the string form of a body for the fallback message.
func rawText(body any) string {
	switch b := body.(type) {
	case nil:
		return ""
	case string:
		return b
	case []byte:
		return string(b)
	case json.RawMessage:
		return string(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return ""
		}
		return string(data)
	}
}
