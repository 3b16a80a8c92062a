package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strconv"

	"github.com/dmitrijs2005/taskhub/internal/validation"
)

const maxBodyBytes = 1 << 20

const (
	msgNotAString   = "Not a valid string."
	msgNotAnInteger = "A valid integer is required."
	msgNotAList     = "Expected a list of items."
	msgNull         = "This field may not be null."
)

// decodeJSON reads the request body into dst and writes the error response
// itself when that fails. An empty body decodes as an empty object.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}

	var (
		typeErr *json.UnmarshalTypeError
		maxErr  *http.MaxBytesError
	)
	switch {
	case errors.As(err, &typeErr) && typeErr.Field != "":
		writeValidationErrors(w, validation.Errors{typeErr.Field: {typeMessage(typeErr.Type)}})
	case errors.As(err, &maxErr):
		writeError(w, http.StatusRequestEntityTooLarge, "Request body too large.")
	default:
		writeError(w, http.StatusBadRequest, "JSON parse error.")
	}
	return false
}

// form is a request object read one member at a time. A badly typed member
// is recorded in errs and reads as its zero value, so it is reported next to
// every other field error instead of cutting validation short.
type form struct {
	members map[string]json.RawMessage
	errs    validation.Errors
}

// decodeForm reads the body as a JSON object. Like decodeJSON it writes the
// error response itself when the body is not one.
func decodeForm(w http.ResponseWriter, r *http.Request) (*form, bool) {
	f := &form{members: map[string]json.RawMessage{}, errs: validation.Errors{}}
	if !decodeJSON(w, r, &f.members) {
		return nil, false
	}
	return f, true
}

func (f *form) member(name string, nullable bool) *string {
	raw, ok := f.members[name]
	if !ok {
		return nil
	}
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		if !nullable {
			f.errs.Add(name, msgNull)
		}
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		f.errs.Add(name, msgNotAString)
		return nil
	}
	return &s
}

// str reads a string member that may not be null. Absent reads as "".
func (f *form) str(name string) string {
	if s := f.member(name, false); s != nil {
		return *s
	}
	return ""
}

// optStr reads a string member where null means absent.
func (f *form) optStr(name string) string {
	if s := f.member(name, true); s != nil {
		return *s
	}
	return ""
}

// nullableStr reads a string member keeping null as nil.
func (f *form) nullableStr(name string) *string {
	return f.member(name, true)
}

func typeMessage(t reflect.Type) string {
	if t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return msgInvalidInput
	}
	switch t.Kind() {
	case reflect.String:
		return msgNotAString
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return msgNotAnInteger
	case reflect.Slice:
		return msgNotAList
	}
	return msgInvalidInput
}

// parseUserIDs validates the user_ids member of an assignment request: a
// present, non-null array of integers. An empty array is allowed.
func parseUserIDs(raw json.RawMessage) ([]int64, validation.Errors) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, validation.Errors{"user_ids": {validation.MsgRequired}}
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, validation.Errors{"user_ids": {msgNotAList}}
	}

	ids := make([]int64, 0, len(items))
	for _, item := range items {
		if bytes.Equal(bytes.TrimSpace(item), []byte("null")) {
			return nil, validation.Errors{"user_ids": {msgNull}}
		}
		var id int64
		if err := json.Unmarshal(item, &id); err != nil {
			return nil, validation.Errors{"user_ids": {msgNotAnInteger}}
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// pathID parses a non-negative integer path segment.
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id < 0 {
		return 0, false
	}
	return id, true
}
