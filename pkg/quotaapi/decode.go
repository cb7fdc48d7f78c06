package quotaapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// MaxBodySize bounds request bodies. Quota requests are tiny.
const MaxBodySize = 64 << 10

// decodeJSON strictly decodes the request body into v. An empty body leaves
// v untouched.
func decodeJSON(r *http.Request, v any) error {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil || mediaType != "application/json" {
			return errors.Join(ErrUnsupportedMediaType, fmt.Errorf("got %q, expected application/json", ct))
		}
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, MaxBodySize+1))
	if err != nil {
		return errors.Join(ErrBadRequest, err)
	}
	if len(body) > MaxBodySize {
		return ErrRequestTooLarge
	}
	if len(body) == 0 {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Join(ErrBadRequest, fmt.Errorf("malformed JSON body: %w", err))
	}
	return nil
}

func userIDParam(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		return uuid.Nil, errors.Join(ErrInvalidArgument, errors.New("user id must be a UUID"))
	}
	return id, nil
}
