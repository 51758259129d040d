// Provides the adapter from typed handlers to http.Handler.

package server

import (
	"bytes"
	"context"
	"encoding"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"

	apierrors "github.com/maruel/albumdb/internal/errors"
	"github.com/maruel/albumdb/internal/server/handlers"
	"github.com/maruel/albumdb/internal/server/ratelimit"
	"github.com/maruel/albumdb/internal/server/reqctx"
	"github.com/maruel/albumdb/internal/utils"
)

// Wrap wraps a handler function to work as an http.Handler.
// The function must have signature: func(context.Context, *In) (*Out, error)
// where In can be unmarshalled from JSON and Out is a struct.
// Path parameters can be extracted by tagging struct fields with `path:"name"`,
// query parameters with `query:"name"`.
// *In must implement handlers.Validatable.
//
// Example:
//
//	type GetAlbumRequest struct {
//	    ID int64 `path:"id"`
//	}
//
//	func (h *Handler) GetAlbum(ctx context.Context, req *GetAlbumRequest) (*models.Album, error)
func Wrap[In any, PtrIn interface {
	*In
	handlers.Validatable
}, Out any](fn func(context.Context, PtrIn) (*Out, error), maxBodyBytes int64, limiters *ratelimit.Limiters) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if !checkRateLimit(w, r, limiters) {
			return
		}

		input := new(In)
		if !readAndDecodeBody(ctx, w, r, input, maxBodyBytes) {
			return
		}
		if err := populatePathParams(r, input); err != nil {
			writeError(ctx, w, err)
			return
		}
		if err := populateQueryParams(r, input); err != nil {
			writeError(ctx, w, err)
			return
		}
		if err := PtrIn(input).Validate(); err != nil {
			writeError(ctx, w, err)
			return
		}

		output, err := fn(ctx, PtrIn(input))
		if err != nil {
			writeError(ctx, w, err)
			return
		}
		utils.RespondJSON(w, http.StatusOK, output)
	})
}

// WrapRaw applies rate limiting to a plain http.HandlerFunc.
func WrapRaw(fn http.HandlerFunc, limiters *ratelimit.Limiters) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !checkRateLimit(w, r, limiters) {
			return
		}
		fn(w, r)
	})
}

// checkRateLimit checks the limiter for the request method, keyed by client IP,
// and sets the rate limit headers on w.
// Returns whether the request should proceed.
func checkRateLimit(w http.ResponseWriter, r *http.Request, limiters *ratelimit.Limiters) bool {
	l := limiters.For(r.Method)
	if l == nil {
		return true
	}
	ip := reqctx.ClientIP(r.Context())
	if ip == "" {
		ip = reqctx.GetClientIP(r)
	}
	result := l.Allow(ip)
	result.SetHeaders(w.Header())
	if !result.Allowed {
		apiErr := apierrors.TooManyRequests().WithDetail("retry_after", result.RetryAfterSeconds())
		writeError(r.Context(), w, apiErr)
		return false
	}
	return true
}

// readAndDecodeBody reads the request body with size limit and decodes JSON into input.
// Returns false if an error occurred and was written to the response.
func readAndDecodeBody[In any](ctx context.Context, w http.ResponseWriter, r *http.Request, input *In, maxBodyBytes int64) bool {
	if maxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	}
	body, err := io.ReadAll(r.Body)
	if err2 := r.Body.Close(); err == nil {
		err = err2
	}
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(ctx, w, apierrors.NewAPIError(http.StatusRequestEntityTooLarge, apierrors.ErrValidationFailed, "Request body too large").WithDetail("max_bytes", maxBytesErr.Limit))
			return false
		}
		slog.ErrorContext(ctx, "Failed to read request body", "err", err)
		writeError(ctx, w, apierrors.BadRequest("Failed to read request body"))
		return false
	}
	if len(body) > 0 {
		d := json.NewDecoder(bytes.NewReader(body))
		d.DisallowUnknownFields()
		if err := d.Decode(input); err != nil {
			slog.ErrorContext(ctx, "Failed to decode request body", "err", err)
			writeError(ctx, w, apierrors.BadRequest("Invalid request body").Wrap(err))
			return false
		}
	}
	return true
}

// populatePathParams extracts path parameters from the request and populates
// struct fields tagged with `path:"paramName"`, including embedded structs.
func populatePathParams(r *http.Request, input any) error {
	return visitTagged(input, "path", func(name string, field reflect.Value) error {
		paramValue := r.PathValue(name)
		if paramValue == "" {
			return nil
		}
		return setField(field, name, paramValue)
	})
}

// populateQueryParams extracts query parameters from the request and populates
// struct fields tagged with `query:"paramName"`.
func populateQueryParams(r *http.Request, input any) error {
	query := r.URL.Query()
	return visitTagged(input, "query", func(name string, field reflect.Value) error {
		paramValue := query.Get(name)
		if paramValue == "" {
			return nil
		}
		return setField(field, name, paramValue)
	})
}

func visitTagged(input any, key string, fn func(name string, field reflect.Value) error) error {
	val := reflect.ValueOf(input)
	if val.Kind() != reflect.Pointer {
		return nil
	}
	elem := val.Elem()
	if elem.Kind() != reflect.Struct {
		return nil
	}
	typ := elem.Type()
	for i := range typ.NumField() {
		field := typ.Field(i)
		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			if err := visitTagged(elem.Field(i).Addr().Interface(), key, fn); err != nil {
				return err
			}
			continue
		}
		tag := field.Tag.Get(key)
		if tag == "" {
			continue
		}
		if err := fn(tag, elem.Field(i)); err != nil {
			return err
		}
	}
	return nil
}

// setField sets a string, integer or encoding.TextUnmarshaler field.
func setField(fieldVal reflect.Value, name, value string) error {
	switch fieldVal.Kind() {
	case reflect.String:
		fieldVal.SetString(value)
	case reflect.Int, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return apierrors.InvalidFormat(name, "must be an integer")
		}
		fieldVal.SetInt(n)
	default:
		if fieldVal.CanAddr() {
			if unmarshaler, ok := fieldVal.Addr().Interface().(encoding.TextUnmarshaler); ok {
				if err := unmarshaler.UnmarshalText([]byte(value)); err != nil {
					return apierrors.InvalidFormat(name, err.Error())
				}
			}
		}
	}
	return nil
}

// writeError writes err as a JSON error response. Errors without a status are
// reported as internal errors.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	statusCode := http.StatusInternalServerError
	errorCode := apierrors.ErrInternal
	message := "Internal server error"
	var details map[string]any

	var ewsErr apierrors.ErrorWithStatus
	if errors.As(err, &ewsErr) {
		statusCode = ewsErr.StatusCode()
		errorCode = ewsErr.Code()
		message = ewsErr.Error()
		details = ewsErr.Details()
	}

	attrs := []any{"err", err, "statusCode", statusCode, "code", errorCode}
	if id := reqctx.RequestID(ctx); !id.IsZero() {
		attrs = append(attrs, "id", id.String())
	}
	if statusCode >= http.StatusInternalServerError {
		slog.ErrorContext(ctx, "Handler error", attrs...)
	} else {
		slog.InfoContext(ctx, "Request rejected", attrs...)
	}
	utils.RespondError(w, statusCode, string(errorCode), message, details)
}
