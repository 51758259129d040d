// Package handlers implements the HTTP API on top of the album store.
//
// Handlers are plain functions or methods with the signature
// func(context.Context, *In) (*Out, error), adapted to http.Handler by
// server.Wrap. Errors are *errors.APIError values carrying the HTTP status.
package handlers

// Validatable is implemented by every request type. Validate runs after the
// body, path and query parameters are decoded and may normalize the request.
type Validatable interface {
	Validate() error
}
