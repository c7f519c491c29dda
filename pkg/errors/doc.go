// Package errors provides coded errors for the HTTP surface.
//
// Handlers translate domain errors into an *Error and call Render, which picks
// the status code from the error code and writes {"code", "message"} JSON:
//
//	if errors.Is(err, devicetoken.ErrTokenExpired) {
//		apperrors.Render(w, r, apperrors.Wrap(err, apperrors.ErrCodeTokenExpired, "token has expired"))
//		return
//	}
//
// Errors that are not an *Error render as INTERNAL_ERROR and their text is
// only logged.
package errors
