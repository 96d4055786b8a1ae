package apperr

import "net/http"

// HTTPStatus maps a Kind to the status code the HTTP surface returns for
// it, per the design session engine's API error table.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindTimeout:
		return http.StatusRequestTimeout
	case KindBusy:
		return http.StatusLocked
	case KindTransientStore:
		return http.StatusServiceUnavailable
	case KindModelError:
		return http.StatusBadGateway
	case KindInvalidOutput:
		return http.StatusBadRequest
	case KindGone:
		return http.StatusGone
	case KindFatal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Code returns the machine-readable error code string for kind, used in the
// JSON error envelope's "code" field.
func Code(kind Kind) string {
	switch kind {
	case KindNotFound:
		return "NOT_FOUND"
	case KindConflict:
		return "CONFLICT"
	case KindTimeout:
		return "TIMEOUT"
	case KindBusy:
		return "BUSY"
	case KindTransientStore:
		return "UNAVAILABLE"
	case KindModelError:
		return "MODEL_ERROR"
	case KindInvalidOutput:
		return "INVALID_OUTPUT"
	case KindGone:
		return "GONE"
	case KindFatal:
		return "FATAL"
	case KindNeedsClarification:
		return "NEEDS_CLARIFICATION"
	default:
		return "INTERNAL_ERROR"
	}
}
