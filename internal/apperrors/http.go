package apperrors

import "net/http"

// HTTPStatus maps an error to the status code the API responds with.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	switch CodeOf(err) {
	case CodeInvalidArgument, CodeContextReconstruction:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInvalidState:
		return http.StatusConflict
	case CodeRetrieval, CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
