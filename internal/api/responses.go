package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eigerco/homestore/pkg/log"
)

const (
	msgKeyNotFound      = "Key not found"
	msgNotFound         = "Not found"
	msgMethodNotAllowed = "Method not allowed"
	msgInternal         = "Internal server error"
	octetStream         = "application/octet-stream"
	headerRequestID     = "X-Request-ID"
	contextKeyRequestID = "request_id"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

type ListKeysResponse struct {
	Keys []string `json:"keys"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func respondNotFound(c *gin.Context, msg string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: msg})
}

// respondError reports a storage failure. Every failure is a server-side
// failure; the message produced by the storage layer is passed through.
func respondError(c *gin.Context, op string, err error) {
	log.HTTP.Error().
		Err(err).
		Str("op", op).
		Str("request_id", c.GetString(contextKeyRequestID)).
		Msg("storage operation failed")

	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
}
