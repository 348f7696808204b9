package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/eigerco/homestore/internal/crypto"
)

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: s.version,
	})
}

func (s *Server) listKeys(c *gin.Context) {
	keys, err := s.store.Keys()
	if err != nil {
		respondError(c, "list keys", err)
		return
	}
	c.JSON(http.StatusOK, ListKeysResponse{Keys: keys})
}

func (s *Server) getData(c *gin.Context) {
	value, found, err := s.store.Get(c.Param("key"))
	if err != nil {
		respondError(c, "get", err)
		return
	}
	if !found {
		respondNotFound(c, msgKeyNotFound)
		return
	}

	etag := crypto.HashData(value).ETag()
	c.Header("ETag", etag)
	if match := c.GetHeader("If-None-Match"); match != "" && etagMatches(match, etag) {
		c.Status(http.StatusNotModified)
		return
	}
	c.Data(http.StatusOK, octetStream, value)
}

func (s *Server) headData(c *gin.Context) {
	value, found, err := s.store.Get(c.Param("key"))
	if err != nil {
		respondError(c, "get", err)
		return
	}
	if !found {
		c.Status(http.StatusNotFound)
		return
	}
	c.Header("ETag", crypto.HashData(value).ETag())
	c.Header("Content-Type", octetStream)
	c.Header("Content-Length", strconv.Itoa(len(value)))
	c.Status(http.StatusOK)
}

func (s *Server) putData(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "failed to read request body: " + err.Error()})
		return
	}
	if err := s.store.Put(c.Param("key"), body); err != nil {
		respondError(c, "put", err)
		return
	}
	c.Status(http.StatusCreated)
}

func (s *Server) deleteData(c *gin.Context) {
	deleted, err := s.store.Delete(c.Param("key"))
	if err != nil {
		respondError(c, "delete", err)
		return
	}
	if !deleted {
		respondNotFound(c, msgKeyNotFound)
		return
	}
	c.Status(http.StatusNoContent)
}

// etagMatches implements the weak comparison If-None-Match uses.
func etagMatches(header, etag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}
