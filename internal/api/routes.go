package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
)

// HTTPVerb enumerates the HTTP operations a route can be bound to.
type HTTPVerb int

const (
	Unknown HTTPVerb = iota
	GET
	HEAD
	PUT
	DELETE
)

// RestMethod describes one route.
type RestMethod struct {
	Verb    HTTPVerb
	Path    string
	Handler gin.HandlerFunc
}

func (s *Server) restMethods() []RestMethod {
	return []RestMethod{
		{Verb: GET, Path: "/health", Handler: s.health},
		{Verb: GET, Path: "/data", Handler: s.listKeys},
		{Verb: GET, Path: "/data/:key", Handler: s.getData},
		{Verb: HEAD, Path: "/data/:key", Handler: s.headData},
		{Verb: PUT, Path: "/data/:key", Handler: s.putData},
		{Verb: DELETE, Path: "/data/:key", Handler: s.deleteData},
	}
}

func register(r gin.IRoutes, methods []RestMethod) {
	for _, rm := range methods {
		switch rm.Verb {
		case GET:
			r.GET(rm.Path, rm.Handler)
		case HEAD:
			r.HEAD(rm.Path, rm.Handler)
		case PUT:
			r.PUT(rm.Path, rm.Handler)
		case DELETE:
			r.DELETE(rm.Path, rm.Handler)
		default:
			panic(fmt.Sprintf("HTTP verb %d not supported", rm.Verb))
		}
	}
}
