package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/samcharles93/cascade/internal/grammar"
)

type Server struct {
	store   *CascadeStore
	service *CascadeService
}

func NewServer(store *CascadeStore, service *CascadeService) *Server {
	if store == nil {
		store = NewCascadeStore()
	}
	return &Server{
		store:   store,
		service: service,
	}
}

// healthChecker is implemented by backends that can report readiness.
type healthChecker interface {
	Health(ctx context.Context) error
}

func (s *Server) Register(e *echo.Echo) {
	e.GET("/healthz", s.handleHealth)

	e.POST("/v1/cascades", s.handleCreateCascade)
	e.GET("/v1/cascades", s.handleListCascades)
	e.GET("/v1/cascades/:id", s.handleGetCascade)
	e.DELETE("/v1/cascades/:id", s.handleDeleteCascade)

	e.POST("/v1/grammars", s.handleCompileGrammar)
}

func (s *Server) handleHealth(c *echo.Context) error {
	if s.service != nil {
		if hc, ok := s.service.Backend().(healthChecker); ok {
			if err := hc.Health(c.Request().Context()); err != nil {
				return writeError(c, http.StatusServiceUnavailable, "backend_unavailable", err.Error(), "", "")
			}
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateCascade(c *echo.Context) error {
	if s.service == nil {
		return writeError(c, http.StatusInternalServerError, "server_error", "cascade service not configured", "", "")
	}
	req, err := decodeJSON[CreateCascadeRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	resp, err := s.service.Run(c.Request().Context(), &req)
	if err != nil {
		if errors.Is(err, ErrInvalidRequest) {
			return writeError(c, http.StatusBadRequest, "invalid_request_error", err.Error(), invalidParam(err), "")
		}
		return writeError(c, http.StatusInternalServerError, "server_error", err.Error(), "", "")
	}
	s.store.Save(*resp)
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleListCascades(c *echo.Context) error {
	return c.JSON(http.StatusOK, ListCascadesResponse{
		Object: "list",
		Data:   s.store.List(),
	})
}

func (s *Server) handleGetCascade(c *echo.Context) error {
	resp, ok := s.store.Get(c.Param("id"))
	if !ok {
		return writeNotFound(c, "cascade not found")
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleDeleteCascade(c *echo.Context) error {
	id := c.Param("id")
	if !s.store.Delete(id) {
		return writeNotFound(c, "cascade not found")
	}
	return c.JSON(http.StatusOK, DeleteCascadeResponse{
		ID:      id,
		Object:  "cascade",
		Deleted: true,
	})
}

func (s *Server) handleCompileGrammar(c *echo.Context) error {
	req, err := decodeJSON[CompileGrammarRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	g, err := req.Grammar.Build()
	if err != nil {
		return writeError(c, http.StatusBadRequest, "invalid_request_error", err.Error(), invalidParam(newInvalidRequest(err)), "")
	}
	if req.Done != "" && req.Done == req.NoResult {
		return writeError(c, http.StatusBadRequest, "invalid_request_error", "done and no_result must differ", "no_result", "")
	}
	g.SetDoneSentinel(req.Done)
	g.SetNoResultSentinel(req.NoResult)
	source, err := compile(g)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	return c.JSON(http.StatusOK, CompileGrammarResponse{
		Kind:   string(g.Kind()),
		Source: source,
	})
}

// compile turns a grammar's parameter panics into errors.
func compile(g grammar.Grammar) (source string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("compile %s grammar: %v", g.Kind(), r)
		}
	}()
	return g.Source(), nil
}
