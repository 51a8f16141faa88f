package api

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/hilsim/hilsim/internal/config"
)

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"vehicle": s.deps.Status(),
	})
}

func (s *Server) handleState(c *fiber.Ctx) error {
	if s.deps.State == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "state not published")
	}
	snap, ok := s.deps.State.Latest()
	if !ok {
		return fiber.NewError(fiber.StatusServiceUnavailable, "no snapshot yet")
	}
	return c.JSON(snap)
}

func (s *Server) handleParams(c *fiber.Ctx) error {
	if s.deps.Params == nil {
		return c.JSON(fiber.Map{})
	}
	return c.JSON(s.deps.Params.All())
}

func (s *Server) handleParam(c *fiber.Ctx) error {
	if s.deps.Params == nil {
		return fiber.ErrNotFound
	}
	key := strings.ToUpper(c.Params("key"))
	p, err := s.deps.Params.Lookup(key)
	if errors.Is(err, config.ErrMissingParameter) {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"key": key, "parameter": p})
}

func (s *Server) handleFlight(c *fiber.Ctx) error {
	f := s.deps.Flight
	return c.JSON(fiber.Map{
		"flight": f,
		"status": s.deps.Status(),
		"uptime": s.deps.Now().Sub(f.StartedAt).Seconds(),
	})
}
