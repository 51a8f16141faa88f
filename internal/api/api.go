// Package api serves a read-only HTTP view of the running simulation.
package api

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/hilsim/hilsim/internal/config"
	"github.com/hilsim/hilsim/internal/sim"
)

// StateSource yields the most recent snapshot. *sim.Holder implements it.
type StateSource interface {
	Latest() (sim.Snapshot, bool)
}

// FlightInfo describes the flight in progress.
type FlightInfo struct {
	ID         uint      `json:"id"`
	StartedAt  time.Time `json:"startedAt"`
	ParamsFile string    `json:"paramsFile"`
	Storage    string    `json:"storage"`
}

// Dependencies holds everything the handlers read.
type Dependencies struct {
	State  StateSource
	Params *config.ParamStore
	Flight FlightInfo
	// Status reports the vehicle status; it is called from request goroutines.
	Status func() string
	Now    func() time.Time
	Logger *slog.Logger
}

// Server is the fiber app plus its dependencies.
type Server struct {
	app  *fiber.App
	deps Dependencies
	log  *slog.Logger
}

// New builds the app and registers the routes.
func New(deps Dependencies) *Server {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Status == nil {
		deps.Status = func() string { return "unknown" }
	}

	s := &Server{
		app: fiber.New(fiber.Config{
			AppName:               "hilsim",
			DisableStartupMessage: true,
			ErrorHandler:          errorHandler,
		}),
		deps: deps,
		log:  deps.Logger.With("component", "api"),
	}

	s.app.Use(recover.New())
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET, OPTIONS",
	}))

	s.app.Get("/healthz", s.handleHealth)

	v1 := s.app.Group("/api/v1")
	v1.Get("/state", s.handleState)
	v1.Get("/params", s.handleParams)
	v1.Get("/params/:key", s.handleParam)
	v1.Get("/flight", s.handleFlight)
	return s
}

// App exposes the fiber app, mainly for app.Test.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown is called.
func (s *Server) Listen(addr string) error {
	s.log.Info("status API listening", "address", addr)
	return s.app.Listen(addr)
}

// Shutdown stops the listener and waits for open requests.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
