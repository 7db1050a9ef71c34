package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/foodbook-server/auth"
	"github.com/jrsteele09/foodbook-server/authz"
	"github.com/jrsteele09/foodbook-server/internal/config"
	"github.com/jrsteele09/foodbook-server/token"
)

// Deps are the services behind the HTTP surface
type Deps struct {
	Auth     *auth.Service
	Verifier *token.Verifier
	Gate     *authz.Gate
}

type Server struct {
	env      string // Environment (e.g., "DEV", "PROD")
	mux      *http.ServeMux
	routes   []string
	config   config.Config
	auth     *auth.Service
	verifier *token.Verifier
	gate     *authz.Gate
}

func New(config config.Config, deps Deps) (*Server, error) {
	if deps.Auth == nil || deps.Verifier == nil || deps.Gate == nil {
		return nil, fmt.Errorf("[Server New] auth service, verifier and gate are required")
	}

	s := &Server{
		mux:      http.NewServeMux(),
		config:   config,
		auth:     deps.Auth,
		verifier: deps.Verifier,
		gate:     deps.Gate,
	}
	s.env = config.GetEnv()

	// Bootstrap: ensure the administrator account exists
	if err := s.InitialiseSystem(context.Background()); err != nil {
		return nil, fmt.Errorf("[Server New] Failed to initialise the system: %w", err)
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

// Routes returns the registered route patterns
func (s *Server) Routes() []string {
	return append([]string(nil), s.routes...)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Info().Msgf("[%-19s] %s", displayMethod, path)
}
