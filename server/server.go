package server

import (
	"net/http"
	"strings"

	"github.com/inboxcrm/connector/credentials"
	"github.com/inboxcrm/connector/crm/dedup"
	"github.com/inboxcrm/connector/internal/config"
	"github.com/inboxcrm/connector/profiles"
	"github.com/inboxcrm/connector/sessions"
	"github.com/rs/zerolog"
)

// Server is the HTTP boundary in front of the connector services. It owns
// nothing domain-shaped itself; handlers resolve a profile, authenticate,
// and delegate to a per-request CRM adapter.
type Server struct {
	env         string // Environment (e.g., "DEV", "production")
	mux         *http.ServeMux
	routes      []string
	config      config.Config
	registry    *profiles.Registry
	resolver    *profiles.Resolver
	sessions    *sessions.Service
	credentials *credentials.Provider
	dedup       *dedup.Store
	logger      zerolog.Logger
}

// Deps are the service-layer collaborators the boundary delegates to.
type Deps struct {
	Registry    *profiles.Registry
	Sessions    *sessions.Service
	Credentials *credentials.Provider
	Dedup       *dedup.Store
}

func New(config config.Config, deps Deps, logger zerolog.Logger) (*Server, error) {
	if deps.Registry == nil || deps.Sessions == nil || deps.Credentials == nil || deps.Dedup == nil {
		return nil, errMissingDeps
	}

	s := &Server{
		mux:         http.NewServeMux(),
		config:      config,
		registry:    deps.Registry,
		sessions:    deps.Sessions,
		credentials: deps.Credentials,
		dedup:       deps.Dedup,
		logger:      logger.With().Str("component", "server").Logger(),
	}
	s.env = config.GetEnv()
	s.resolver = profiles.NewResolver(deps.Registry, profiles.ResolverOptions{
		StrictHostRouting:  config.GetStrictHostRouting(),
		TrustForwardedHost: config.GetTrustForwardedHost(),
		TrustedProxies:     config.GetTrustedProxies(),
	}, logger)

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

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)
		if len(parts) > 1 {
			s.logger.Debug().Str("method", parts[0]).Str("path", parts[1]).Msg("route registered")
		} else {
			s.logger.Debug().Str("path", parts[0]).Msg("route registered")
		}
	}
}
