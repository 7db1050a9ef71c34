package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jrsteele09/foodbook-server/users"
)

func (s *Server) initRoutes() {
	// Public auth routes
	s.RegisterRouteHandler("POST "+RouteAuthLogin, ChainMiddleware(s.LoginHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuthSignup, ChainMiddleware(s.SignupHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuthRefresh, ChainMiddleware(s.RefreshHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.APIMiddleware()...))

	// Protected routes (access credential + gate)
	s.RegisterRouteHandler("GET "+RouteAuthMe, ChainMiddleware(s.MeHandler(), s.APIMiddleware(s.RequireAuth(""))...))
	adminOnly := s.APIMiddleware(s.RequireAuth(users.RoleAdmin))
	s.RegisterRouteHandler("GET "+RouteAdminUsers, ChainMiddleware(s.AdminUsersListHandler(), adminOnly...))
	s.RegisterRouteHandler("PUT "+RouteAdminUserStatus, ChainMiddleware(s.AdminUserStatusHandler(), adminOnly...))
	s.RegisterRouteHandler("DELETE "+RouteAdminUser, ChainMiddleware(s.AdminUserDeleteHandler(), adminOnly...))
	s.RegisterRouteHandler("PUT "+RouteAdminUserPromote, ChainMiddleware(s.AdminUserPromoteHandler(), adminOnly...))

	// CORS preflight for every API route
	s.RegisterRouteHandler("OPTIONS "+RouteAPIPrefix+"/", ChainMiddleware(notFound, s.APIMiddleware()...))

	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())
	s.RegisterRouteHandler("GET "+RouteMetrics, promhttp.Handler())
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, "not_found", "Route not found")
}
