package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/admindash/internal/auth/domain"
	"github.com/aussiebroadwan/admindash/internal/auth/service"
	"github.com/aussiebroadwan/admindash/internal/auth/store"
	"github.com/aussiebroadwan/admindash/pkg/httpx"
	"github.com/aussiebroadwan/admindash/pkg/slogx"

	_ "github.com/aussiebroadwan/admindash/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

const apiPrefix = "/api/v1"

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store

	AuthService *service.AuthService
	UserService *service.UserService
}

func NewRouter(buildVersion string, st store.Store, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerUsers()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Admin Dashboard API
//	@version		0.1.0
//	@description	Login-gated admin API: short-lived access tokens, rotating single-use refresh tokens and a user directory.
//	@description
//	@description				Every response body carries a boolean "success" flag.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/admindash
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{AuthService: r.AuthService}
	authn := httpx.AuthnMiddleware(r.AuthService)

	r.Mux.HandleFunc("POST "+apiPrefix+"/auth/login", h.HandleLogin)
	r.Mux.HandleFunc("POST "+apiPrefix+"/auth/refresh", h.HandleRefresh)
	r.Mux.HandleFunc("POST "+apiPrefix+"/auth/logout", h.HandleLogout)

	r.Mux.Handle("POST "+apiPrefix+"/auth/validate", httpx.Chain(http.HandlerFunc(h.HandleValidate), authn))
	r.Mux.Handle("GET "+apiPrefix+"/auth/me", httpx.Chain(http.HandlerFunc(h.HandleMe), authn))
}

func (r *Router) registerUsers() {
	h := &UsersHandler{UserService: r.UserService}
	authn := httpx.AuthnMiddleware(r.AuthService)
	admin := httpx.RequireRole(domain.RoleAdmin.String())

	r.Mux.Handle("GET "+apiPrefix+"/user", httpx.Chain(http.HandlerFunc(h.HandleList), authn))
	r.Mux.Handle("GET "+apiPrefix+"/user/{id}", httpx.Chain(http.HandlerFunc(h.HandleGet), authn))
	r.Mux.Handle("POST "+apiPrefix+"/user", httpx.Chain(http.HandlerFunc(h.HandleCreate), authn, admin))
	r.Mux.Handle("PUT "+apiPrefix+"/user/{id}", httpx.Chain(http.HandlerFunc(h.HandleUpdate), authn, admin))
	r.Mux.Handle("DELETE "+apiPrefix+"/user/{id}", httpx.Chain(http.HandlerFunc(h.HandleDelete), authn, admin))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /api/health", APIHealthHandler())
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store))
}
