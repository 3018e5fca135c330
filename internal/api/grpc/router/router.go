package router

import (
	"context"
	"strings"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/auth"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/selector"
	"google.golang.org/grpc"

	"github.com/dtroode/agrogestion/internal/api/grpc/handler"
	"github.com/dtroode/agrogestion/internal/api/grpc/middleware"
	"github.com/dtroode/agrogestion/internal/app"
	"github.com/dtroode/agrogestion/internal/logger"
	"github.com/dtroode/agrogestion/internal/model"
)

// Router wires the application components to the gRPC services.
type Router struct {
	app            *app.App
	tokenService   middleware.TokenService
	contextManager model.ContextManager
	logger         *logger.Logger
}

// New creates new gRPC Router instance.
func New(
	application *app.App,
	tokenService middleware.TokenService,
	contextManager model.ContextManager,
	logger *logger.Logger,
) *Router {
	return &Router{
		app:            application,
		tokenService:   tokenService,
		contextManager: contextManager,
		logger:         logger,
	}
}

// protectedServices require a bearer token of the active session. Session
// and navigation stay open: reachability already follows the session.
var protectedServices = []string{handler.StoresService, handler.DashboardService}

func requiresAuth(_ context.Context, c interceptors.CallMeta) bool {
	for _, svc := range protectedServices {
		if strings.HasPrefix(c.FullMethod(), "/"+svc+"/") {
			return true
		}
	}
	return false
}

// Register registers all gRPC services and middleware.
func (r *Router) Register() *grpc.Server {
	logging := middleware.NewLogging(r.logger)
	authenticate := middleware.NewAuthenticate(r.tokenService, r.app.Gate, r.contextManager, r.logger)

	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			logging.HandleGRPC,
			selector.UnaryServerInterceptor(
				auth.UnaryServerInterceptor(authenticate.AuthFunc),
				selector.MatchFunc(requiresAuth),
			),
		),
	)

	s.RegisterService(&handler.SessionServiceDesc, handler.NewSession(r.app.Gate, r.app.Navigator, r.logger))
	s.RegisterService(&handler.NavigationServiceDesc, handler.NewNavigation(r.app.Navigator, r.logger))
	s.RegisterService(&handler.StoresServiceDesc, handler.NewStores(r.app.Tree, r.logger))
	s.RegisterService(&handler.DashboardServiceDesc, handler.NewDashboard(r.app, r.logger))

	return s
}
