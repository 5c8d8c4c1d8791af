package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"buildledger/internal/middleware"
	"buildledger/internal/modules/commitment"
	"buildledger/internal/modules/coordinator"
	"buildledger/internal/modules/ledger"
	"buildledger/internal/modules/project"
	"buildledger/internal/modules/reallocation"
	"buildledger/internal/modules/recalc"
	"buildledger/internal/pkg/jwt"
)

// Router mounts every module. Setup, reads and reallocation requests need a valid
// token; approvals, contract and lifecycle operations also need a finance role.
// Operator routes are served to admins under /api/v1/admin and to jobs holding
// the internal token under /internal.
func (a *App) Router(jwtService *jwt.Service, log logrus.FieldLogger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.ErrorLogger(log))
	r.Use(middleware.CORS(a.Config.CORSAllowedOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "recalc_mode": a.Cascade.Mode()})
	})

	v1 := r.Group("/api/v1")
	protected := v1.Group("")
	protected.Use(middleware.JWTAuth(jwtService))
	{
		project.NewHandler(a.Projects).RegisterRoutes(protected)
		ledger.NewHandler(a.Ledger).RegisterRoutes(protected)
		reallocation.NewHandler(a.Reallocation).RegisterRoutes(protected)
	}

	finance := protected.Group("")
	finance.Use(middleware.FinanceOnly())
	{
		coordinator.NewHandler(a.Coordinator).RegisterRoutes(finance)
		commitment.NewHandler(a.Commitments).RegisterRoutes(finance)
	}

	admin := protected.Group("/admin")
	admin.Use(middleware.AdminOnly())
	{
		recalc.NewHandler(a.Worker).RegisterInternalRoutes(admin)
		commitment.NewHandler(a.Commitments).RegisterInternalRoutes(admin)
	}

	internal := r.Group("/internal")
	internal.Use(middleware.InternalTokenAuth(a.Config.InternalToken, log))
	{
		recalc.NewHandler(a.Worker).RegisterInternalRoutes(internal)
		commitment.NewHandler(a.Commitments).RegisterInternalRoutes(internal)
	}

	return r
}
