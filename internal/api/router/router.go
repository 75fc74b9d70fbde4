package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/alan-neves/fechaduras/config"
	"github.com/alan-neves/fechaduras/internal/api/handler"
	"github.com/alan-neves/fechaduras/internal/api/middleware"
	"github.com/alan-neves/fechaduras/internal/model"
	"github.com/alan-neves/fechaduras/pkg/jwt"
	"github.com/alan-neves/fechaduras/pkg/redis"
)

// maxBodyBytes caps request bodies. Face photos are the largest upload.
const maxBodyBytes = 4 << 20

// Setup builds the Gin engine with all middleware and routes.
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── global middleware ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.BodyLimit(maxBodyBytes))

	// ── health check ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// auth (public)
		auth := v1.Group("/auth")
		{
			auth.POST("/login", middleware.RateLimit(rdb, 10, time.Minute), h.Auth.Login)
			auth.POST("/refresh", middleware.RateLimit(rdb, 10, time.Minute), h.Auth.RefreshToken)
		}

		// authenticated routes
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, rdb))
		{
			// auth (authenticated)
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.GetCurrentUser)
			authorized.PUT("/auth/password", h.Auth.ChangePassword)

			// directory lookups
			authorized.GET("/replicado/programas", h.Lock.ListPrograms)

			// fechaduras
			locks := authorized.Group("/fechaduras")
			{
				locks.GET("", h.Lock.ListLocks)
				locks.GET("/:id", h.Lock.GetLock)
				locks.POST("", middleware.RoleAuth(model.RoleAdmin), h.Lock.CreateLock)
				locks.PUT("/:id", middleware.RoleAuth(model.RoleAdmin), h.Lock.UpdateLock)
				locks.DELETE("/:id", middleware.RoleAuth(model.RoleAdmin), h.Lock.DeleteLock)

				// roster sources (per-lock admin checked in the service layer)
				locks.PUT("/:id/setores", h.Lock.SetUnits)
				locks.PUT("/:id/areas", h.Lock.SetPrograms)
				locks.POST("/:id/usuarios", h.Lock.AttachUsers)
				locks.DELETE("/:id/usuarios/:codpes", h.Lock.DetachUser)

				// external guests
				locks.GET("/:id/externos", h.ExternalUser.List)
				locks.POST("/:id/externos", h.ExternalUser.Create)
				locks.DELETE("/:id/externos/:external_id", h.ExternalUser.Delete)

				// synchronization
				locks.POST("/:id/sincronizar", h.Sync.Synchronize)

				// onboard device operations
				locks.GET("/:id/dispositivo/usuarios", h.Device.ListUsers)
				locks.PUT("/:id/dispositivo/usuarios/:user_id/senha", h.Device.SetPassword)
				locks.PUT("/:id/dispositivo/usuarios/:user_id/foto", h.Device.SetPhoto)

				// access logs
				locks.GET("/:id/acessos", h.AccessLog.List)
				locks.POST("/:id/acessos/importar", h.AccessLog.Pull)
				locks.GET("/:id/acessos/exportar", h.AccessLog.Export)
			}
		}
	}

	return r
}
