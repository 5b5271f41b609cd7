package router

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/shipline-next/internal/cache"
	"github.com/shipline-next/internal/config"
	"github.com/shipline-next/internal/constants"
	opshandlers "github.com/shipline-next/internal/http/handlers/ops"
	"github.com/shipline-next/internal/http/response"
	"github.com/shipline-next/internal/logger"
	"github.com/shipline-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	opsHandler := opshandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = constants.RedisPrefixDefault
	}
	redisClient := cache.Client()
	loginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxRequests,
		Message:       "too many login attempts",
	}
	mutationRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:mutation", redisPrefix),
		WindowSeconds: cfg.Security.MutationRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.MutationRateLimit.MaxRequests,
		Message:       "too many mutation requests",
	}

	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiV1 := r.Group("/api/v1")
	{
		// 公开接口：登录与对外运单跟踪
		public := apiV1.Group("/ops")
		{
			public.POST("/auth/login", RateLimitMiddleware(redisClient, loginRule, KeyByIPAndJSONField("username")), opsHandler.Login)
			public.GET("/track/:code", opsHandler.TrackJob)
		}

		// 运营接口（需鉴权 + RBAC）
		ops := apiV1.Group("/ops")
		ops.Use(JWTAuthMiddleware(cfg.JWT.SecretKey, c.StaffRepo))
		ops.Use(StaffRBACMiddleware(c.AuthzService))
		mutate := RateLimitMiddleware(redisClient, mutationRule, KeyByStaff)
		{
			ops.GET("/me", opsHandler.Me)
			ops.GET("/overview", opsHandler.GetOverview)

			ops.GET("/jobs", opsHandler.ListJobs)
			ops.POST("/jobs", mutate, opsHandler.CreateJob)
			ops.GET("/jobs/:id", opsHandler.GetJob)
			ops.GET("/jobs/:id/timeline", opsHandler.GetJobTimeline)
			ops.GET("/jobs/:id/next-statuses", opsHandler.GetJobNextStatuses)
			ops.POST("/jobs/:id/transition", mutate, opsHandler.TransitionJob)
			ops.POST("/jobs/:id/revert", mutate, opsHandler.RevertJob)
			ops.POST("/jobs/:id/assign-driver", mutate, opsHandler.AssignDriver)
			ops.POST("/jobs/:id/assign-agent", mutate, opsHandler.AssignDeliveryAgent)

			ops.GET("/batches", opsHandler.ListBatches)
			ops.POST("/batches", mutate, opsHandler.CreateBatch)
			ops.GET("/batches/:id", opsHandler.GetBatch)
			ops.POST("/batches/:id/promote", mutate, opsHandler.PromoteBatch)
			ops.POST("/batches/:id/jobs", mutate, opsHandler.AddBatchJobs)
			ops.DELETE("/batches/:id/jobs", mutate, opsHandler.RemoveBatchJobs)

			ops.GET("/jobs/:id/invoice", opsHandler.GetInvoice)
			ops.POST("/jobs/:id/payments", mutate, opsHandler.RecordPayment)
			ops.GET("/payments", opsHandler.ListPayments)

			ops.GET("/staff", opsHandler.ListStaff)
			ops.POST("/staff", mutate, opsHandler.CreateStaff)
			ops.PATCH("/staff/:id/status", mutate, opsHandler.SetStaffStatus)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c, "route not found")
	})

	return r
}
