package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"user-query-service/internal/adapter/gin/handler"
	"user-query-service/internal/adapter/gin/middleware"
)

// SetupRouter configures and returns a Gin router with all routes and middleware
func SetupRouter(
	userHandler *handler.UserHandler,
	limiter middleware.TokenBucketConfig,
	redisClient *redis.Client,
	serviceName string,
	log *zap.Logger,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Forwarding headers are honoured only from configured proxies
	if err := router.SetTrustedProxies(limiter.TrustedProxies); err != nil {
		log.Warn("invalid trusted proxies, trusting none", zap.Error(err))
		_ = router.SetTrustedProxies(nil)
	}

	// Global middleware
	router.Use(middleware.Recovery(log))
	router.Use(middleware.Logger(log))

	// Health check and metrics are not rate limited
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": serviceName,
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes
	v1 := router.Group("/v1")
	v1.Use(middleware.RateLimiter(redisClient, limiter, log))
	{
		users := v1.Group("/users")
		{
			users.POST("", userHandler.CreateUser)
			users.GET("", userHandler.ListUsers)
			users.GET("/:id", userHandler.GetUser)
			users.DELETE("/:id", userHandler.DeleteUser)
		}

		queries := v1.Group("/queries")
		{
			queries.GET("/first-names", userHandler.FirstNamesReverseSorted)
			queries.GET("/sorted", userHandler.SortByAgeDescThenNameAsc)
			queries.GET("/privileges", userHandler.DistinctPrivileges)
			queries.GET("/update-user", userHandler.FirstUpdateUserOlderThan)
			queries.GET("/groups/privilege-count", userHandler.GroupByPrivilegeCount)
			queries.GET("/groups/privilege", userHandler.GroupByPrivilege)
			queries.GET("/average-age", userHandler.AverageAge)
			queries.GET("/last-names/most-frequent", userHandler.MostFrequentLastName)
			queries.GET("/last-names/counts", userHandler.CountByLastName)
			queries.POST("/filter", userHandler.FilterUsers)
			queries.POST("/convert", userHandler.ConvertUsers)
		}
	}

	return router
}
