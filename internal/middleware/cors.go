package middleware

import (
	"time"

	"vocata/config"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// SetupCORS 封装CORS配置
func SetupCORS(corsConfig config.CORSConfig) gin.HandlerFunc {
	maxAge, err := time.ParseDuration(corsConfig.MaxAge)
	if err != nil {
		maxAge = 12 * time.Hour
	}
	if len(corsConfig.AllowOrigins) == 0 {
		corsConfig.AllowOrigins = []string{"*"}
	}
	// 通配来源不能携带凭证
	allowCredentials := corsConfig.AllowCredentials
	for _, o := range corsConfig.AllowOrigins {
		if o == "*" {
			allowCredentials = false
		}
	}

	return cors.New(cors.Config{
		AllowOrigins:     corsConfig.AllowOrigins,
		AllowMethods:     corsConfig.AllowMethods,
		AllowHeaders:     corsConfig.AllowHeaders,
		ExposeHeaders:    corsConfig.ExposeHeaders,
		AllowCredentials: allowCredentials,
		AllowWebSockets:  true,
		MaxAge:           maxAge,
	})
}
