package middleware

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS allows the local frontends by default; extra origins come from
// CORS_ALLOWED_ORIGINS.
func CORS(extraOrigins ...string) gin.HandlerFunc {
	origins := []string{
		"http://localhost:3000",
		"http://localhost:9001",
		"http://127.0.0.1:3000",
		"http://127.0.0.1:9001",
	}
	for _, o := range extraOrigins {
		if o != "" {
			origins = append(origins, o)
		}
	}
	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", "X-CSRF-TOKEN", "tenantId"},
		ExposeHeaders:    []string{"X-Trace-Id", "X-Request-Id"},
		AllowCredentials: true,
	})
}
