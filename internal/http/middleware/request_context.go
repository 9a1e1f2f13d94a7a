package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const headerTenantID = "tenantId"

// AttachTenantHeader copies the tenant and subdomain hints the gateway puts on
// each request into the gin context, where handlers build the TenantContext.
func AttachTenantHeader() gin.HandlerFunc {
	return func(c *gin.Context) {
		if tid := strings.TrimSpace(c.GetHeader(headerTenantID)); tid != "" {
			c.Set("tenant_header", tid)
		}
		if host := hostSubdomain(c.Request); host != "" {
			c.Set("tenant_subdomain", host)
		}
		c.Next()
	}
}

func hostSubdomain(r *http.Request) string {
	host := r.Header.Get("X-Forwarded-Host")
	if host == "" {
		host = r.Host
	}
	host, _, _ = strings.Cut(host, ":")
	parts := strings.Split(host, ".")
	if len(parts) < 3 {
		return ""
	}
	return parts[0]
}
