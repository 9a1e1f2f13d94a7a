package handlers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	types "github.com/yungbote/counselbridge-backend/internal/domain"
	"github.com/yungbote/counselbridge-backend/internal/platform/apierr"
	"github.com/yungbote/counselbridge-backend/internal/requestdata"
)

func int64Param(c *gin.Context, name string) (int64, error) {
	raw := strings.TrimSpace(c.Param(name))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apierr.BadRequest("invalid_"+name, "%s must be a positive number, got %q", name, raw)
	}
	return id, nil
}

func stringParam(c *gin.Context, name string) (string, error) {
	raw := strings.TrimSpace(c.Param(name))
	if raw == "" {
		return "", apierr.BadRequest("invalid_"+name, "%s is required", name)
	}
	return raw, nil
}

func actorFrom(c *gin.Context) types.AuthenticatedUser {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		return types.AuthenticatedUser{}
	}
	return types.AuthenticatedUser{
		UserID:   rd.UserID,
		Username: rd.Username,
		Roles:    rd.Roles,
	}
}

// tenantFrom prefers the tenant in the access token, then the tenantId
// header, then the session's own tenant.
func tenantFrom(c *gin.Context, session *types.Session) types.TenantContext {
	tenant := types.TenantContext{Subdomain: c.GetString("tenant_subdomain")}
	if rd := requestdata.GetRequestData(c.Request.Context()); rd != nil && rd.TenantID != nil {
		tenant.ID = *rd.TenantID
		return tenant
	}
	if raw := c.GetString("tenant_header"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			tenant.ID = id
			return tenant
		}
	}
	if session != nil && session.TenantID != nil {
		tenant.ID = *session.TenantID
	}
	return tenant
}

func requestMetaFrom(c *gin.Context) types.RequestMeta {
	return types.RequestMeta{
		URI:     c.Request.RequestURI,
		Referer: c.Request.Referer(),
	}
}
