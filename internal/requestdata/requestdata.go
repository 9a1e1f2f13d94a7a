package requestdata

import (
	"context"
	"strings"
)

type requestDataKey struct{}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey{}, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	if ctx == nil {
		return nil
	}
	if rd, ok := ctx.Value(requestDataKey{}).(*RequestData); ok {
		return rd
	}
	return nil
}

// RequestData is the authenticated caller as read from the Keycloak access token.
type RequestData struct {
	TokenString string
	UserID      string
	Username    string
	Roles       []string
	TenantID    *int64
}

func (rd *RequestData) HasRole(role string) bool {
	if rd == nil {
		return false
	}
	for _, r := range rd.Roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}
