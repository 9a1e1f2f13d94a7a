package services

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yungbote/counselbridge-backend/internal/platform/logger"
	"github.com/yungbote/counselbridge-backend/internal/requestdata"
)

var ErrInvalidToken = errors.New("invalid access token")

type AuthService interface {
	// SetContextFromToken verifies a Keycloak access token and attaches the
	// caller to ctx as requestdata.RequestData.
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
}

type AuthConfig struct {
	// PublicKeyPEM is the realm's RS256 key. When empty, HMACSecret is used
	// with HS256, which is only meant for local setups.
	PublicKeyPEM string
	HMACSecret   string
	Issuer       string
}

// KeycloakClaims carries the claims the platform reads from an access token.
// userId and username are custom mappers on the realm; sub and
// preferred_username are the fallbacks.
type KeycloakClaims struct {
	UserID            string      `json:"userId,omitempty"`
	Username          string      `json:"username,omitempty"`
	PreferredUsername string      `json:"preferred_username,omitempty"`
	TenantID          any         `json:"tenantId,omitempty"`
	RealmAccess       realmAccess `json:"realm_access"`
	jwt.RegisteredClaims
}

type realmAccess struct {
	Roles []string `json:"roles"`
}

type authService struct {
	log    *logger.Logger
	parser *jwt.Parser
	key    any
}

func NewAuthService(log *logger.Logger, cfg AuthConfig) (AuthService, error) {
	as := &authService{log: log.With("service", "AuthService")}
	opts := []jwt.ParserOption{jwt.WithExpirationRequired()}
	if iss := strings.TrimSpace(cfg.Issuer); iss != "" {
		opts = append(opts, jwt.WithIssuer(iss))
	}
	switch {
	case strings.TrimSpace(cfg.PublicKeyPEM) != "":
		pub, err := parsePublicKey(cfg.PublicKeyPEM)
		if err != nil {
			return nil, err
		}
		as.key = pub
		opts = append(opts, jwt.WithValidMethods([]string{"RS256"}))
	case cfg.HMACSecret != "":
		as.key = []byte(cfg.HMACSecret)
		opts = append(opts, jwt.WithValidMethods([]string{"HS256"}))
	default:
		return nil, fmt.Errorf("KEYCLOAK_PUBLIC_KEY_PEM or JWT_SECRET_KEY is required")
	}
	as.parser = jwt.NewParser(opts...)
	return as, nil
}

// parsePublicKey accepts a full PEM block or the bare base64 body Keycloak
// shows in its realm settings.
func parsePublicKey(raw string) (*rsa.PublicKey, error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "-----BEGIN") {
		raw = "-----BEGIN PUBLIC KEY-----\n" + raw + "\n-----END PUBLIC KEY-----"
	}
	pub, err := jwt.ParseRSAPublicKeyFromPEM([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("parse keycloak public key: %w", err)
	}
	return pub, nil
}

func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	if strings.TrimSpace(tokenString) == "" {
		return ctx, ErrInvalidToken
	}
	claims := &KeycloakClaims{}
	tok, err := as.parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return as.key, nil
	})
	if err != nil {
		return ctx, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if tok == nil || !tok.Valid {
		return ctx, ErrInvalidToken
	}

	userID := strings.TrimSpace(claims.UserID)
	if userID == "" {
		userID = strings.TrimSpace(claims.Subject)
	}
	if userID == "" {
		return ctx, fmt.Errorf("%w: missing user id", ErrInvalidToken)
	}
	username := claims.Username
	if username == "" {
		username = claims.PreferredUsername
	}
	tenantID, err := tenantIDFromClaim(claims.TenantID)
	if err != nil {
		as.log.Warn("ignoring malformed tenant claim", "user_id", userID, "error", err)
	}

	rd := &requestdata.RequestData{
		TokenString: tokenString,
		UserID:      userID,
		Username:    username,
		Roles:       claims.RealmAccess.Roles,
		TenantID:    tenantID,
	}
	return requestdata.WithRequestData(ctx, rd), nil
}

// tenantIDFromClaim reads tenantId, which Keycloak emits as a number or a
// string depending on the mapper type.
func tenantIDFromClaim(v any) (*int64, error) {
	var id int64
	switch t := v.(type) {
	case nil:
		return nil, nil
	case float64:
		id = int64(t)
	case string:
		if strings.TrimSpace(t) == "" {
			return nil, nil
		}
		parsed, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return nil, err
		}
		id = parsed
	default:
		return nil, fmt.Errorf("unexpected tenantId type %T", v)
	}
	if id == 0 {
		return nil, nil
	}
	return &id, nil
}
