// dulp-economy/middleware/auth.go
package middleware

import (
	"fmt"
	"log"
	"strings"

	"dulp-economy/services"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
)

const (
	LocalUserID      = "user_id"
	LocalUserRoles   = "user_roles"
	LocalDisplayName = "display_name"

	AccessTokenHeader = "X-Access-Token"
)

// IdentityOptions selects how a caller's user id is established. When
// JWTSecret is set, X-Access-Token must carry an HS256 token; otherwise, when
// AuthClient is set, the token is checked with the auth service; otherwise the
// gateway-forwarded X-User-ID header is trusted.
type IdentityOptions struct {
	JWTSecret  string
	AuthClient *services.AuthServiceClient
}

type identity struct {
	UserID      string
	DisplayName string
	Roles       []string
}

// UserContextMiddleware resolves the caller and stores it in c.Locals.
// Requests without a verified identity get 401.
func UserContextMiddleware(opts IdentityOptions) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := resolveIdentity(c, opts)
		if err != nil {
			log.Printf("❌ [USER_CTX] %v | Path: %s", err, c.Path())
			return reject(c, "Unauthorized")
		}

		c.Locals(LocalUserID, id.UserID)
		c.Locals(LocalUserRoles, id.Roles)
		c.Locals(LocalDisplayName, id.DisplayName)

		log.Printf("👤 [USER_CTX] UserID=%s, Roles=%v | Path: %s", id.UserID, id.Roles, c.Path())
		return c.Next()
	}
}

func resolveIdentity(c *fiber.Ctx, opts IdentityOptions) (*identity, error) {
	accessToken := strings.TrimSpace(strings.TrimPrefix(c.Get(AccessTokenHeader), "Bearer "))

	switch {
	case opts.JWTSecret != "":
		if accessToken == "" {
			return nil, fmt.Errorf("missing %s", AccessTokenHeader)
		}
		return parseJWT(accessToken, opts.JWTSecret)

	case opts.AuthClient != nil:
		if accessToken == "" {
			return nil, fmt.Errorf("missing %s", AccessTokenHeader)
		}
		resp, err := opts.AuthClient.ValidateToken(c.UserContext(), accessToken)
		if err != nil {
			return nil, err
		}
		return &identity{UserID: resp.UserID, DisplayName: resp.DisplayName, Roles: resp.Roles}, nil

	default:
		userID := strings.TrimSpace(c.Get("X-User-ID"))
		if userID == "" {
			return nil, fmt.Errorf("X-User-ID required but missing")
		}
		return &identity{
			UserID:      userID,
			DisplayName: strings.TrimSpace(c.Get("X-User-Name")),
			Roles:       splitRoles(c.Get("X-User-Roles")),
		}, nil
	}
}

func parseJWT(tokenStr, secret string) (*identity, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid access token: %v", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid access token claims")
	}

	userID, _ := claims["sub"].(string)
	if userID == "" {
		userID, _ = claims["user_id"].(string)
	}
	if userID == "" {
		return nil, fmt.Errorf("access token has no subject")
	}
	name, _ := claims["name"].(string)

	var roles []string
	switch raw := claims["roles"].(type) {
	case []interface{}:
		for _, r := range raw {
			if s, ok := r.(string); ok && s != "" {
				roles = append(roles, s)
			}
		}
	case string:
		roles = splitRoles(raw)
	}
	return &identity{UserID: userID, DisplayName: name, Roles: roles}, nil
}

func splitRoles(csv string) []string {
	var roles []string
	for _, r := range strings.Split(csv, ",") {
		r = strings.TrimSpace(r)
		if r != "" {
			roles = append(roles, r)
		}
	}
	return roles
}

// UserID returns the caller's id set by UserContextMiddleware.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(LocalUserID).(string)
	return id
}

// Roles returns the caller's roles set by UserContextMiddleware.
func Roles(c *fiber.Ctx) []string {
	roles, _ := c.Locals(LocalUserRoles).([]string)
	return roles
}

// DisplayName returns the caller's display name, if the identity source provided one.
func DisplayName(c *fiber.Ctx) string {
	name, _ := c.Locals(LocalDisplayName).(string)
	return name
}
