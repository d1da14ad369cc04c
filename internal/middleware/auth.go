package middleware

import (
	"context"
	"net/http"
	"os"
	"strings"

	"erp-backend/internal/model"
	"erp-backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

func GetJWTSecret() []byte {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		if os.Getenv("GIN_MODE") == "release" {
			panic("FATAL: JWT_SECRET environment variable is required in production mode")
		}
		secret = "default_super_secret_key" // Development fallback only — DO NOT use in production
	}
	return []byte(secret)
}

// PermissionChecker resolves role x module permission checks. Declared here
// rather than importing the service package so the dependency runs one way.
type PermissionChecker interface {
	CanAct(ctx context.Context, role string, module model.Module, permission string) (bool, error)
}

// extractToken reads the JWT from the access_token cookie, falling back to
// the Authorization header.
func extractToken(c *gin.Context) (string, bool) {
	tokenString, cookieErr := c.Cookie("access_token")
	if cookieErr == nil && tokenString != "" {
		return tokenString, true
	}

	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	return parts[1], true
}

func authenticate(c *gin.Context) (userID, role string, ok bool) {
	tokenString, found := extractToken(c)
	if !found {
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing"))
		return "", "", false
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return GetJWTSecret(), nil
	})
	if err != nil || !token.Valid {
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token"))
		return "", "", false
	}

	claims, claimsOK := token.Claims.(jwt.MapClaims)
	if !claimsOK {
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token claims"))
		return "", "", false
	}

	role, roleOK := claims["role"].(string)
	if !roleOK {
		c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Role not found in token"))
		return "", "", false
	}
	userID, _ = claims["sub"].(string)

	c.Set("userID", userID)
	c.Set("userRole", role)
	return userID, role, true
}

// RequireAuth validates the JWT and stores userID/userRole in the context.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, _, ok := authenticate(c); !ok {
			return
		}
		c.Next()
	}
}

// RequireRole validates the JWT and checks membership in allowedRoles. The
// admin role always passes.
func RequireRole(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, role, ok := authenticate(c)
		if !ok {
			return
		}

		if role != model.AdminRole {
			allowed := false
			for _, r := range allowedRoles {
				if role == r {
					allowed = true
					break
				}
			}
			if !allowed {
				c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: insufficient permissions"))
				return
			}
		}

		c.Next()
	}
}

// RequirePermission validates the JWT and checks the matrix for the given
// module and permission kind.
func RequirePermission(checker PermissionChecker, module model.Module, permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, role, ok := authenticate(c)
		if !ok {
			return
		}
		checkPermission(c, checker, role, module, permission)
	}
}

// RequireKindPermission resolves the module from the :kind path parameter
// before checking the matrix, so one route group covers every entity kind.
func RequireKindPermission(checker PermissionChecker, permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, role, ok := authenticate(c)
		if !ok {
			return
		}

		kind := model.Kind(c.Param("kind"))
		module, found := model.ModuleFor(kind)
		if !found {
			c.AbortWithStatusJSON(http.StatusNotFound, response.Error(http.StatusNotFound, "Unknown entity kind"))
			return
		}

		checkPermission(c, checker, role, module, permission)
	}
}

func checkPermission(c *gin.Context, checker PermissionChecker, role string, module model.Module, permission string) {
	allowed, err := checker.CanAct(c.Request.Context(), role, module, permission)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to verify permissions"))
		return
	}
	if !allowed {
		c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: missing permission '"+permission+"'"))
		return
	}
	c.Next()
}
