package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/factory-platform/production-service/pkg/auth"
	"github.com/factory-platform/production-service/pkg/logging"
	"github.com/factory-platform/production-service/pkg/tenant"
)

// HTTP header names carrying the authenticated actor, set by the API gateway
const (
	HeaderCompanyID = "X-Company-ID"
	HeaderActorID   = "X-Actor-ID"
	HeaderActorRole = "X-Actor-Role"
)

// Gin context keys
const (
	ContextKeyActor     = "actor"
	ContextKeyCompanyID = "companyId"
)

// ActorAuthConfig holds configuration for the actor middleware
type ActorAuthConfig struct {
	// Required rejects requests without a company or actor context when true
	Required bool

	// DefaultCompanyID is used when no company header is provided and Required is false
	DefaultCompanyID string
}

// DefaultActorAuthConfig returns a config that requires full actor context
func DefaultActorAuthConfig() *ActorAuthConfig {
	return &ActorAuthConfig{Required: true}
}

// ActorAuth extracts the tenant and actor identity from gateway headers
// and adds them to the request context. Tenant scoping downstream depends
// on the company ID set here.
func ActorAuth(config *ActorAuthConfig) gin.HandlerFunc {
	if config == nil {
		config = DefaultActorAuthConfig()
	}

	return func(c *gin.Context) {
		companyID := c.GetHeader(HeaderCompanyID)
		actorID := c.GetHeader(HeaderActorID)
		roleStr := c.GetHeader(HeaderActorRole)

		if companyID == "" && !config.Required {
			companyID = config.DefaultCompanyID
		}

		if config.Required && companyID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    "MISSING_TENANT_CONTEXT",
				"message": "Company context is required",
			})
			return
		}

		role := auth.Role(roleStr)
		if config.Required {
			if actorID == "" || roleStr == "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"code":    "MISSING_ACTOR_CONTEXT",
					"message": "Actor identity is required",
				})
				return
			}
			if !role.IsValid() {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"code":    "INVALID_ACTOR_ROLE",
					"message": "Unknown actor role: " + roleStr,
				})
				return
			}
		}

		actor := &auth.Actor{
			UserID:    actorID,
			Role:      role,
			CompanyID: companyID,
		}

		ctx := tenant.ToContext(c.Request.Context(), &tenant.Context{CompanyID: companyID})
		ctx = auth.ToContext(ctx, actor)
		ctx = logging.ContextWithActorID(ctx, actorID)
		c.Request = c.Request.WithContext(ctx)

		c.Set(ContextKeyActor, actor)
		c.Set(ContextKeyCompanyID, companyID)

		c.Next()
	}
}

// GetActor retrieves the actor from the Gin context
func GetActor(c *gin.Context) *auth.Actor {
	if val, exists := c.Get(ContextKeyActor); exists {
		if actor, ok := val.(*auth.Actor); ok {
			return actor
		}
	}
	return nil
}

// GetCompanyID retrieves the company ID from the Gin context
func GetCompanyID(c *gin.Context) string {
	if val, exists := c.Get(ContextKeyCompanyID); exists {
		if id, ok := val.(string); ok {
			return id
		}
	}
	return ""
}

// RequireCapability rejects requests whose actor lacks the given capability
func RequireCapability(cap auth.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := GetActor(c)
		if actor == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    "MISSING_ACTOR_CONTEXT",
				"message": "Actor identity is required",
			})
			return
		}

		if !actor.Can(cap) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"code":    "FORBIDDEN",
				"message": "Actor role does not permit this operation",
			})
			return
		}

		c.Next()
	}
}
