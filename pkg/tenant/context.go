package tenant

import (
	"context"
	"errors"
)

type contextKey string

const companyIDKey contextKey = "companyId"

// Errors for tenant context operations
var (
	ErrMissingTenantContext = errors.New("company context is required")
	ErrUnauthorizedAccess   = errors.New("unauthorized access to company resource")
)

// Context holds the tenant identifier used to scope every persistence call.
// Each entity belongs to exactly one company; a query without this scope is a
// bug, not a default.
type Context struct {
	CompanyID string `json:"companyId"`
}

// FromContext extracts the tenant Context from context.Context.
// Returns an error if the company ID is missing.
func FromContext(ctx context.Context) (*Context, error) {
	id := GetCompanyID(ctx)
	if id == "" {
		return nil, ErrMissingTenantContext
	}
	return &Context{CompanyID: id}, nil
}

// ToContext adds tenant values to context.Context.
func ToContext(ctx context.Context, tc *Context) context.Context {
	if tc == nil || tc.CompanyID == "" {
		return ctx
	}
	return context.WithValue(ctx, companyIDKey, tc.CompanyID)
}

// WithCompanyID returns a new context with the company ID set
func WithCompanyID(ctx context.Context, companyID string) context.Context {
	return context.WithValue(ctx, companyIDKey, companyID)
}

// GetCompanyID extracts the company ID from context
func GetCompanyID(ctx context.Context) string {
	if v := ctx.Value(companyIDKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// ValidateOwnership verifies that a resource belongs to this tenant context.
// Used to prevent cross-tenant data access.
func (tc *Context) ValidateOwnership(resourceCompanyID string) error {
	if tc.CompanyID != "" && resourceCompanyID != "" && tc.CompanyID != resourceCompanyID {
		return ErrUnauthorizedAccess
	}
	return nil
}
