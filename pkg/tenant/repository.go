package tenant

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
)

// RepositoryHelper provides tenant-aware query building for MongoDB
// repositories. Embed this in repository structs to add company filtering.
type RepositoryHelper struct {
	// EnforceTenant when true, returns an error if tenant context is missing
	EnforceTenant bool
}

// NewRepositoryHelper creates a new RepositoryHelper
func NewRepositoryHelper(enforceTenant bool) *RepositoryHelper {
	return &RepositoryHelper{EnforceTenant: enforceTenant}
}

// WithTenantFilter adds company filtering to a MongoDB query filter.
func (h *RepositoryHelper) WithTenantFilter(ctx context.Context, filter bson.M) (bson.M, error) {
	tc, err := FromContext(ctx)
	if err != nil {
		if h.EnforceTenant {
			return nil, err
		}
		return filter, nil
	}

	scoped := bson.M{}
	for k, v := range filter {
		scoped[k] = v
	}
	scoped["companyId"] = tc.CompanyID

	return scoped, nil
}

// ValidateOwnership verifies that a resource belongs to the tenant in context.
// Use this after fetching a resource to ensure the caller has access.
func (h *RepositoryHelper) ValidateOwnership(ctx context.Context, resourceCompanyID string) error {
	tc, err := FromContext(ctx)
	if err != nil {
		if h.EnforceTenant {
			return err
		}
		return nil
	}
	return tc.ValidateOwnership(resourceCompanyID)
}

// CompanyID extracts the company ID from context for stamping new entities.
func (h *RepositoryHelper) CompanyID(ctx context.Context) string {
	return GetCompanyID(ctx)
}

// TenantIndexes returns standard MongoDB index definitions for tenant fields.
func TenantIndexes() []bson.D {
	return []bson.D{
		{{Key: "companyId", Value: 1}},
		{{Key: "companyId", Value: 1}, {Key: "status", Value: 1}},
	}
}
