package tenant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestContextRoundTrip(t *testing.T) {
	ctx := WithCompanyID(context.Background(), "company-1")
	assert.Equal(t, "company-1", GetCompanyID(ctx))

	tc, err := FromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, "company-1", tc.CompanyID)

	_, err = FromContext(context.Background())
	assert.ErrorIs(t, err, ErrMissingTenantContext)
	assert.Empty(t, GetCompanyID(context.Background()))
}

func TestToContext(t *testing.T) {
	ctx := ToContext(context.Background(), &Context{CompanyID: "company-2"})
	assert.Equal(t, "company-2", GetCompanyID(ctx))

	// nil and empty tenant attach nothing
	assert.Empty(t, GetCompanyID(ToContext(context.Background(), nil)))
	assert.Empty(t, GetCompanyID(ToContext(context.Background(), &Context{})))
}

func TestValidateOwnership(t *testing.T) {
	tc := &Context{CompanyID: "company-1"}
	assert.NoError(t, tc.ValidateOwnership("company-1"))
	assert.ErrorIs(t, tc.ValidateOwnership("company-2"), ErrUnauthorizedAccess)
	assert.NoError(t, tc.ValidateOwnership(""), "legacy records without company stamp")
}

func TestWithTenantFilter(t *testing.T) {
	helper := NewRepositoryHelper(true)
	ctx := WithCompanyID(context.Background(), "company-1")

	filter, err := helper.WithTenantFilter(ctx, bson.M{"stageId": "stage-1"})
	require.NoError(t, err)
	assert.Equal(t, "stage-1", filter["stageId"])
	assert.Equal(t, "company-1", filter["companyId"])

	t.Run("does not mutate the input filter", func(t *testing.T) {
		base := bson.M{"status": "planned"}
		_, err := helper.WithTenantFilter(ctx, base)
		require.NoError(t, err)
		_, ok := base["companyId"]
		assert.False(t, ok)
	})

	t.Run("enforced helper rejects missing tenant", func(t *testing.T) {
		_, err := helper.WithTenantFilter(context.Background(), bson.M{})
		assert.ErrorIs(t, err, ErrMissingTenantContext)
	})

	t.Run("relaxed helper passes filter through", func(t *testing.T) {
		relaxed := NewRepositoryHelper(false)
		filter, err := relaxed.WithTenantFilter(context.Background(), bson.M{"stageId": "stage-1"})
		require.NoError(t, err)
		_, ok := filter["companyId"]
		assert.False(t, ok)
	})
}

func TestRepositoryHelperValidateOwnership(t *testing.T) {
	helper := NewRepositoryHelper(true)
	ctx := WithCompanyID(context.Background(), "company-1")

	assert.NoError(t, helper.ValidateOwnership(ctx, "company-1"))
	assert.ErrorIs(t, helper.ValidateOwnership(ctx, "company-2"), ErrUnauthorizedAccess)
	assert.ErrorIs(t, helper.ValidateOwnership(context.Background(), "company-1"), ErrMissingTenantContext)

	relaxed := NewRepositoryHelper(false)
	assert.NoError(t, relaxed.ValidateOwnership(context.Background(), "company-1"))
}
