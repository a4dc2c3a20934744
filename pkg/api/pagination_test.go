package api

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func testContext(query string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/stages?"+query, nil)
	return c
}

func TestParsePagination(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		page     int64
		pageSize int64
	}{
		{"defaults", "", 1, 20},
		{"explicit", "page=3&pageSize=50", 3, 50},
		{"page clamped to 1", "page=0", 1, 20},
		{"negative page", "page=-5", 1, 20},
		{"pageSize clamped to 100", "pageSize=500", 1, 100},
		{"pageSize floor", "pageSize=0", 1, 20},
		{"garbage falls back", "page=abc&pageSize=xyz", 1, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParsePagination(testContext(tt.query))
			assert.Equal(t, tt.page, got.Page)
			assert.Equal(t, tt.pageSize, got.PageSize)
		})
	}
}

func TestPageRequestOffsetLimit(t *testing.T) {
	p := PageRequest{Page: 3, PageSize: 25}
	assert.Equal(t, int64(50), p.GetOffset())
	assert.Equal(t, int64(25), p.GetLimit())

	assert.Equal(t, int64(0), DefaultPageRequest().GetOffset())
}

func TestParseSort(t *testing.T) {
	got := ParseSort(testContext(""), "order")
	assert.Equal(t, "order", got.Field)
	assert.Equal(t, SortAsc, got.Order)
	assert.Equal(t, 1, got.GetMongoSort())

	got = ParseSort(testContext("sortBy=createdAt&order=desc"), "order")
	assert.Equal(t, "createdAt", got.Field)
	assert.Equal(t, SortDesc, got.Order)
	assert.Equal(t, -1, got.GetMongoSort())

	got = ParseSort(testContext("order=sideways"), "order")
	assert.Equal(t, SortAsc, got.Order)
}

func TestParseFilter(t *testing.T) {
	got := ParseFilter(testContext("status=in_progress&assignedUserId=u-1&supervisorId=s-1"))
	assert.Equal(t, "in_progress", got.Status)
	assert.Equal(t, "u-1", got.AssignedUserID)
	assert.Equal(t, "s-1", got.SupervisorID)

	assert.Equal(t, FilterRequest{}, ParseFilter(testContext("")))
}

func TestParseListRequest(t *testing.T) {
	got := ParseListRequest(testContext("page=2&pageSize=10&sortBy=name&order=desc&status=planned"), "order")
	assert.Equal(t, int64(2), got.Pagination.Page)
	assert.Equal(t, int64(10), got.Pagination.PageSize)
	assert.Equal(t, "name", got.Sort.Field)
	assert.Equal(t, SortDesc, got.Sort.Order)
	assert.Equal(t, "planned", got.Filter.Status)
}

func TestNewPageResponse(t *testing.T) {
	resp := NewPageResponse([]string{"a", "b"}, 2, 2, 5)
	assert.Equal(t, int64(3), resp.TotalPages)
	assert.True(t, resp.HasNext)
	assert.True(t, resp.HasPrev)

	resp = NewPageResponse([]string{}, 1, 20, 0)
	assert.Equal(t, int64(1), resp.TotalPages)
	assert.False(t, resp.HasNext)
	assert.False(t, resp.HasPrev)

	resp = NewPageResponse([]string{"a"}, 3, 2, 5)
	assert.False(t, resp.HasNext)
}
