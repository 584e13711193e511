package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/campus-admin-api/internal/models"
)

func testContextWithRole(role models.UserRole) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Set(ContextUserKey, &models.JWTClaims{UserID: "usr-1", Role: role})
	return c, rec
}

func TestRBACAllowsMatchingRole(t *testing.T) {
	c, _ := testContextWithRole(models.RoleCollegeAdmin)

	called := false
	RequireRoles(models.RoleCollegeAdmin)(c)
	if !c.IsAborted() {
		called = true
	}

	assert.True(t, called)
}

func TestRBACRejectsOtherRole(t *testing.T) {
	c, rec := testContextWithRole(models.RoleStudent)

	RequireRoles(models.RoleSuperAdmin)(c)

	assert.True(t, c.IsAborted())
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRBACRejectsMissingClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	RequireRoles(models.RoleStudent)(c)

	assert.True(t, c.IsAborted())
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
