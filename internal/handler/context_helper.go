package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-admin-api/internal/middleware"
	"github.com/noah-isme/campus-admin-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// collegeIDFromContext returns the caller's college binding, or "" when the
// token carries none.
func collegeIDFromContext(c *gin.Context) string {
	claims := claimsFromContext(c)
	if claims == nil || claims.CollegeID == nil {
		return ""
	}
	return *claims.CollegeID
}

// studentIDFromContext returns the caller's student binding, or "" when the
// token carries none.
func studentIDFromContext(c *gin.Context) string {
	claims := claimsFromContext(c)
	if claims == nil || claims.StudentID == nil {
		return ""
	}
	return *claims.StudentID
}
