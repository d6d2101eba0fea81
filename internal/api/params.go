package api

import (
	"strconv" // String conversion

	"trading_ledger/internal/domain"     // Importing domain models
	"trading_ledger/internal/middleware" // Context keys

	"github.com/gin-gonic/gin" // Gin web framework
)

// currentUserID returns the authenticated user, if any
func currentUserID(c *gin.Context) (uint, bool) {
	userID := c.GetUint(middleware.CtxUserID)
	return userID, userID != 0
}

// currentAdmin returns the admin loaded by RequirePermission
func currentAdmin(c *gin.Context) (*domain.Admin, bool) {
	v, exists := c.Get(middleware.CtxAdmin)
	if !exists {
		return nil, false
	}
	admin, ok := v.(*domain.Admin)
	return admin, ok && admin != nil
}

// pagination reads page and page_size with the same limits the store applies
func pagination(c *gin.Context) (int, int) {
	page := 1      // Default page
	pageSize := 20 // Default page size
	// If page exists in query
	if p := c.Query("page"); p != "" {
		// Convert page to integer
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v // Set page if valid
		}
	}
	// If page_size exists in query
	if ps := c.Query("page_size"); ps != "" {
		// Convert page_size to integer
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v // Set page size if valid
		}
	}
	return page, pageSize
}

func totalPages(total int64, pageSize int) int {
	return (int(total) + pageSize - 1) / pageSize
}

// userIDParam parses a numeric user id path parameter
func userIDParam(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		return 0, false
	}
	return uint(v), true
}
