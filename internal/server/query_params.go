package server

import (
	"strconv"
	"strings"

	provisioningdomain "github.com/abbydulski/Runway-sub000/internal/provisioning/domain"
	"github.com/abbydulski/Runway-sub000/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

// logQuery reads the provisioning log filter and page from the query string.
func logQuery(c *gin.Context) (provisioningdomain.LogFilter, pagination.Pagination, error) {
	filter := provisioningdomain.LogFilter{
		Provider: strings.TrimSpace(c.Query("provider")),
		Status:   strings.TrimSpace(c.Query("status")),
	}
	page := pagination.Pagination{PageToken: strings.TrimSpace(c.Query("page_token"))}

	if raw := strings.TrimSpace(c.Query("user_id")); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil || id <= 0 {
			return filter, page, newValidationError("user_id", "invalid_user_id", "invalid user_id")
		}
		filter.UserID = id
	}
	if raw := strings.TrimSpace(c.Query("page_size")); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 0 {
			return filter, page, newValidationError("page_size", "invalid_page_size", "invalid page_size")
		}
		page.PageSize = size
	}
	return filter, page, nil
}
