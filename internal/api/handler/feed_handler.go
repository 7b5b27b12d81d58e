package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/pairlink/internal/api/middleware"
	"github.com/d60-Lab/pairlink/pkg/response"
)

// Feed 我的动态流
// @Summary 查询我的动态流（搭档相关记录）
// @Tags 动态
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(20)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/feed [get]
func (h *Handler) Feed(c *gin.Context) {
	me := middleware.CallerID(c)
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	list, err := h.feedRepo.ListForUser(c.Request.Context(), me, (page-1)*pageSize, pageSize)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, gin.H{"page": page, "page_size": pageSize, "list": list})
}
