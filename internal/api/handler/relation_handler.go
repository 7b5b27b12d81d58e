package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/pairlink/internal/api/middleware"
	"github.com/d60-Lab/pairlink/pkg/response"
)

type edgeRequest struct {
	ToUserID string `json:"to_user_id" binding:"required,userid"`
}

// Follow 建立关注
// @Summary 关注用户
// @Tags 关系链
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body edgeRequest true "关注信息"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /api/v1/relations/follow [post]
func (h *Handler) Follow(c *gin.Context) {
	var req edgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	me := middleware.CallerID(c)
	if err := h.graphSvc.Follow(c.Request.Context(), me, req.ToUserID); err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, nil)
}

// Unfollow 取消关注
// @Summary 取消关注
// @Tags 关系链
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body edgeRequest true "取消关注信息"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /api/v1/relations/unfollow [post]
func (h *Handler) Unfollow(c *gin.Context) {
	var req edgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	me := middleware.CallerID(c)
	if err := h.graphSvc.Unfollow(c.Request.Context(), me, req.ToUserID); err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, nil)
}

// ListFollowing 查询我关注的人
// @Summary 查询关注列表
// @Tags 关系链
// @Security BearerAuth
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(10)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/relations/following [get]
func (h *Handler) ListFollowing(c *gin.Context) {
	me := middleware.CallerID(c)
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))
	list, err := h.graphSvc.ListFollowing(c.Request.Context(), me, page, pageSize)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, gin.H{"page": page, "page_size": pageSize, "list": list})
}
