package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/pairlink/internal/api/middleware"
	"github.com/d60-Lab/pairlink/internal/reconcile"
	"github.com/d60-Lab/pairlink/pkg/response"
)

type partnerRequest struct {
	ToUserID string `json:"to_user_id" binding:"required,userid"`
}

// RequestPartnership 发起搭档请求
// @Summary 发起搭档请求（需互相关注）
// @Tags 搭档
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body partnerRequest true "对方用户"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/partnerships [post]
func (h *Handler) RequestPartnership(c *gin.Context) {
	var req partnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	me := middleware.CallerID(c)
	p, err := h.partnerSvc.Request(c.Request.Context(), me, req.ToUserID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Created(c, p)
}

// AcceptPartnership 接受搭档请求
// @Summary 接受搭档请求（仅非发起方）
// @Tags 搭档
// @Produce json
// @Security BearerAuth
// @Param id path string true "搭档记录ID"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/partnerships/{id}/accept [post]
func (h *Handler) AcceptPartnership(c *gin.Context) {
	me := middleware.CallerID(c)
	p, err := h.partnerSvc.Accept(c.Request.Context(), c.Param("id"), me)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, p)
}

// DeclinePartnership 拒绝搭档请求
// @Summary 拒绝搭档请求
// @Tags 搭档
// @Produce json
// @Security BearerAuth
// @Param id path string true "搭档记录ID"
// @Success 200 {object} response.Response
// @Router /api/v1/partnerships/{id}/decline [post]
func (h *Handler) DeclinePartnership(c *gin.Context) {
	me := middleware.CallerID(c)
	p, err := h.partnerSvc.Decline(c.Request.Context(), c.Param("id"), me)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, p)
}

// CancelPartnership 撤回请求或解除搭档
// @Summary 撤回 pending 请求，或解除已成立的搭档
// @Tags 搭档
// @Produce json
// @Security BearerAuth
// @Param id path string true "搭档记录ID"
// @Success 200 {object} response.Response
// @Router /api/v1/partnerships/{id}/cancel [post]
func (h *Handler) CancelPartnership(c *gin.Context) {
	me := middleware.CallerID(c)
	p, err := h.partnerSvc.Cancel(c.Request.Context(), c.Param("id"), me)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, p)
}

// MyPartnership 查询我当前的搭档
// @Summary 查询当前 accepted 搭档
// @Tags 搭档
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /api/v1/partnerships/me [get]
func (h *Handler) MyPartnership(c *gin.Context) {
	me := middleware.CallerID(c)
	p, err := h.partnerSvc.AcceptedForUser(c.Request.Context(), me)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, p)
}

// IncomingRequests 入向待处理请求
// @Summary 查询发给我的 pending 请求
// @Tags 搭档
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /api/v1/partnerships/incoming [get]
func (h *Handler) IncomingRequests(c *gin.Context) {
	me := middleware.CallerID(c)
	list, err := h.partnerSvc.ListIncomingPending(c.Request.Context(), me)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, gin.H{"list": list})
}

// OutgoingRequests 出向待处理请求
// @Summary 查询我发出的 pending 请求
// @Tags 搭档
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /api/v1/partnerships/outgoing [get]
func (h *Handler) OutgoingRequests(c *gin.Context) {
	me := middleware.CallerID(c)
	list, err := h.partnerSvc.ListOutgoingPending(c.Request.Context(), me)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, gin.H{"list": list})
}

// PartnershipSnapshot 对某用户档案页的快照与视图态
// @Summary 查询与目标用户的搭档快照（含推导的视图态）
// @Tags 搭档
// @Produce json
// @Security BearerAuth
// @Param user_id path string true "目标用户ID"
// @Success 200 {object} response.Response
// @Router /api/v1/partnerships/snapshot/{user_id} [get]
func (h *Handler) PartnershipSnapshot(c *gin.Context) {
	me := middleware.CallerID(c)
	target := c.Param("user_id")
	snap, err := h.partnerSvc.Snapshot(c.Request.Context(), me, target)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	state := reconcile.DeriveViewState(me, snap)
	response.Success(c, gin.H{"snapshot": snap, "view_state": state.String()})
}
