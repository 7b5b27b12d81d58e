package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/d60-Lab/pairlink/internal/api/middleware"
	"github.com/d60-Lab/pairlink/internal/repository"
	"github.com/d60-Lab/pairlink/internal/service"
	"github.com/d60-Lab/pairlink/pkg/response"
)

type Handler struct {
	authSvc    service.AuthService
	graphSvc   service.SocialGraphService
	partnerSvc service.PartnershipService
	feedRepo   repository.FeedEventRepository
	jwtSecret  string
}

func New(authSvc service.AuthService, graphSvc service.SocialGraphService, partnerSvc service.PartnershipService, feedRepo repository.FeedEventRepository, jwtSecret string) *Handler {
	registerValidations()
	return &Handler{
		authSvc:    authSvc,
		graphSvc:   graphSvc,
		partnerSvc: partnerSvc,
		feedRepo:   feedRepo,
		jwtSecret:  jwtSecret,
	}
}

// registerValidations 在 gin 的 validator 引擎上注册 userid 规则
func registerValidations() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("userid", func(fl validator.FieldLevel) bool {
			_, err := uuid.Parse(fl.Field().String())
			return err == nil
		})
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")

	auth := api.Group("/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
	}

	authed := api.Group("")
	authed.Use(middleware.Auth(h.jwtSecret))
	{
		rel := authed.Group("/relations")
		rel.POST("/follow", h.Follow)
		rel.POST("/unfollow", h.Unfollow)
		rel.GET("/following", h.ListFollowing)

		p := authed.Group("/partnerships")
		p.POST("", h.RequestPartnership)
		p.POST("/:id/accept", h.AcceptPartnership)
		p.POST("/:id/decline", h.DeclinePartnership)
		p.POST("/:id/cancel", h.CancelPartnership)
		p.GET("/me", h.MyPartnership)
		p.GET("/incoming", h.IncomingRequests)
		p.GET("/outgoing", h.OutgoingRequests)
		p.GET("/snapshot/:user_id", h.PartnershipSnapshot)

		authed.GET("/feed", h.Feed)
	}
}

// writeServiceError 服务层哨兵错误到 HTTP 语义的统一映射
func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, service.ErrNotParticipant):
		response.Forbidden(c, err.Error())
	case errors.Is(err, service.ErrAlreadyActive),
		errors.Is(err, service.ErrAlreadyPartnered),
		errors.Is(err, service.ErrAlreadyResolved),
		errors.Is(err, service.ErrNotPending):
		response.Conflict(c, err.Error())
	case errors.Is(err, service.ErrSelfPartner),
		errors.Is(err, service.ErrNotMutual),
		errors.Is(err, service.ErrOwnRequest),
		errors.Is(err, service.ErrFollowSelf):
		response.BadRequest(c, err.Error())
	default:
		response.InternalError(c, err)
	}
}
