package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/gin-blog/internal/api/middleware"
	"github.com/d60-Lab/gin-blog/internal/identity"
	"github.com/d60-Lab/gin-blog/internal/model"
	"github.com/d60-Lab/gin-blog/internal/service"
	"github.com/d60-Lab/gin-blog/pkg/response"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type federatedRequest struct {
	IDToken string `json:"idToken" binding:"required"`
}

type authResponse struct {
	Session *identity.Session `json:"session"`
	User    *model.User       `json:"user,omitempty"`
}

// Register 注册
// @Summary 注册账号
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body service.RegisterInput true "注册信息"
// @Success 201 {object} response.Response{data=authResponse}
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Failure 502 {object} response.Response
// @Router /api/v1/auth/register [post]
func (h *Handler) Register(c *gin.Context) {
	var req service.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	ctx := c.Request.Context()
	user, err := h.userService.Register(ctx, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	sess, err := h.userService.SignIn(ctx, req.Email, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, authResponse{Session: sess, User: user})
}

// Login 邮箱密码登录
// @Summary 登录
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body loginRequest true "登录信息"
// @Success 200 {object} response.Response{data=authResponse}
// @Failure 401 {object} response.Response
// @Router /api/v1/auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	sess, err := h.userService.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, authResponse{Session: sess})
}

// Logout 吊销当前令牌
// @Summary 登出
// @Tags 认证
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /api/v1/auth/logout [post]
func (h *Handler) Logout(c *gin.Context) {
	if err := h.userService.SignOut(c.Request.Context(), middleware.TokenFrom(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// Federated 外部身份提供方登录
// @Summary 联合登录
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body federatedRequest true "ID token"
// @Success 200 {object} response.Response{data=authResponse}
// @Failure 401 {object} response.Response
// @Router /api/v1/auth/federated [post]
func (h *Handler) Federated(c *gin.Context) {
	var req federatedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	sess, user, err := h.userService.FederatedSignIn(c.Request.Context(), req.IDToken)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, authResponse{Session: sess, User: user})
}

// CheckUsername 用户名是否可用（仅提示）
// @Summary 检查用户名
// @Tags 认证
// @Param username query string true "用户名"
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Failure 400 {object} response.Response
// @Router /api/v1/auth/username/check [get]
func (h *Handler) CheckUsername(c *gin.Context) {
	name := c.Query("username")
	available, err := h.userService.CheckUsername(c.Request.Context(), name)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"username": name, "available": available})
}
