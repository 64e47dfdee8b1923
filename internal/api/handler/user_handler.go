package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/gin-blog/internal/api/middleware"
	"github.com/d60-Lab/gin-blog/internal/service"
	"github.com/d60-Lab/gin-blog/pkg/response"
)

type renameRequest struct {
	Username string `json:"username" binding:"required"`
}

// GetProfile 用户主页
// @Summary 用户主页
// @Tags 用户
// @Param username path string true "用户名（不区分大小写）"
// @Success 200 {object} response.Response{data=model.Profile}
// @Failure 404 {object} response.Response
// @Router /api/v1/users/{username} [get]
func (h *Handler) GetProfile(c *gin.Context) {
	prof, err := h.userService.Profile(c.Request.Context(), c.Param("username"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, prof)
}

// Me 当前用户资料
// @Summary 当前用户
// @Tags 用户
// @Security BearerAuth
// @Success 200 {object} response.Response{data=model.User}
// @Router /api/v1/me [get]
func (h *Handler) Me(c *gin.Context) {
	u, err := h.userService.Get(c.Request.Context(), middleware.PrincipalFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, u)
}

// UpdateMe 修改资料
// @Summary 修改资料
// @Tags 用户
// @Security BearerAuth
// @Accept json
// @Param request body service.ProfileInput true "资料"
// @Success 200 {object} response.Response{data=model.User}
// @Failure 400 {object} response.Response
// @Router /api/v1/me [patch]
func (h *Handler) UpdateMe(c *gin.Context) {
	var req service.ProfileInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	u, err := h.userService.UpdateProfile(c.Request.Context(), middleware.PrincipalFrom(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, u)
}

// RenameMe 修改用户名，已发布内容中的作者名不变
// @Summary 修改用户名
// @Tags 用户
// @Security BearerAuth
// @Accept json
// @Param request body renameRequest true "新用户名"
// @Success 200 {object} response.Response{data=model.User}
// @Failure 409 {object} response.Response
// @Router /api/v1/me/username [put]
func (h *Handler) RenameMe(c *gin.Context) {
	var req renameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	u, err := h.userService.Rename(c.Request.Context(), middleware.PrincipalFrom(c), req.Username)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, u)
}

// MyBookmarks 我的收藏（最近文章范围内）
// @Summary 我的收藏
// @Tags 用户
// @Security BearerAuth
// @Success 200 {object} response.Response{data=[]model.Post}
// @Router /api/v1/me/bookmarks [get]
func (h *Handler) MyBookmarks(c *gin.Context) {
	posts, err := h.postService.ListBookmarked(c.Request.Context(), middleware.PrincipalFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, posts)
}
