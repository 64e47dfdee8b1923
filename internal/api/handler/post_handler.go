package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/gin-blog/internal/api/middleware"
	"github.com/d60-Lab/gin-blog/internal/service"
	"github.com/d60-Lab/gin-blog/pkg/response"
)

type commentRequest struct {
	Content string `json:"content"`
}

// ListPosts 首页信息流
// @Summary 文章列表（游标分页，时间倒序）
// @Tags 文章
// @Produce json
// @Param cursor query string false "上一页返回的 nextCursor"
// @Param page_size query int false "每页数量" default(10)
// @Success 200 {object} response.Response{data=model.Page}
// @Failure 400 {object} response.Response
// @Router /api/v1/posts [get]
func (h *Handler) ListPosts(c *gin.Context) {
	size, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))
	page, err := h.postService.List(c.Request.Context(), c.Query("cursor"), size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, page)
}

// CreatePost 发布文章
// @Summary 发布文章
// @Tags 文章
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body service.PostInput true "文章内容"
// @Success 201 {object} response.Response{data=map[string]string}
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/posts [post]
func (h *Handler) CreatePost(c *gin.Context) {
	var req service.PostInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	id, err := h.postService.Create(c.Request.Context(), middleware.PrincipalFrom(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"id": id})
}

// PopularPosts 热门文章：最近 50 篇内按点赞数排序，不是全站排名
// @Summary 热门文章
// @Tags 文章
// @Param n query int false "数量" default(10)
// @Success 200 {object} response.Response{data=[]model.Post}
// @Router /api/v1/posts/popular [get]
func (h *Handler) PopularPosts(c *gin.Context) {
	n, _ := strconv.Atoi(c.DefaultQuery("n", "10"))
	posts, err := h.postService.MostPopular(c.Request.Context(), n)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, posts)
}

// GetPost 文章详情
// @Summary 文章详情
// @Tags 文章
// @Param id path string true "文章ID"
// @Success 200 {object} response.Response{data=model.Post}
// @Failure 404 {object} response.Response
// @Router /api/v1/posts/{id} [get]
func (h *Handler) GetPost(c *gin.Context) {
	p, err := h.postService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, p)
}

// UpdatePost 修改文章（仅作者）
// @Summary 修改文章
// @Tags 文章
// @Security BearerAuth
// @Accept json
// @Param id path string true "文章ID"
// @Param request body service.PostUpdate true "修改内容"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/posts/{id} [put]
func (h *Handler) UpdatePost(c *gin.Context) {
	var req service.PostUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.postService.Update(c.Request.Context(), middleware.PrincipalFrom(c), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// DeletePost 删除文章（仅作者）
// @Summary 删除文章
// @Tags 文章
// @Security BearerAuth
// @Param id path string true "文章ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/posts/{id} [delete]
func (h *Handler) DeletePost(c *gin.Context) {
	if err := h.postService.Delete(c.Request.Context(), middleware.PrincipalFrom(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// ToggleLike 点赞 / 取消点赞
// @Summary 切换点赞
// @Tags 互动
// @Security BearerAuth
// @Param id path string true "文章ID"
// @Success 200 {object} response.Response{data=map[string]bool}
// @Failure 404 {object} response.Response
// @Router /api/v1/posts/{id}/like [post]
func (h *Handler) ToggleLike(c *gin.Context) {
	liked, err := h.postService.ToggleLike(c.Request.Context(), c.Param("id"), middleware.PrincipalFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"liked": liked})
}

// ToggleBookmark 收藏 / 取消收藏
// @Summary 切换收藏
// @Tags 互动
// @Security BearerAuth
// @Param id path string true "文章ID"
// @Success 200 {object} response.Response{data=map[string]bool}
// @Failure 404 {object} response.Response
// @Router /api/v1/posts/{id}/bookmark [post]
func (h *Handler) ToggleBookmark(c *gin.Context) {
	marked, err := h.postService.ToggleBookmark(c.Request.Context(), c.Param("id"), middleware.PrincipalFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"bookmarked": marked})
}

// AddComment 发表评论
// @Summary 发表评论
// @Tags 互动
// @Security BearerAuth
// @Accept json
// @Param id path string true "文章ID"
// @Param request body commentRequest true "评论内容"
// @Success 201 {object} response.Response{data=model.Comment}
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/posts/{id}/comments [post]
func (h *Handler) AddComment(c *gin.Context) {
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	comment, err := h.postService.AddComment(c.Request.Context(), c.Param("id"), middleware.PrincipalFrom(c), req.Content)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, comment)
}
