package service

import "strings"

// PostInput 新建文章
type PostInput struct {
	Title   string `json:"title" validate:"required,max=100"`
	Content string `json:"content" validate:"required,min=20"`
}

func (in *PostInput) trim() {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
}

// PostUpdate 修改文章，nil 字段保持不变
type PostUpdate struct {
	Title   *string `json:"title" validate:"omitempty,max=100"`
	Content *string `json:"content" validate:"omitempty,min=20"`
}

func (in *PostUpdate) trim() {
	if in.Title != nil {
		t := strings.TrimSpace(*in.Title)
		in.Title = &t
	}
	if in.Content != nil {
		c := strings.TrimSpace(*in.Content)
		in.Content = &c
	}
}

type commentInput struct {
	Content string `json:"content" validate:"required,max=2000"`
}

// RegisterInput 注册
type RegisterInput struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=6,max=72"`
	Username    string `json:"username" validate:"required"`
	DisplayName string `json:"displayName" validate:"max=100"`
}

type usernameInput struct {
	Username string `json:"username" validate:"username"`
}

// ProfileInput 资料修改
type ProfileInput struct {
	DisplayName *string `json:"displayName" validate:"omitempty,max=100"`
	PhotoURL    *string `json:"photoURL" validate:"omitempty,url"`
}
