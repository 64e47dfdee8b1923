package model

// Page 游标分页结果
type Page struct {
	Items      []*Post `json:"items"`
	NextCursor string  `json:"nextCursor,omitempty"`
	HasMore    bool    `json:"hasMore"`
}

// Profile 用户主页
type Profile struct {
	User  *User   `json:"user"`
	Posts []*Post `json:"posts"`
}
