package respond

import "time"

// PublicUser 对外公开的用户资料
type PublicUser struct {
	ID        uint   `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Avatar    string `json:"avatar"`
}

// ProfileRespond 用户资料
type ProfileRespond struct {
	ID        uint      `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email,omitempty"`
	Telephone string    `json:"telephone,omitempty"`
	Gender    int8      `json:"gender"`
	Country   string    `json:"country"`
	City      string    `json:"city"`
	School    string    `json:"school"`
	Employer  string    `json:"employer"`
	Bio       string    `json:"bio"`
	Avatar    string    `json:"avatar"`
	IsVisible bool      `json:"is_visible"`
	CreatedAt time.Time `json:"created_at"`
}

// SearchUsersRespond 分页检索结果
type SearchUsersRespond struct {
	Total    int64            `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
	List     []ProfileRespond `json:"list"`
}

// LoginRespond 登录结果
type LoginRespond struct {
	AccessToken string         `json:"access_token"`
	ExpiresAt   time.Time      `json:"expires_at"`
	User        ProfileRespond `json:"user"`
}

// AvatarRespond 头像上传结果
type AvatarRespond struct {
	Avatar string `json:"avatar"`
}
