package request

// UpdateProfileRequest 资料更新请求
// 每个可修改字段显式列出，nil 表示不修改
type UpdateProfileRequest struct {
	FirstName *string `json:"first_name" binding:"omitempty,min=1,max=50"`
	LastName  *string `json:"last_name" binding:"omitempty,min=1,max=50"`
	Telephone *string `json:"telephone" binding:"omitempty,max=20"`
	Gender    *int8   `json:"gender" binding:"omitempty,oneof=0 1 2"`
	Country   *string `json:"country" binding:"omitempty,max=64"`
	City      *string `json:"city" binding:"omitempty,max=64"`
	School    *string `json:"school" binding:"omitempty,max=128"`
	Employer  *string `json:"employer" binding:"omitempty,max=128"`
	Bio       *string `json:"bio" binding:"omitempty,max=500"`
	IsVisible *bool   `json:"is_visible"`
}

// SearchUsersRequest 资料检索请求，字段均为模糊匹配
type SearchUsersRequest struct {
	FirstName string `form:"first_name" binding:"omitempty,max=50"`
	LastName  string `form:"last_name" binding:"omitempty,max=50"`
	Country   string `form:"country" binding:"omitempty,max=64"`
	City      string `form:"city" binding:"omitempty,max=64"`
	School    string `form:"school" binding:"omitempty,max=128"`
	Employer  string `form:"employer" binding:"omitempty,max=128"`
	Page      int    `form:"page" binding:"omitempty,min=1"`
	PageSize  int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}
