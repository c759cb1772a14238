package request

// RegisterRequest 用户注册请求
type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email,max=100"`
	Password  string `json:"password" binding:"required,min=6,max=64"`
	FirstName string `json:"first_name" binding:"required,max=50"`
	LastName  string `json:"last_name" binding:"required,max=50"`
}

// LoginRequest 邮箱密码登录请求
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// ChangePasswordRequest 修改密码请求
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=6,max=64"`
}

// DeleteAccountRequest 注销账号请求，需要再次确认密码
type DeleteAccountRequest struct {
	Password string `json:"password" binding:"required"`
}
