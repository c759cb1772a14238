package errorx

import (
	"errors"
	"fmt"
)

// CodeError 带业务错误码的自定义错误
// 实现了 error 接口，支持 %w 包装底层错误，且能被 errors.Is/errors.As 识别
// Code 是客户端可以分支判断的稳定错误类型，Msg 只用于展示
type CodeError struct {
	Code  int    // 业务错误码
	Msg   string // 错误消息
	cause error  // 被包装的底层错误
}

// Error 实现 Go 标准 error 接口
// 当存在底层错误时，返回格式为 "消息: 底层错误"；否则仅返回消息
func (e *CodeError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.cause)
	}
	return e.Msg
}

// Unwrap 实现 errors.Unwrap 接口，支持 errors.Is/errors.As 向下追溯
func (e *CodeError) Unwrap() error {
	return e.cause
}

// Is 同一错误码的 CodeError 视为同一类错误
// 这样 errors.Is(err, errorx.ErrForbidden) 对包装后的错误同样成立
func (e *CodeError) Is(target error) bool {
	var t *CodeError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// New 创建一个新的 CodeError
func New(code int, msg string) *CodeError {
	return &CodeError{
		Code: code,
		Msg:  msg,
	}
}

// Newf 创建一个带格式化消息的 CodeError
func Newf(code int, format string, args ...any) *CodeError {
	return &CodeError{
		Code: code,
		Msg:  fmt.Sprintf(format, args...),
	}
}

// Wrap 包装底层错误，添加业务错误码和消息
// 用法: errorx.Wrap(err, CodeNotFound, "用户不存在")
func Wrap(err error, code int, msg string) *CodeError {
	return &CodeError{
		Code:  code,
		Msg:   msg,
		cause: err,
	}
}

// Wrapf 包装底层错误，支持格式化消息
// 用法: errorx.Wrapf(err, CodeNotFound, "用户 %d 不存在", userId)
func Wrapf(err error, code int, format string, args ...any) *CodeError {
	return &CodeError{
		Code:  code,
		Msg:   fmt.Sprintf(format, args...),
		cause: err,
	}
}

// GetCode 从错误中提取业务错误码，如果不是 CodeError 则返回默认码
func GetCode(err error) int {
	var codeErr *CodeError
	if errors.As(err, &codeErr) {
		return codeErr.Code
	}
	return CodeServerBusy // 默认返回服务繁忙
}

// 业务状态码常量定义
const (
	CodeSuccess         = 1000 // 成功
	CodeInvalidParam    = 1001 // 请求参数错误
	CodeUserExist       = 1002 // 用户已存在
	CodeUserNotExist    = 1003 // 用户不存在
	CodeInvalidPassword = 1004 // 密码错误
	CodeServerBusy      = 1005 // 服务繁忙
	CodeUnauthorized    = 1006 // 未授权/认证失败
	CodeNotFound        = 1008 // 资源不存在
	CodeDBError         = 1010 // 数据库错误
	CodeCacheError      = 1011 // 缓存错误

	// 联系人状态机
	CodeSelfRequest         = 1101 // 不能向自己发送好友申请
	CodeAlreadyFriends      = 1102 // 已经是好友
	CodeDuplicateRequest    = 1103 // 重复申请
	CodeNotFoundOrForbidden = 1104 // 记录不存在或无权操作（刻意合并，不泄露记录是否存在）

	// 消息
	CodeForbidden    = 1105 // 非会话成员
	CodeEmptyMessage = 1106 // 消息内容为空

	CodeConflict = 1107 // 唯一约束冲突
)

// 预定义常用错误实例
// 这些实例既可直接返回，也可用于 errors.Is 比较
var (
	ErrInvalidParam        = New(CodeInvalidParam, "请求参数错误")
	ErrServerBusy          = New(CodeServerBusy, "服务繁忙")
	ErrUnauthorized        = New(CodeUnauthorized, "认证失败，请重新登录")
	ErrUserNotExist        = New(CodeUserNotExist, "用户不存在")
	ErrSelfRequest         = New(CodeSelfRequest, "不能向自己发送好友申请")
	ErrAlreadyFriends      = New(CodeAlreadyFriends, "你们已经是好友")
	ErrDuplicateRequest    = New(CodeDuplicateRequest, "好友申请已发送")
	ErrNotFoundOrForbidden = New(CodeNotFoundOrForbidden, "记录不存在或无权操作")
	ErrForbidden           = New(CodeForbidden, "无权访问该会话")
	ErrEmptyMessage        = New(CodeEmptyMessage, "消息内容不能为空")
)

// IsNotFound 检查错误是否为"未找到"类型（包括 gorm.ErrRecordNotFound）
func IsNotFound(err error) bool {
	var codeErr *CodeError
	if errors.As(err, &codeErr) && codeErr.Code == CodeNotFound {
		return true
	}
	// 检查底层错误消息是否包含 "record not found"
	return err != nil && err.Error() == "record not found"
}

// IsConflict 检查错误是否为唯一约束冲突
func IsConflict(err error) bool {
	var codeErr *CodeError
	return errors.As(err, &codeErr) && codeErr.Code == CodeConflict
}
