// Package user 提供用户资料查询、修改、头像上传和资料检索
package user

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"reconnect_server/internal/config"
	"reconnect_server/internal/dao/mysql/repository"
	"reconnect_server/internal/dto/request"
	"reconnect_server/internal/dto/respond"
	"reconnect_server/internal/model"
	"reconnect_server/internal/service/dbcall"
	"reconnect_server/pkg/constants"
	"reconnect_server/pkg/errorx"
)

// AvatarURLPrefix 头像静态资源的访问前缀
const AvatarURLPrefix = "/static/avatars/"

var avatarMimes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

// userInfoService 用户资料业务逻辑实现
type userInfoService struct {
	users  repository.UserRepository
	static config.StaticSrcConfig
	policy dbcall.Policy
}

func NewUserService(users repository.UserRepository, static config.StaticSrcConfig, policy dbcall.Policy) *userInfoService {
	return &userInfoService{users: users, static: static, policy: policy}
}

// GetUser 查看用户资料，非本人时隐藏邮箱和电话
func (u *userInfoService) GetUser(ctx context.Context, viewerID, userID uint) (*respond.ProfileRespond, error) {
	user, err := u.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	rsp := ToProfile(user)
	if viewerID != userID {
		rsp.Email = ""
		rsp.Telephone = ""
	}
	return rsp, nil
}

// UpdateProfile 只更新请求中出现的字段
func (u *userInfoService) UpdateProfile(ctx context.Context, userID uint, req request.UpdateProfileRequest) (*respond.ProfileRespond, error) {
	var (
		patch   model.UserInfo
		columns []string
	)
	setString := func(v *string, column string, dst *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
			columns = append(columns, column)
		}
	}
	setString(req.FirstName, "first_name", &patch.FirstName)
	setString(req.LastName, "last_name", &patch.LastName)
	setString(req.Telephone, "telephone", &patch.Telephone)
	setString(req.Country, "country", &patch.Country)
	setString(req.City, "city", &patch.City)
	setString(req.School, "school", &patch.School)
	setString(req.Employer, "employer", &patch.Employer)
	setString(req.Bio, "bio", &patch.Bio)
	if req.Gender != nil {
		patch.Gender = *req.Gender
		columns = append(columns, "gender")
	}
	if req.IsVisible != nil {
		patch.IsVisible = *req.IsVisible
		columns = append(columns, "is_visible")
	}

	if (req.FirstName != nil && patch.FirstName == "") || (req.LastName != nil && patch.LastName == "") {
		return nil, errorx.New(errorx.CodeInvalidParam, "姓名不能为空")
	}

	if len(columns) > 0 {
		err := u.policy.Write(ctx, func(ctx context.Context) error {
			return u.users.UpdateColumns(ctx, userID, &patch, columns)
		})
		if err != nil {
			if errorx.IsNotFound(err) {
				return nil, errorx.ErrUserNotExist
			}
			zap.L().Error("Update profile error", zap.Uint("user", userID), zap.Strings("columns", columns), zap.Error(err))
			return nil, errorx.ErrServerBusy
		}
	}
	return u.GetUser(ctx, userID, userID)
}

// UploadAvatar 保存头像文件并更新引用
func (u *userInfoService) UploadAvatar(ctx context.Context, userID uint, fileHeader *multipart.FileHeader) (*respond.AvatarRespond, error) {
	if fileHeader == nil {
		return nil, errorx.New(errorx.CodeInvalidParam, "未上传文件")
	}
	if u.static.AvatarMaxSize > 0 && fileHeader.Size > u.static.AvatarMaxSize {
		return nil, errorx.Newf(errorx.CodeInvalidParam, "头像不能超过 %d 字节", u.static.AvatarMaxSize)
	}

	name, err := saveFile(fileHeader, u.static.StaticAvatarPath, uuid.NewString(), avatarMimes...)
	if err != nil {
		if errorx.GetCode(err) == errorx.CodeInvalidParam {
			return nil, err
		}
		zap.L().Error("Save avatar error", zap.Uint("user", userID), zap.Error(err))
		return nil, errorx.ErrServerBusy
	}

	avatar := AvatarURLPrefix + name
	err = u.policy.Write(ctx, func(ctx context.Context) error {
		return u.users.UpdateAvatar(ctx, userID, avatar)
	})
	if err != nil {
		_ = os.Remove(filepath.Join(u.static.StaticAvatarPath, name))
		zap.L().Error("Update avatar error", zap.Uint("user", userID), zap.Error(err))
		return nil, errorx.ErrServerBusy
	}
	zap.L().Info("upload avatar success", zap.Uint("user", userID), zap.String("avatar", avatar))
	return &respond.AvatarRespond{Avatar: avatar}, nil
}

// saveFile 校验 MIME 后写入 dstDir，返回文件名
func saveFile(fileHeader *multipart.FileHeader, dstDir, baseName string, allowedMimes ...string) (string, error) {
	src, err := fileHeader.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	// 读取前 512 字节做 Magic Bytes 校验
	buffer := make([]byte, 512)
	n, err := src.Read(buffer)
	if err != nil && err != io.EOF {
		return "", err
	}
	contentType := http.DetectContentType(buffer[:n])
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	allowed := false
	for _, mime := range allowedMimes {
		if strings.HasPrefix(contentType, mime) {
			allowed = true
			break
		}
	}
	if !allowed {
		return "", errorx.Newf(errorx.CodeInvalidParam, "不支持的文件类型: %s", contentType)
	}

	ext := strings.ToLower(path.Ext(fileHeader.Filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
	default:
		ext = extensionFor(contentType)
	}

	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return "", err
	}
	name := baseName + ext
	out, err := os.Create(filepath.Join(dstDir, name))
	if err != nil {
		return "", err
	}
	defer out.Close()
	if _, err := io.Copy(out, src); err != nil {
		return "", err
	}
	return name, nil
}

func extensionFor(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, "image/png"):
		return ".png"
	case strings.HasPrefix(contentType, "image/gif"):
		return ".gif"
	case strings.HasPrefix(contentType, "image/webp"):
		return ".webp"
	default:
		return ".jpg"
	}
}

// SearchUsers 按资料字段模糊检索可见用户
func (u *userInfoService) SearchUsers(ctx context.Context, req request.SearchUsersRequest) (*respond.SearchUsersRespond, error) {
	page, pageSize := req.Page, req.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = constants.DEFAULT_PAGE_SIZE
	}
	if pageSize > constants.MAX_PAGE_SIZE {
		pageSize = constants.MAX_PAGE_SIZE
	}

	filter := repository.UserFilter{
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Country:   strings.TrimSpace(req.Country),
		City:      strings.TrimSpace(req.City),
		School:    strings.TrimSpace(req.School),
		Employer:  strings.TrimSpace(req.Employer),
	}

	var (
		users []model.UserInfo
		total int64
	)
	err := u.policy.Read(ctx, func(ctx context.Context) (err error) {
		users, total, err = u.users.Search(ctx, filter, page, pageSize)
		return err
	})
	if err != nil {
		zap.L().Error("Search users error", zap.Any("filter", filter), zap.Error(err))
		return nil, errorx.ErrServerBusy
	}

	list := make([]respond.ProfileRespond, 0, len(users))
	for i := range users {
		p := ToProfile(&users[i])
		p.Email = ""
		p.Telephone = ""
		list = append(list, *p)
	}
	return &respond.SearchUsersRespond{Total: total, Page: page, PageSize: pageSize, List: list}, nil
}

func (u *userInfoService) findUser(ctx context.Context, userID uint) (*model.UserInfo, error) {
	var user *model.UserInfo
	err := u.policy.Read(ctx, func(ctx context.Context) (err error) {
		user, err = u.users.FindByID(ctx, userID)
		return err
	})
	if err != nil {
		if errorx.IsNotFound(err) {
			return nil, errorx.ErrUserNotExist
		}
		zap.L().Error("Find user error", zap.Uint("user", userID), zap.Error(err))
		return nil, errorx.ErrServerBusy
	}
	return user, nil
}

// ToProfile 完整资料视图
func ToProfile(user *model.UserInfo) *respond.ProfileRespond {
	return &respond.ProfileRespond{
		ID:        user.ID,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
		Telephone: user.Telephone,
		Gender:    user.Gender,
		Country:   user.Country,
		City:      user.City,
		School:    user.School,
		Employer:  user.Employer,
		Bio:       user.Bio,
		Avatar:    user.Avatar,
		IsVisible: user.IsVisible,
		CreatedAt: user.CreatedAt,
	}
}
