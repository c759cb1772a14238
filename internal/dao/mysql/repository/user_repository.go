package repository

import (
	"context"
	"strings"

	"reconnect_server/internal/model"

	"gorm.io/gorm"
)

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建用户 Repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// FindByID 按主键查找用户
func (r *userRepository) FindByID(ctx context.Context, id uint) (*model.UserInfo, error) {
	var user model.UserInfo
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询用户 id=%d", id)
	}
	return &user, nil
}

// FindByEmail 按邮箱查找用户
func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.UserInfo, error) {
	var user model.UserInfo
	if err := r.db.WithContext(ctx).First(&user, "email = ?", email).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询用户 email=%s", email)
	}
	return &user, nil
}

// FindByIDs 批量查找用户
func (r *userRepository) FindByIDs(ctx context.Context, ids []uint) ([]model.UserInfo, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var users []model.UserInfo
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, wrapDBError(err, "批量查询用户")
	}
	return users, nil
}

// Exists 用户是否存在
func (r *userRepository) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.UserInfo{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, wrapDBErrorf(err, "检查用户 id=%d", id)
	}
	return count > 0, nil
}

// Create 创建用户，邮箱重复时返回 CodeConflict
func (r *userRepository) Create(ctx context.Context, user *model.UserInfo) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return wrapDBError(err, "创建用户")
	}
	return nil
}

// UpdateColumns 只更新指定列，零值也会写入
func (r *userRepository) UpdateColumns(ctx context.Context, id uint, user *model.UserInfo, columns []string) error {
	if len(columns) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Model(&model.UserInfo{}).
		Where("id = ?", id).
		Select(columns).
		Updates(user).Error
	if err != nil {
		return wrapDBErrorf(err, "更新用户资料 id=%d", id)
	}
	return nil
}

// UpdateAvatar 更新头像引用
func (r *userRepository) UpdateAvatar(ctx context.Context, id uint, avatar string) error {
	if err := r.db.WithContext(ctx).Model(&model.UserInfo{}).Where("id = ?", id).Update("avatar", avatar).Error; err != nil {
		return wrapDBErrorf(err, "更新头像 id=%d", id)
	}
	return nil
}

// UpdatePassword 写入新的密码哈希
func (r *userRepository) UpdatePassword(ctx context.Context, id uint, hash string) error {
	if err := r.db.WithContext(ctx).Model(&model.UserInfo{}).Where("id = ?", id).Update("password", hash).Error; err != nil {
		return wrapDBErrorf(err, "更新密码 id=%d", id)
	}
	return nil
}

// DeleteAccount 物理删除用户，邮箱随即可重新注册
// 会话和消息保留，对方的会话列表因关联不到用户而不再展示
func (r *userRepository) DeleteAccount(ctx context.Context, id uint) (int64, error) {
	var affected int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("requester_id = ? OR recipient_id = ?", id, id).Delete(&model.ContactEdge{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&model.Notification{}).Error; err != nil {
			return err
		}
		res := tx.Unscoped().Where("id = ?", id).Delete(&model.UserInfo{})
		if res.Error != nil {
			return res.Error
		}
		affected = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, wrapDBErrorf(err, "注销账号 id=%d", id)
	}
	return affected, nil
}

// Search 模糊检索可见用户
func (r *userRepository) Search(ctx context.Context, filter UserFilter, page, pageSize int) ([]model.UserInfo, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.UserInfo{}).Where("is_visible = ?", true)
	conds := []struct{ column, value string }{
		{"first_name", filter.FirstName},
		{"last_name", filter.LastName},
		{"country", filter.Country},
		{"city", filter.City},
		{"school", filter.School},
		{"employer", filter.Employer},
	}
	for _, c := range conds {
		if c.value != "" {
			query = query.Where(c.column+" LIKE ?", "%"+escapeLike(c.value)+"%")
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, wrapDBError(err, "统计检索结果")
	}

	var users []model.UserInfo
	offset := (page - 1) * pageSize
	if err := query.Order("id ASC").Offset(offset).Limit(pageSize).Find(&users).Error; err != nil {
		return nil, 0, wrapDBError(err, "检索用户")
	}
	return users, total, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike 转义 LIKE 通配符，用户输入按字面匹配
// MySQL 默认转义符为反斜杠
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
