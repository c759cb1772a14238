// Package model 定义数据库实体模型
// 本文件定义用户资料模型，包含可检索的资料字段和认证信息
package model

import (
	"golang.org/x/crypto/bcrypt" // 密码哈希库
	"gorm.io/gorm"
)

// UserInfo 用户资料
// 对应数据库 user_info 表
type UserInfo struct {
	gorm.Model

	FirstName string `gorm:"column:first_name;type:varchar(50);index;not null;comment:名"`
	LastName  string `gorm:"column:last_name;type:varchar(50);index;not null;comment:姓"`

	// Email 登录账号，唯一
	Email     string `gorm:"column:email;type:varchar(100);uniqueIndex;not null;comment:邮箱"`
	Telephone string `gorm:"column:telephone;type:varchar(20);comment:电话"`

	// Gender 0=未设置, 1=男, 2=女
	Gender int8 `gorm:"column:gender;comment:性别"`

	// 以下字段参与资料检索
	Country  string `gorm:"column:country;type:varchar(64);index;comment:国家"`
	City     string `gorm:"column:city;type:varchar(64);index;comment:城市"`
	School   string `gorm:"column:school;type:varchar(128);comment:学校"`
	Employer string `gorm:"column:employer;type:varchar(128);comment:雇主"`

	Bio string `gorm:"column:bio;type:varchar(500);comment:个人简介"`

	// Avatar 头像文件的相对路径，空表示未上传
	Avatar string `gorm:"column:avatar;type:varchar(255);comment:头像"`

	// Password bcrypt 哈希，不存储明文
	Password string `gorm:"column:password;type:varchar(100);not null;comment:密码"`

	// IsVisible 为 false 时不出现在检索结果中
	IsVisible bool `gorm:"column:is_visible;not null;default:true;comment:是否可被检索"`

	// RawPassword 明文密码（不存入数据库），在 BeforeSave 中加密
	RawPassword string `gorm:"-" json:"-"`
}

// TableName 指定表名
func (UserInfo) TableName() string {
	return "user_info"
}

// BeforeSave GORM Hook：创建和更新前把 RawPassword 加密到 Password
func (u *UserInfo) BeforeSave(tx *gorm.DB) error {
	if u.RawPassword != "" {
		hash, err := HashPassword(u.RawPassword)
		if err != nil {
			return err
		}
		u.Password = hash
		u.RawPassword = ""
	}
	return nil
}

// HashPassword bcrypt 哈希明文密码
func HashPassword(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword 校验明文密码
func (u *UserInfo) CheckPassword(plaintext string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(plaintext)) == nil
}

// DisplayName 对外展示的姓名
func (u *UserInfo) DisplayName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}
