package db

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// ErrInvalidCredentials 表示用户名不存在或密码不匹配。
var ErrInvalidCredentials = errors.New("invalid credentials")

// User 是可登录后台的管理员账号。
type User struct {
	gorm.Model
	Username string `gorm:"unique;not null"`
	Password string `gorm:"not null"`
}

// EnsureUser 若用户名与密码均非空且账号不存在，则创建一个 bcrypt 哈希的用户。
// 返回值 created 标记本次是否新建了账号。
func EnsureUser(gdb *gorm.DB, username, password string) (created bool, err error) {
	trimmedUser := strings.TrimSpace(username)
	trimmedPassword := strings.TrimSpace(password)
	if trimmedUser == "" || trimmedPassword == "" {
		return false, nil
	}

	if gdb == nil {
		return false, errors.New("database not initialized")
	}

	var existing User
	err = gdb.Where("username = ?", trimmedUser).First(&existing).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(trimmedPassword), bcrypt.DefaultCost)
	if err != nil {
		return false, err
	}

	if err := gdb.Create(&User{Username: trimmedUser, Password: string(hashed)}).Error; err != nil {
		return false, err
	}
	return true, nil
}

// Authenticate 校验用户名与密码，成功时返回对应账号。
func Authenticate(gdb *gorm.DB, username, password string) (*User, error) {
	var user User
	if err := gdb.Where("username = ?", strings.TrimSpace(username)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}
