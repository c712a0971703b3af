package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/barebonescms/internal/db"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	sessionUserIDKey   = "user_id"
	sessionUsernameKey = "username"

	loginPath     = "/dashboard/login"
	dashboardHome = "/dashboard/cms/pages"
)

// ShowLoginPage 渲染登录页面
func (a *API) ShowLoginPage(c *gin.Context) {
	a.renderHTML(c, http.StatusOK, "login.html", gin.H{
		"title": "管理员登录",
	})
}

// Login 校验用户名密码并写入会话
func (a *API) Login(c *gin.Context) {
	username := strings.TrimSpace(c.PostForm("username"))
	password := c.PostForm("password")

	user, err := db.Authenticate(a.db, username, password)
	if err != nil {
		if !errors.Is(err, db.ErrInvalidCredentials) {
			logger := a.log(c)
			logger.Error().Err(err).Str("username", username).Msg("login lookup failed")
		}
		a.renderHTML(c, http.StatusUnauthorized, "login.html", gin.H{
			"title":     "管理员登录",
			"error":     "用户名或密码错误",
			"loginName": username,
		})
		return
	}

	session := sessions.Default(c)
	session.Set(sessionUserIDKey, user.ID)
	session.Set(sessionUsernameKey, user.Username)
	if err := session.Save(); err != nil {
		logger := a.log(c)
		logger.Error().Err(err).Msg("save session failed")
		a.renderHTML(c, http.StatusInternalServerError, "login.html", gin.H{
			"title": "管理员登录",
			"error": "会话保存失败",
		})
		return
	}

	c.Redirect(http.StatusFound, dashboardHome)
}

// Logout 处理用户登出
func (a *API) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Save()
	c.Redirect(http.StatusFound, loginPath)
}

// AuthRequired 要求已登录；API 请求返回 401，页面请求跳转到登录页。
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		if session.Get(sessionUserIDKey) == nil {
			if strings.HasPrefix(c.Request.URL.Path, "/dashboard/api") {
				respondError(c, http.StatusUnauthorized, "请先登录")
				c.Abort()
				return
			}
			c.Redirect(http.StatusFound, loginPath)
			c.Abort()
			return
		}
		c.Next()
	}
}

func currentUsername(c *gin.Context) interface{} {
	if _, ok := c.Get(sessions.DefaultKey); !ok {
		return nil
	}
	return sessions.Default(c).Get(sessionUsernameKey)
}
