package handler

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	_ "golang.org/x/image/webp"
)

const (
	templatesSubdir = "templates"
	partialsSubdir  = "partials"
)

var (
	errUnsupportedTemplate = errors.New("只允许上传 .html 或 .tmpl 模板文件")
	templateExtensions     = map[string]struct{}{".html": {}, ".tmpl": {}}
)

// storeUpload 以 日期-uuid 的形式保存上传文件，返回新文件名。
func storeUpload(c *gin.Context, file *multipart.FileHeader, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	name := fmt.Sprintf("%s-%s%s", time.Now().Format("20060102"), uuid.New().String(), ext)
	if err := c.SaveUploadedFile(file, filepath.Join(dir, name)); err != nil {
		return "", fmt.Errorf("save upload: %w", err)
	}
	return name, nil
}

// storeTemplateFile 把模板文件保存到模板根目录的 subdir 下，返回相对模板根目录的路径。
func (a *API) storeTemplateFile(c *gin.Context, file *multipart.FileHeader, subdir string) (string, error) {
	if _, ok := templateExtensions[strings.ToLower(filepath.Ext(file.Filename))]; !ok {
		return "", errUnsupportedTemplate
	}
	name, err := storeUpload(c, file, filepath.Join(a.templateDir, subdir))
	if err != nil {
		return "", err
	}
	return path.Join(subdir, name), nil
}

// UploadPartial 上传内容块使用的 partial 模板
func (a *API) UploadPartial(c *gin.Context) {
	file, err := c.FormFile("partial")
	if err != nil {
		respondError(c, http.StatusBadRequest, "未找到上传的模板文件")
		return
	}

	rel, err := a.storeTemplateFile(c, file, partialsSubdir)
	if err != nil {
		if errors.Is(err, errUnsupportedTemplate) {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}
		a.respondServiceError(c, err, "保存模板失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "上传成功", "partial": rel})
}

// UploadImage 处理图片上传请求，并返回图片尺寸供图片内容块使用
func (a *API) UploadImage(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "未找到上传的图片", "success": 0})
		return
	}

	contentType := file.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "只允许上传图片文件", "success": 0})
		return
	}

	width, height, err := imageDimensions(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无法识别的图片格式", "success": 0})
		return
	}

	name, err := storeUpload(c, file, a.uploadDir)
	if err != nil {
		c.Error(err)
		logger := a.log(c)
		logger.Error().Err(err).Msg("save image failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "保存文件失败", "success": 0})
		return
	}

	fileURL := path.Join(a.uploadURL, name)
	c.JSON(http.StatusOK, gin.H{
		"success": 1,
		"message": "上传成功",
		"data": gin.H{
			"url":    fileURL,
			"width":  width,
			"height": height,
		},
	})
}

func imageDimensions(file *multipart.FileHeader) (int, int, error) {
	src, err := file.Open()
	if err != nil {
		return 0, 0, err
	}
	defer src.Close()

	cfg, _, err := image.DecodeConfig(src)
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}
