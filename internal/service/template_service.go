package service

import (
	"errors"
	"strings"

	"github.com/barebonescms/internal/db"
	"gorm.io/gorm"
)

var (
	ErrTemplateNotFound    = errors.New("page template not found")
	ErrTemplateFileMissing = errors.New("template file is required")
)

// TemplateInput 描述页面模板的可编辑字段。
type TemplateInput struct {
	Name         string
	TemplateFile string
}

// TemplateService manages page templates.
type TemplateService struct {
	db *gorm.DB
}

// NewTemplateService creates a TemplateService instance.
func NewTemplateService(gdb *gorm.DB) *TemplateService {
	return &TemplateService{db: gdb}
}

// List returns all templates with their regions.
func (s *TemplateService) List() ([]db.PageTemplate, error) {
	var templates []db.PageTemplate
	if err := s.db.Preload("Regions", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("id asc")
	}).Order("id asc").Find(&templates).Error; err != nil {
		return nil, err
	}
	return templates, nil
}

// GetByID returns a template with its regions.
func (s *TemplateService) GetByID(id uint) (*db.PageTemplate, error) {
	var tpl db.PageTemplate
	if err := s.db.Preload("Regions", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("id asc")
	}).First(&tpl, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}
	return &tpl, nil
}

// ForPage returns the template a page is rendered with.
func (s *TemplateService) ForPage(page *db.Page) (*db.PageTemplate, error) {
	return s.GetByID(page.TemplateID)
}

// Create 保存新模板，TemplateFile 为相对模板根目录的路径。
func (s *TemplateService) Create(input TemplateInput) (*db.PageTemplate, error) {
	input, err := normalizeTemplateInput(input)
	if err != nil {
		return nil, err
	}

	tpl := db.PageTemplate{Name: input.Name, TemplateFile: input.TemplateFile}
	if err := s.db.Create(&tpl).Error; err != nil {
		return nil, err
	}
	return &tpl, nil
}

// Edit 更新模板名称与文件。
func (s *TemplateService) Edit(id uint, input TemplateInput) (*db.PageTemplate, error) {
	input, err := normalizeTemplateInput(input)
	if err != nil {
		return nil, err
	}

	result := s.db.Model(&db.PageTemplate{}).Where("id = ?", id).
		Updates(map[string]any{"name": input.Name, "template_file": input.TemplateFile})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrTemplateNotFound
	}
	return s.GetByID(id)
}

func normalizeTemplateInput(input TemplateInput) (TemplateInput, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.TemplateFile = strings.TrimSpace(input.TemplateFile)
	if input.TemplateFile == "" {
		return input, ErrTemplateFileMissing
	}
	return input, nil
}

func ensureTemplateExists(tx *gorm.DB, id uint) error {
	var count int64
	if err := tx.Model(&db.PageTemplate{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrTemplateNotFound
	}
	return nil
}
