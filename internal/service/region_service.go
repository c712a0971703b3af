package service

import (
	"errors"
	"regexp"
	"strings"

	"github.com/barebonescms/internal/db"
	"gorm.io/gorm"
)

var (
	ErrRegionNotFound    = errors.New("region not found")
	ErrRegionNameMissing = errors.New("region name is required")
	ErrInvalidBlockName  = errors.New("block name must be a valid template identifier")
)

// blockNamePattern 限定 BlockName 可直接在模板中以 {{ .main }} 的形式引用。
var blockNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// 页面渲染上下文中已占用的键，区域不能使用。
var reservedBlockNames = map[string]struct{}{
	"page":        {},
	"body":        {},
	"regions":     {},
	"page_blocks": {},
}

// RegionService manages the regions declared by page templates.
type RegionService struct {
	db *gorm.DB
}

// NewRegionService creates a RegionService instance.
func NewRegionService(gdb *gorm.DB) *RegionService {
	return &RegionService{db: gdb}
}

// Create adds a region to a template.
func (s *RegionService) Create(name, blockName string, templateID uint) (*db.Region, error) {
	name = strings.TrimSpace(name)
	blockName = strings.TrimSpace(blockName)
	if name == "" {
		return nil, ErrRegionNameMissing
	}
	if !blockNamePattern.MatchString(blockName) {
		return nil, ErrInvalidBlockName
	}
	if _, reserved := reservedBlockNames[blockName]; reserved {
		return nil, ErrInvalidBlockName
	}
	if err := ensureTemplateExists(s.db, templateID); err != nil {
		return nil, err
	}

	region := db.Region{Name: name, BlockName: blockName, TemplateID: templateID}
	if err := s.db.Create(&region).Error; err != nil {
		return nil, err
	}
	return &region, nil
}

// GetByID returns a single region.
func (s *RegionService) GetByID(id uint) (*db.Region, error) {
	var region db.Region
	if err := s.db.First(&region, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRegionNotFound
		}
		return nil, err
	}
	return &region, nil
}

// ForTemplate returns a template's regions in creation order.
func (s *RegionService) ForTemplate(templateID uint) ([]db.Region, error) {
	var regions []db.Region
	if err := s.db.Where("template_id = ?", templateID).Order("id asc").Find(&regions).Error; err != nil {
		return nil, err
	}
	return regions, nil
}

// ForPage returns the regions of the page's template.
func (s *RegionService) ForPage(page *db.Page) ([]db.Region, error) {
	return s.ForTemplate(page.TemplateID)
}
