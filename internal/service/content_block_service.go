package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/barebonescms/internal/block"
	"github.com/barebonescms/internal/db"
	"gorm.io/gorm"
)

var (
	ErrUnknownBlockType = errors.New("unknown content block type")
	ErrBlockNotFound    = errors.New("content block not found")
	ErrBlockInvalid     = errors.New("content block name and partial are required")
	ErrRegionMismatch   = errors.New("region does not belong to the page template")
	ErrLinkNotFound     = errors.New("content block link not found")
	ErrBlockIDAssigned  = errors.New("content block id is assigned on save and may not be supplied")
)

// BlockInfo 是后台展示用的内容块信息，包含类型标识与所属链接。
type BlockInfo struct {
	LinkID uint            `json:"linkId"`
	Type   string          `json:"type"`
	Block  db.ContentBlock `json:"block"`
}

// ContentBlockService links registered content block variants to pages and regions.
type ContentBlockService struct {
	db       *gorm.DB
	registry *block.Registry
}

// NewContentBlockService creates a ContentBlockService; a nil registry means block.Default().
func NewContentBlockService(gdb *gorm.DB, registry *block.Registry) *ContentBlockService {
	if registry == nil {
		registry = block.Default()
	}
	return &ContentBlockService{db: gdb, registry: registry}
}

func (s *ContentBlockService) withTx(tx *gorm.DB) *ContentBlockService {
	return &ContentBlockService{db: tx, registry: s.registry}
}

// Allowed returns the linkable block variants in registration order.
func (s *ContentBlockService) Allowed() []block.Entry {
	return s.registry.Allowed()
}

// ModelFor resolves a type tag against the registry.
func (s *ContentBlockService) ModelFor(blockType string) (block.Entry, error) {
	entry, ok := s.registry.Lookup(blockType)
	if !ok {
		return block.Entry{}, fmt.Errorf("%w: %q", ErrUnknownBlockType, blockType)
	}
	return entry, nil
}

// GetBlock loads a block instance of the given type.
func (s *ContentBlockService) GetBlock(blockType string, id uint) (db.ContentBlock, error) {
	entry, err := s.ModelFor(blockType)
	if err != nil {
		return nil, err
	}

	instance := entry.New()
	if err := s.db.First(instance, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBlockNotFound
		}
		return nil, err
	}
	return instance, nil
}

// CreateBlock 保存内容块实例，实例类型必须与 blockType 对应的注册项一致。
func (s *ContentBlockService) CreateBlock(blockType string, b db.ContentBlock) error {
	if err := s.checkType(blockType, b); err != nil {
		return err
	}
	if b.BlockID() != 0 {
		return ErrBlockIDAssigned
	}
	if strings.TrimSpace(b.BlockName()) == "" || strings.TrimSpace(b.BlockPartial()) == "" {
		return ErrBlockInvalid
	}
	return s.db.Create(b).Error
}

// LinkBlock 把已保存的内容块挂到页面（以及可选的区域）上。
// 区域必须属于页面当前使用的模板。
func (s *ContentBlockService) LinkBlock(b db.ContentBlock, pageID uint, regionID *uint, blockType string) (*db.ContentBlockLink, error) {
	if err := s.checkType(blockType, b); err != nil {
		return nil, err
	}
	if err := s.checkTarget(pageID, regionID); err != nil {
		return nil, err
	}
	if _, err := s.GetBlock(blockType, b.BlockID()); err != nil {
		return nil, err
	}

	link := db.ContentBlockLink{
		PageID:      pageID,
		RegionID:    regionID,
		ObjectID:    b.BlockID(),
		ContentType: blockType,
	}
	if err := s.db.Create(&link).Error; err != nil {
		return nil, err
	}
	return &link, nil
}

// CreateAndLink 在同一事务内保存内容块并建立链接。
func (s *ContentBlockService) CreateAndLink(blockType string, b db.ContentBlock, pageID uint, regionID *uint) (*db.ContentBlockLink, error) {
	var link *db.ContentBlockLink
	err := s.db.Transaction(func(tx *gorm.DB) error {
		svc := s.withTx(tx)
		if err := svc.checkTarget(pageID, regionID); err != nil {
			return err
		}
		if err := svc.CreateBlock(blockType, b); err != nil {
			return err
		}
		created, err := svc.LinkBlock(b, pageID, regionID, blockType)
		if err != nil {
			return err
		}
		link = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return link, nil
}

// RelinkBlock 把内容块已有的链接移动到另一个页面或区域。
func (s *ContentBlockService) RelinkBlock(blockType string, blockID, pageID uint, regionID *uint) (*db.ContentBlockLink, error) {
	if _, err := s.ModelFor(blockType); err != nil {
		return nil, err
	}
	if err := s.checkTarget(pageID, regionID); err != nil {
		return nil, err
	}

	var link db.ContentBlockLink
	if err := s.db.Where("object_id = ? AND content_type = ?", blockID, blockType).Order("id asc").First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}

	if err := s.db.Model(&link).Select("PageID", "RegionID").
		Updates(db.ContentBlockLink{PageID: pageID, RegionID: regionID}).Error; err != nil {
		return nil, err
	}
	link.PageID = pageID
	link.RegionID = regionID
	return &link, nil
}

// Unlink removes a link; the block instance itself is kept.
func (s *ContentBlockService) Unlink(linkID uint) error {
	result := s.db.Delete(&db.ContentBlockLink{}, linkID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrLinkNotFound
	}
	return nil
}

// BlocksForRegion 返回挂在 (region, page) 上的内容块。
// 先按链接创建顺序，再按内容块的 Order 稳定排序，未设置 Order 的排在最后。
func (s *ContentBlockService) BlocksForRegion(region *db.Region, page *db.Page) ([]db.ContentBlock, error) {
	infos, err := s.BlocksInfoForRegion(region, page)
	if err != nil {
		return nil, err
	}
	blocks := make([]db.ContentBlock, 0, len(infos))
	for _, info := range infos {
		blocks = append(blocks, info.Block)
	}
	return blocks, nil
}

// BlocksInfoForRegion is BlocksForRegion with the link id and type tag of every block.
func (s *ContentBlockService) BlocksInfoForRegion(region *db.Region, page *db.Page) ([]BlockInfo, error) {
	return s.resolveLinks(s.db.Where("region_id = ? AND page_id = ?", region.ID, page.ID))
}

// PageBlocks returns blocks linked to the page without a region.
func (s *ContentBlockService) PageBlocks(page *db.Page) ([]BlockInfo, error) {
	return s.resolveLinks(s.db.Where("region_id IS NULL AND page_id = ?", page.ID))
}

func (s *ContentBlockService) resolveLinks(query *gorm.DB) ([]BlockInfo, error) {
	var links []db.ContentBlockLink
	if err := query.Order("id asc").Find(&links).Error; err != nil {
		return nil, err
	}

	infos := make([]BlockInfo, 0, len(links))
	for _, link := range links {
		instance, err := s.GetBlock(link.ContentType, link.ObjectID)
		if err != nil {
			return nil, fmt.Errorf("resolve content block link %d: %w", link.ID, err)
		}
		infos = append(infos, BlockInfo{LinkID: link.ID, Type: link.ContentType, Block: instance})
	}

	sort.SliceStable(infos, func(i, j int) bool {
		return orderLess(infos[i].Block.BlockOrder(), infos[j].Block.BlockOrder())
	})
	return infos, nil
}

func orderLess(a, b *int) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	default:
		return *a < *b
	}
}

func (s *ContentBlockService) checkType(blockType string, b db.ContentBlock) error {
	if _, err := s.ModelFor(blockType); err != nil {
		return err
	}
	actual, ok := s.registry.TypeOf(b)
	if !ok || actual != blockType {
		return fmt.Errorf("%w: instance is not a %q block", ErrUnknownBlockType, blockType)
	}
	return nil
}

func (s *ContentBlockService) checkTarget(pageID uint, regionID *uint) error {
	var page db.Page
	if err := s.db.First(&page, pageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPageNotFound
		}
		return err
	}
	if regionID == nil {
		return nil
	}

	var region db.Region
	if err := s.db.First(&region, *regionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRegionNotFound
		}
		return err
	}
	if region.TemplateID != page.TemplateID {
		return ErrRegionMismatch
	}
	return nil
}
