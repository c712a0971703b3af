package service

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/barebonescms/internal/db"
	"gorm.io/gorm"
)

var (
	ErrPageNotFound = errors.New("page not found")
	// ErrPathAmbiguous 表示同一层级存在多个匹配的已发布页面，属于数据完整性问题。
	// 它包装了 ErrPageNotFound，只关心“找不到”的调用方无需区分。
	ErrPathAmbiguous = fmt.Errorf("%w: more than one published page matches", ErrPageNotFound)
	ErrSlugConflict  = errors.New("a published page with this slug already exists under the same parent")
	ErrInvalidSlug   = errors.New("slug may only contain letters, digits, '-' and '_'")
	ErrTitleRequired = errors.New("page title is required")
	ErrTitleTooLong  = errors.New("page title is too long")
	ErrInvalidParent = errors.New("invalid parent page")
)

var slugPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

const (
	maxTitleLength = 255
	maxSlugLength  = 100
)

// PageInput 描述创建或整体编辑页面时提交的字段。
type PageInput struct {
	Title       string
	Slug        string
	Body        string
	TemplateID  uint
	ParentID    *uint
	IsPublished bool
}

// PageNode 是后台页面树中的一个节点。
type PageNode struct {
	Page     db.Page
	Children []PageNode
}

// IsLeaf reports whether the node has no active children.
func (n PageNode) IsLeaf() bool {
	return len(n.Children) == 0
}

// PageService resolves request paths to pages and manages the page tree.
type PageService struct {
	db *gorm.DB
}

// NewPageService returns a new PageService instance.
func NewPageService(gdb *gorm.DB) *PageService {
	return &PageService{db: gdb}
}

// ResolvePath 将形如 /about/team/ 的路径解析为唯一的已发布、未删除页面。
// 首段匹配根页面，其余各段逐级匹配子页面；任何一级无匹配或多于一个匹配都会失败。
func (s *PageService) ResolvePath(path string) (*db.Page, error) {
	parts := strings.Split(strings.Trim(path, "/"), "/")

	root, err := s.RootPageBySlug(parts[0])
	if err != nil {
		return nil, err
	}
	if len(parts) == 1 {
		return root, nil
	}

	return s.PublishedChild(root, parts[1:])
}

// RootPageBySlug finds the published, non-deleted root page with the given slug.
func (s *PageService) RootPageBySlug(slug string) (*db.Page, error) {
	query := s.db.Where("parent_id IS NULL AND slug = ? AND is_deleted = ? AND is_published = ?", slug, false, true)
	return findUnique(query)
}

// PublishedChild descends from parent one segment at a time and returns the page
// matching the last segment.
func (s *PageService) PublishedChild(parent *db.Page, segments []string) (*db.Page, error) {
	if len(segments) == 0 {
		return parent, nil
	}

	query := s.db.Where("parent_id = ? AND slug = ? AND is_deleted = ? AND is_published = ?", parent.ID, segments[0], false, true)
	page, err := findUnique(query)
	if err != nil {
		return nil, err
	}
	if len(segments) == 1 {
		return page, nil
	}

	return s.PublishedChild(page, segments[1:])
}

func findUnique(query *gorm.DB) (*db.Page, error) {
	var pages []db.Page
	if err := query.Preload("Template").Order("id asc").Limit(2).Find(&pages).Error; err != nil {
		return nil, err
	}

	switch len(pages) {
	case 0:
		return nil, ErrPageNotFound
	case 1:
		return &pages[0], nil
	default:
		return nil, ErrPathAmbiguous
	}
}

// CheckSlugConflict 判断 (parent, slug) 是否已被另一个已发布页面占用。
// 草稿不参与唯一性检查；excludeID 为正在编辑的页面，不与自身冲突。
func (s *PageService) CheckSlugConflict(slug string, parentID *uint, excludeID uint) (bool, error) {
	return checkSlugConflict(s.db, slug, parentID, excludeID)
}

func checkSlugConflict(tx *gorm.DB, slug string, parentID *uint, excludeID uint) (bool, error) {
	query := whereParent(tx.Model(&db.Page{}), parentID).
		Where("slug = ? AND is_published = ?", slug, true)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func whereParent(query *gorm.DB, parentID *uint) *gorm.DB {
	if parentID == nil {
		return query.Where("parent_id IS NULL")
	}
	return query.Where("parent_id = ?", *parentID)
}

// CreatePage 直接写入页面，不做任何校验。
func (s *PageService) CreatePage(input PageInput) (*db.Page, error) {
	page := db.Page{
		Title:       input.Title,
		Slug:        input.Slug,
		Body:        input.Body,
		TemplateID:  input.TemplateID,
		ParentID:    input.ParentID,
		IsPublished: input.IsPublished,
	}
	if err := s.db.Create(&page).Error; err != nil {
		return nil, translateWriteError(err)
	}
	return &page, nil
}

// CreateNewPage 校验输入后创建页面；发布状态的页面在写入前检查 slug 冲突。
func (s *PageService) CreateNewPage(input PageInput) (*db.Page, error) {
	input, err := normalizePageInput(input)
	if err != nil {
		return nil, err
	}

	var page db.Page
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := ensureTemplateExists(tx, input.TemplateID); err != nil {
			return err
		}
		if input.ParentID != nil {
			if err := ensureActivePage(tx, *input.ParentID); err != nil {
				return err
			}
		}

		// 草稿可以重复使用同一个 slug，只有发布时才需要唯一。
		if input.IsPublished {
			conflict, err := checkSlugConflict(tx, input.Slug, input.ParentID, 0)
			if err != nil {
				return err
			}
			if conflict {
				return ErrSlugConflict
			}
		}

		page = db.Page{
			Title:       input.Title,
			Slug:        input.Slug,
			Body:        input.Body,
			TemplateID:  input.TemplateID,
			ParentID:    input.ParentID,
			IsPublished: input.IsPublished,
		}
		return tx.Create(&page).Error
	})
	if err != nil {
		return nil, translateWriteError(err)
	}

	return s.GetByID(page.ID)
}

// EditPage 整体更新页面字段。结果为发布状态时检查冲突，但排除页面自身。
func (s *PageService) EditPage(id uint, input PageInput) (*db.Page, error) {
	input, err := normalizePageInput(input)
	if err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		var page db.Page
		if err := tx.Where("is_deleted = ?", false).First(&page, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPageNotFound
			}
			return err
		}

		if err := ensureTemplateExists(tx, input.TemplateID); err != nil {
			return err
		}
		if input.ParentID != nil {
			if err := ensureValidParent(tx, id, *input.ParentID); err != nil {
				return err
			}
		}

		if input.IsPublished {
			conflict, err := checkSlugConflict(tx, input.Slug, input.ParentID, id)
			if err != nil {
				return err
			}
			if conflict {
				return ErrSlugConflict
			}
		}

		return tx.Model(&page).
			Select("Title", "Slug", "Body", "TemplateID", "ParentID", "IsPublished").
			Updates(db.Page{
				Title:       input.Title,
				Slug:        input.Slug,
				Body:        input.Body,
				TemplateID:  input.TemplateID,
				ParentID:    input.ParentID,
				IsPublished: input.IsPublished,
			}).Error
	})
	if err != nil {
		return nil, translateWriteError(err)
	}

	return s.GetByID(id)
}

// SetPublished 切换页面的发布状态。
func (s *PageService) SetPublished(id uint, published bool) (*db.Page, error) {
	page, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	if page.IsDeleted {
		return nil, ErrPageNotFound
	}

	input := pageInputFrom(page)
	input.IsPublished = published
	return s.EditPage(id, input)
}

// SoftDelete 标记页面为已删除并撤下发布，不会物理删除记录。
func (s *PageService) SoftDelete(id uint) error {
	result := s.db.Model(&db.Page{}).
		Where("id = ? AND is_deleted = ?", id, false).
		Updates(map[string]any{"is_deleted": true, "is_published": false})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPageNotFound
	}
	return nil
}

// GetByID returns a page with its template and full ancestor chain loaded.
func (s *PageService) GetByID(id uint) (*db.Page, error) {
	var page db.Page
	if err := s.db.Preload("Template").First(&page, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPageNotFound
		}
		return nil, err
	}
	if err := linkAncestors(s.db, []*db.Page{&page}); err != nil {
		return nil, err
	}
	return &page, nil
}

// ListPages returns every page that has not been deleted, each with its ancestor chain.
func (s *PageService) ListPages() ([]db.Page, error) {
	var pages []db.Page
	if err := s.db.Where("is_deleted = ?", false).Order("id asc").Find(&pages).Error; err != nil {
		return nil, err
	}
	refs := make([]*db.Page, len(pages))
	for i := range pages {
		refs[i] = &pages[i]
	}
	if err := linkAncestors(s.db, refs); err != nil {
		return nil, err
	}
	return pages, nil
}

// linkAncestors 为每个页面挂上完整的 Parent 链，已加载的页面直接复用，其余按需查询。
func linkAncestors(tx *gorm.DB, pages []*db.Page) error {
	known := make(map[uint]*db.Page, len(pages))
	for _, page := range pages {
		known[page.ID] = page
	}

	for _, page := range pages {
		current := page
		for depth := 0; current.ParentID != nil && current.Parent == nil; depth++ {
			if depth > maxTreeDepth {
				return ErrInvalidParent
			}
			parent, ok := known[*current.ParentID]
			if !ok {
				var loaded db.Page
				if err := tx.First(&loaded, *current.ParentID).Error; err != nil {
					if errors.Is(err, gorm.ErrRecordNotFound) {
						return ErrPageNotFound
					}
					return err
				}
				parent = &loaded
				known[loaded.ID] = parent
			}
			current.Parent = parent
			current = parent
		}
	}
	return nil
}

// ActiveRootPages 返回所有未删除的根页面，包括草稿。
func (s *PageService) ActiveRootPages() ([]db.Page, error) {
	var pages []db.Page
	if err := s.db.Where("parent_id IS NULL AND is_deleted = ?", false).Order("id asc").Find(&pages).Error; err != nil {
		return nil, err
	}
	return pages, nil
}

// Children returns the active direct children of a page.
func (s *PageService) Children(page *db.Page) ([]db.Page, error) {
	var pages []db.Page
	if err := s.db.Where("parent_id = ? AND is_deleted = ?", page.ID, false).Order("id asc").Find(&pages).Error; err != nil {
		return nil, err
	}
	return pages, nil
}

// Descendants 按层序返回页面下所有未删除的后代。
func (s *PageService) Descendants(page *db.Page) ([]db.Page, error) {
	var result []db.Page
	frontier := []uint{page.ID}
	for len(frontier) > 0 {
		var level []db.Page
		if err := s.db.Where("parent_id IN ? AND is_deleted = ?", frontier, false).Order("id asc").Find(&level).Error; err != nil {
			return nil, err
		}
		frontier = frontier[:0]
		for _, child := range level {
			frontier = append(frontier, child.ID)
		}
		result = append(result, level...)
	}
	return result, nil
}

// IsLeaf reports whether the page has no active children.
func (s *PageService) IsLeaf(page *db.Page) (bool, error) {
	var count int64
	if err := s.db.Model(&db.Page{}).Where("parent_id = ? AND is_deleted = ?", page.ID, false).Count(&count).Error; err != nil {
		return false, err
	}
	return count == 0, nil
}

// Tree 一次性加载所有未删除页面，并组装成以根页面为起点的树。
// 父页面已删除的子树不会出现在结果中。
func (s *PageService) Tree() ([]PageNode, error) {
	var pages []db.Page
	if err := s.db.Where("is_deleted = ?", false).Order("id asc").Find(&pages).Error; err != nil {
		return nil, err
	}

	byParent := make(map[uint][]db.Page)
	var roots []db.Page
	for _, page := range pages {
		if page.ParentID == nil {
			roots = append(roots, page)
			continue
		}
		byParent[*page.ParentID] = append(byParent[*page.ParentID], page)
	}

	var build func(page db.Page) PageNode
	build = func(page db.Page) PageNode {
		node := PageNode{Page: page}
		for _, child := range byParent[page.ID] {
			node.Children = append(node.Children, build(child))
		}
		return node
	}

	nodes := make([]PageNode, 0, len(roots))
	for _, root := range roots {
		nodes = append(nodes, build(root))
	}
	return nodes, nil
}

// PathOf 返回页面的访问路径，与 ResolvePath 互逆，例如 /about/team/。
func (s *PageService) PathOf(page *db.Page) (string, error) {
	segments := []string{page.Slug}
	parentID := page.ParentID
	for depth := 0; parentID != nil; depth++ {
		if depth > maxTreeDepth {
			return "", ErrInvalidParent
		}
		var parent db.Page
		if err := s.db.Select("id", "parent_id", "slug").First(&parent, *parentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return "", ErrPageNotFound
			}
			return "", err
		}
		segments = append([]string{parent.Slug}, segments...)
		parentID = parent.ParentID
	}
	return "/" + strings.Join(segments, "/") + "/", nil
}

// maxTreeDepth bounds ancestor walks in case the stored tree contains a cycle.
const maxTreeDepth = 256

func normalizePageInput(input PageInput) (PageInput, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.Slug = strings.TrimSpace(input.Slug)

	if input.Title == "" {
		return input, ErrTitleRequired
	}
	if len([]rune(input.Title)) > maxTitleLength {
		return input, ErrTitleTooLong
	}
	if len(input.Slug) > maxSlugLength || !slugPattern.MatchString(input.Slug) {
		return input, ErrInvalidSlug
	}
	if input.TemplateID == 0 {
		return input, ErrTemplateNotFound
	}
	return input, nil
}

func pageInputFrom(page *db.Page) PageInput {
	return PageInput{
		Title:       page.Title,
		Slug:        page.Slug,
		Body:        page.Body,
		TemplateID:  page.TemplateID,
		ParentID:    page.ParentID,
		IsPublished: page.IsPublished,
	}
}

func ensureActivePage(tx *gorm.DB, id uint) error {
	var count int64
	if err := tx.Model(&db.Page{}).Where("id = ? AND is_deleted = ?", id, false).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrInvalidParent
	}
	return nil
}

// ensureValidParent 拒绝把页面挂到自身或其后代之下。
func ensureValidParent(tx *gorm.DB, pageID, parentID uint) error {
	if pageID == parentID {
		return ErrInvalidParent
	}
	if err := ensureActivePage(tx, parentID); err != nil {
		return err
	}

	current := &parentID
	for depth := 0; current != nil; depth++ {
		if *current == pageID || depth > maxTreeDepth {
			return ErrInvalidParent
		}
		var ancestor db.Page
		if err := tx.Select("id", "parent_id").First(&ancestor, *current).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvalidParent
			}
			return err
		}
		current = ancestor.ParentID
	}
	return nil
}

func translateWriteError(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrSlugConflict
	}
	return err
}
