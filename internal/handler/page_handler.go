package handler

import (
	"net/http"
	"time"

	"github.com/barebonescms/internal/db"
	"github.com/barebonescms/internal/service"
	"github.com/gin-gonic/gin"
)

type pageRequest struct {
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	Body        string `json:"body"`
	TemplateID  uint   `json:"templateId"`
	ParentID    *uint  `json:"parentId"`
	IsPublished bool   `json:"isPublished"`
}

func (r pageRequest) input() service.PageInput {
	return service.PageInput{
		Title:       r.Title,
		Slug:        r.Slug,
		Body:        r.Body,
		TemplateID:  r.TemplateID,
		ParentID:    r.ParentID,
		IsPublished: r.IsPublished,
	}
}

type publishRequest struct {
	Published *bool `json:"published" binding:"required"`
}

// pageJSON 以字段字典的形式输出页面。
func pageJSON(page *db.Page) gin.H {
	return gin.H{
		"id":          page.ID,
		"parentId":    page.ParentID,
		"title":       page.Title,
		"slug":        page.Slug,
		"body":        page.Body,
		"templateId":  page.TemplateID,
		"isPublished": page.IsPublished,
		"isDeleted":   page.IsDeleted,
		"label":       page.Label(),
		"createdAt":   page.CreatedAt.Format(time.RFC3339),
		"updatedAt":   page.UpdatedAt.Format(time.RFC3339),
	}
}

func treeJSON(nodes []service.PageNode) []gin.H {
	out := make([]gin.H, 0, len(nodes))
	for i := range nodes {
		item := pageJSON(&nodes[i].Page)
		item["isLeaf"] = nodes[i].IsLeaf()
		item["children"] = treeJSON(nodes[i].Children)
		out = append(out, item)
	}
	return out
}

// ShowPageIndex 渲染后台页面树
func (a *API) ShowPageIndex(c *gin.Context) {
	tree, err := a.pages.Tree()
	if err != nil {
		c.Error(err)
		a.renderHTML(c, http.StatusInternalServerError, "pages_index.html", gin.H{
			"title": "页面",
			"error": "加载页面树失败",
		})
		return
	}

	a.renderHTML(c, http.StatusOK, "pages_index.html", gin.H{
		"title": "页面",
		"tree":  tree,
	})
}

// ShowPageCreate 渲染新建页面表单
func (a *API) ShowPageCreate(c *gin.Context) {
	a.renderPageForm(c, nil)
}

// ShowPageEdit 渲染编辑页面表单，包含各区域已挂载的内容块
func (a *API) ShowPageEdit(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		c.String(http.StatusNotFound, "404 page not found")
		return
	}

	page, err := a.pages.GetByID(id)
	if err != nil || page.IsDeleted {
		c.String(http.StatusNotFound, "404 page not found")
		return
	}
	a.renderPageForm(c, page)
}

type regionBlocksView struct {
	Region db.Region
	Blocks []service.BlockInfo
}

func (a *API) renderPageForm(c *gin.Context, page *db.Page) {
	title := "新建页面"
	templates, err := a.templates.List()
	if err != nil {
		c.Error(err)
	}
	pages, err := a.pages.ListPages()
	if err != nil {
		c.Error(err)
	}

	data := gin.H{
		"templates":        templates,
		"parents":          pages,
		"blockTypes":       a.blocks.Allowed(),
		"isEdit":           page != nil,
		"page":             page,
		"regionViews":      []regionBlocksView{},
		"selectedTemplate": uint(0),
		"selectedParent":   uint(0),
	}

	if page != nil {
		title = "编辑页面"
		regions, err := a.regions.ForPage(page)
		if err != nil {
			c.Error(err)
		}
		views := make([]regionBlocksView, 0, len(regions))
		for i := range regions {
			infos, err := a.blocks.BlocksInfoForRegion(&regions[i], page)
			if err != nil {
				c.Error(err)
			}
			views = append(views, regionBlocksView{Region: regions[i], Blocks: infos})
		}
		pageBlocks, err := a.blocks.PageBlocks(page)
		if err != nil {
			c.Error(err)
		}
		path, err := a.pages.PathOf(page)
		if err != nil {
			c.Error(err)
		}
		data["selectedTemplate"] = page.TemplateID
		if page.ParentID != nil {
			data["selectedParent"] = *page.ParentID
		}
		data["regionViews"] = views
		data["pageBlocks"] = pageBlocks
		data["viewPath"] = path
	}
	data["title"] = title

	a.renderHTML(c, http.StatusOK, "page_form.html", data)
}

// ListPages 返回所有未删除页面
func (a *API) ListPages(c *gin.Context) {
	pages, err := a.pages.ListPages()
	if err != nil {
		a.respondServiceError(c, err, "获取页面列表失败")
		return
	}

	response := make([]gin.H, 0, len(pages))
	for i := range pages {
		response = append(response, pageJSON(&pages[i]))
	}
	c.JSON(http.StatusOK, gin.H{"pages": response})
}

// PageTree 返回嵌套的页面树
func (a *API) PageTree(c *gin.Context) {
	tree, err := a.pages.Tree()
	if err != nil {
		a.respondServiceError(c, err, "获取页面树失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"tree": treeJSON(tree)})
}

// GetPage 返回单个页面及其访问路径
func (a *API) GetPage(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的页面ID")
		return
	}

	page, err := a.pages.GetByID(id)
	if err != nil {
		a.respondServiceError(c, err, "获取页面失败")
		return
	}

	payload := pageJSON(page)
	if path, err := a.pages.PathOf(page); err == nil {
		payload["path"] = path
	}
	c.JSON(http.StatusOK, gin.H{"page": payload})
}

// CreatePage 创建页面；已发布页面与同级已发布页面 slug 冲突时返回 409
func (a *API) CreatePage(c *gin.Context) {
	var req pageRequest
	if !bindJSON(c, &req, "页面数据格式不正确") {
		return
	}

	page, err := a.pages.CreateNewPage(req.input())
	if err != nil {
		a.respondServiceError(c, err, "创建页面失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "页面创建成功", "page": pageJSON(page)})
}

// UpdatePage 整体更新页面字段
func (a *API) UpdatePage(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的页面ID")
		return
	}

	var req pageRequest
	if !bindJSON(c, &req, "页面数据格式不正确") {
		return
	}

	page, err := a.pages.EditPage(id, req.input())
	if err != nil {
		a.respondServiceError(c, err, "更新页面失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "页面更新成功", "page": pageJSON(page)})
}

// PublishPage 切换页面发布状态
func (a *API) PublishPage(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的页面ID")
		return
	}

	var req publishRequest
	if !bindJSON(c, &req, "请指定发布状态") {
		return
	}

	page, err := a.pages.SetPublished(id, *req.Published)
	if err != nil {
		a.respondServiceError(c, err, "更新发布状态失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "发布状态已更新", "page": pageJSON(page)})
}

// DeletePage 软删除页面
func (a *API) DeletePage(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的页面ID")
		return
	}

	if err := a.pages.SoftDelete(id); err != nil {
		a.respondServiceError(c, err, "删除页面失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "页面已删除"})
}
