package handler

import (
	"net/http"
	"strings"

	"github.com/barebonescms/internal/db"
	"github.com/barebonescms/internal/service"
	"github.com/gin-gonic/gin"
)

type relinkRequest struct {
	PageID   uint  `json:"pageId" binding:"required"`
	RegionID *uint `json:"regionId"`
}

// ShowContentBlockCreate 按注册表中的字段定义渲染内容块表单；region 为 0 表示仅挂到页面。
func (a *API) ShowContentBlockCreate(c *gin.Context) {
	pageID, err := parseUintParam(c, "page")
	if err != nil {
		c.String(http.StatusNotFound, "404 page not found")
		return
	}
	regionID, err := parseOptionalID(c.Param("region"))
	if err != nil {
		c.String(http.StatusNotFound, "404 page not found")
		return
	}

	entry, err := a.blocks.ModelFor(c.Param("type"))
	if err != nil {
		c.String(http.StatusNotFound, "404 page not found")
		return
	}

	page, err := a.pages.GetByID(pageID)
	if err != nil {
		c.String(http.StatusNotFound, "404 page not found")
		return
	}

	var region *db.Region
	if regionID != nil {
		region, err = a.regions.GetByID(*regionID)
		if err != nil || region.TemplateID != page.TemplateID {
			c.String(http.StatusNotFound, "404 page not found")
			return
		}
	}

	a.renderHTML(c, http.StatusOK, "content_block_create.html", gin.H{
		"title":  "新建" + entry.Label,
		"page":   page,
		"region": region,
		"entry":  entry,
	})
}

// ListBlockTypes 返回可挂载的内容块类型及其表单字段
func (a *API) ListBlockTypes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"types": a.blocks.Allowed()})
}

// PageBlocksInfo 返回页面每个区域的内容块以及仅挂在页面上的内容块
func (a *API) PageBlocksInfo(c *gin.Context) {
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

	regions, err := a.regions.ForPage(page)
	if err != nil {
		a.respondServiceError(c, err, "获取区域失败")
		return
	}

	regionPayload := make([]gin.H, 0, len(regions))
	for i := range regions {
		infos, err := a.blocks.BlocksInfoForRegion(&regions[i], page)
		if err != nil {
			a.respondServiceError(c, err, "获取内容块失败")
			return
		}
		item := regionJSON(&regions[i])
		item["blocks"] = infos
		regionPayload = append(regionPayload, item)
	}

	pageBlocks, err := a.blocks.PageBlocks(page)
	if err != nil {
		a.respondServiceError(c, err, "获取内容块失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"regions": regionPayload, "pageBlocks": pageBlocks})
}

// CreateContentBlock 绑定表单到对应类型的内容块，保存并挂到页面（与可选区域）上
func (a *API) CreateContentBlock(c *gin.Context) {
	pageID, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的页面ID")
		return
	}
	regionID, err := parseOptionalID(c.Query("region"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的区域ID")
		return
	}

	blockType := strings.TrimSpace(c.Param("type"))
	entry, err := a.blocks.ModelFor(blockType)
	if err != nil {
		a.respondServiceError(c, err, "创建内容块失败")
		return
	}

	instance := entry.New()
	if err := c.ShouldBind(instance); err != nil {
		respondError(c, http.StatusBadRequest, "内容块数据不完整："+err.Error())
		return
	}

	link, err := a.blocks.CreateAndLink(blockType, instance, pageID, regionID)
	if err != nil {
		a.respondServiceError(c, err, "创建内容块失败")
		return
	}
	a.recorder.IncBlockLink(blockType)

	c.JSON(http.StatusOK, gin.H{
		"message": "内容块已创建",
		"link":    linkJSON(link),
		"block":   service.BlockInfo{LinkID: link.ID, Type: blockType, Block: instance},
	})
}

// RelinkContentBlock 把内容块移动到另一个页面或区域
func (a *API) RelinkContentBlock(c *gin.Context) {
	blockID, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的内容块ID")
		return
	}

	var req relinkRequest
	if !bindJSON(c, &req, "请指定目标页面") {
		return
	}

	link, err := a.blocks.RelinkBlock(strings.TrimSpace(c.Param("type")), blockID, req.PageID, req.RegionID)
	if err != nil {
		a.respondServiceError(c, err, "移动内容块失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "内容块已移动", "link": linkJSON(link)})
}

// UnlinkContentBlock 删除链接，内容块本身保留
func (a *API) UnlinkContentBlock(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的链接ID")
		return
	}

	if err := a.blocks.Unlink(id); err != nil {
		a.respondServiceError(c, err, "移除内容块失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "内容块已移除"})
}

func linkJSON(link *db.ContentBlockLink) gin.H {
	return gin.H{
		"id":          link.ID,
		"pageId":      link.PageID,
		"regionId":    link.RegionID,
		"objectId":    link.ObjectID,
		"contentType": link.ContentType,
	}
}
