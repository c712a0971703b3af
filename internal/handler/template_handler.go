package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/barebonescms/internal/db"
	"github.com/barebonescms/internal/service"
	"github.com/gin-gonic/gin"
)

type templateRequest struct {
	Name         string `json:"name"`
	TemplateFile string `json:"templateFile"`
}

type regionRequest struct {
	Name       string `json:"name" form:"name"`
	BlockName  string `json:"blockName" form:"block_name"`
	TemplateID uint   `json:"templateId" form:"template_id"`
}

func templateJSON(tpl *db.PageTemplate) gin.H {
	regions := make([]gin.H, 0, len(tpl.Regions))
	for i := range tpl.Regions {
		regions = append(regions, regionJSON(&tpl.Regions[i]))
	}
	return gin.H{
		"id":           tpl.ID,
		"name":         tpl.Name,
		"displayName":  tpl.DisplayName(),
		"templateFile": tpl.TemplateFile,
		"regions":      regions,
	}
}

func regionJSON(region *db.Region) gin.H {
	return gin.H{
		"id":         region.ID,
		"name":       region.Name,
		"blockName":  region.BlockName,
		"templateId": region.TemplateID,
	}
}

// ShowTemplateCreate 渲染上传页面模板的表单
func (a *API) ShowTemplateCreate(c *gin.Context) {
	a.renderHTML(c, http.StatusOK, "template_create.html", gin.H{
		"title": "新建模板",
	})
}

// ShowRegionCreate 渲染新建区域表单；可通过 template_id 与 page_id 预选模板并在完成后返回页面
func (a *API) ShowRegionCreate(c *gin.Context) {
	templates, err := a.templates.List()
	if err != nil {
		c.Error(err)
	}

	a.renderHTML(c, http.StatusOK, "region_create.html", gin.H{
		"title":      "新建区域",
		"templates":  templates,
		"templateId": strings.TrimSpace(c.Query("template_id")),
		"pageId":     strings.TrimSpace(c.Query("page_id")),
	})
}

// ListTemplates 返回模板及其区域
func (a *API) ListTemplates(c *gin.Context) {
	templates, err := a.templates.List()
	if err != nil {
		a.respondServiceError(c, err, "获取模板列表失败")
		return
	}

	response := make([]gin.H, 0, len(templates))
	for i := range templates {
		response = append(response, templateJSON(&templates[i]))
	}
	c.JSON(http.StatusOK, gin.H{"templates": response})
}

// CreateTemplate 接收 multipart 表单：上传 template_file 文件，或直接填写模板根目录下的相对路径
func (a *API) CreateTemplate(c *gin.Context) {
	input := service.TemplateInput{
		Name:         c.PostForm("name"),
		TemplateFile: c.PostForm("template_path"),
	}

	if file, err := c.FormFile("template_file"); err == nil {
		rel, err := a.storeTemplateFile(c, file, templatesSubdir)
		if err != nil {
			if errors.Is(err, errUnsupportedTemplate) {
				respondError(c, http.StatusBadRequest, err.Error())
				return
			}
			a.respondServiceError(c, err, "保存模板文件失败")
			return
		}
		input.TemplateFile = rel
	}

	tpl, err := a.templates.Create(input)
	if err != nil {
		a.respondServiceError(c, err, "创建模板失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "模板创建成功", "template": templateJSON(tpl)})
}

// UpdateTemplate 修改模板名称或文件路径
func (a *API) UpdateTemplate(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的模板ID")
		return
	}

	var req templateRequest
	if !bindJSON(c, &req, "模板数据格式不正确") {
		return
	}

	tpl, err := a.templates.Edit(id, service.TemplateInput{Name: req.Name, TemplateFile: req.TemplateFile})
	if err != nil {
		a.respondServiceError(c, err, "更新模板失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "模板更新成功", "template": templateJSON(tpl)})
}

// ListRegions 返回某个模板的区域
func (a *API) ListRegions(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的模板ID")
		return
	}

	if _, err := a.templates.GetByID(id); err != nil {
		a.respondServiceError(c, err, "获取模板失败")
		return
	}

	regions, err := a.regions.ForTemplate(id)
	if err != nil {
		a.respondServiceError(c, err, "获取区域列表失败")
		return
	}

	response := make([]gin.H, 0, len(regions))
	for i := range regions {
		response = append(response, regionJSON(&regions[i]))
	}
	c.JSON(http.StatusOK, gin.H{"regions": response})
}

// CreateRegion 为模板新增区域
func (a *API) CreateRegion(c *gin.Context) {
	var req regionRequest
	if err := c.ShouldBind(&req); err != nil {
		respondError(c, http.StatusBadRequest, "区域数据格式不正确")
		return
	}

	region, err := a.regions.Create(req.Name, req.BlockName, req.TemplateID)
	if err != nil {
		a.respondServiceError(c, err, "创建区域失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "区域创建成功", "region": regionJSON(region)})
}
