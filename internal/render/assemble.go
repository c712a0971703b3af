package render

import (
	"github.com/barebonescms/internal/db"
	"github.com/barebonescms/internal/service"
)

// RegionLister returns the regions declared by a page's template.
type RegionLister interface {
	ForPage(page *db.Page) ([]db.Region, error)
}

// BlockLister returns ordered content blocks linked to a page.
type BlockLister interface {
	BlocksForRegion(region *db.Region, page *db.Page) ([]db.ContentBlock, error)
	PageBlocks(page *db.Page) ([]service.BlockInfo, error)
}

// Assembler 收集页面所有区域的内容块并交给 Renderer 渲染。
type Assembler struct {
	renderer *Renderer
	regions  RegionLister
	blocks   BlockLister
}

// NewAssembler creates an Assembler.
func NewAssembler(renderer *Renderer, regions RegionLister, blocks BlockLister) *Assembler {
	return &Assembler{renderer: renderer, regions: regions, blocks: blocks}
}

// Render 输出一个已解析页面的完整 HTML。
func (a *Assembler) Render(page *db.Page) ([]byte, error) {
	regions, err := a.regions.ForPage(page)
	if err != nil {
		return nil, err
	}

	collected := make([]RegionBlocks, 0, len(regions))
	for i := range regions {
		blocks, err := a.blocks.BlocksForRegion(&regions[i], page)
		if err != nil {
			return nil, err
		}
		collected = append(collected, RegionBlocks{Region: regions[i], Blocks: blocks})
	}

	infos, err := a.blocks.PageBlocks(page)
	if err != nil {
		return nil, err
	}
	pageBlocks := make([]db.ContentBlock, 0, len(infos))
	for _, info := range infos {
		pageBlocks = append(pageBlocks, info.Block)
	}

	return a.renderer.RenderPage(page, collected, pageBlocks)
}
