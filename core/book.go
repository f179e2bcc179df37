package core

import "context"

// Book 是书目中的一本书（对本引擎只读）。
// 归属于外部书目系统；这里只保留打分、过滤与解释所需的字段。
type Book struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Author string `json:"author"`

	CoverURL       string  `json:"cover_url,omitempty"`
	SeriesName     string  `json:"series_name,omitempty"`
	SeriesPosition float64 `json:"series_position,omitempty"`

	// PublicationYear 出版年份；0 表示未知
	PublicationYear int `json:"publication_year,omitempty"`

	// SpiceLevel 辣度 0-5；nil 表示未知。
	// 区间过滤时未知辣度一律排除，不做静默放行。
	SpiceLevel *int `json:"spice_level,omitempty"`

	// IsYA 是否青少年向（YA）；nil 表示未知（三态）
	IsYA *bool `json:"is_ya,omitempty"`

	// Tags 是 trope 标签 slug 集合（小写）
	Tags []string `json:"tags,omitempty"`

	// IsWhyChoose 内容预警标记及其置信度（软阈值，而非硬布尔）
	IsWhyChoose         bool    `json:"is_why_choose,omitempty"`
	WhyChooseConfidence float64 `json:"why_choose_confidence,omitempty"`

	// IsRomantasy 是否属于本引擎的推荐域
	IsRomantasy bool `json:"is_romantasy"`

	// RomantasyConfidence 书目置信度，兼作热门度代理（冷启动排序首键）
	RomantasyConfidence float64 `json:"romantasy_confidence,omitempty"`
}

// HasTag 检查标签（大小写不敏感由调用方保证：Tags 存 slug 小写）。
func (b *Book) HasTag(slug string) bool {
	for _, t := range b.Tags {
		if t == slug {
			return true
		}
	}
	return false
}

// BookCatalog 是书目的领域接口。
//
// 设计原则：
//   - 定义在领域层（core），由基础设施层（catalog）实现
//   - 引擎不拥有书目存储，只消费书籍属性
//
// 实现：
//   - catalog.StoreCatalog（基于 core.Store + 热门 ZSET）
//   - catalog.MemoryCatalog（测试/原型）
type BookCatalog interface {
	// Name 返回书目后端名称（用于日志/监控）
	Name() string

	// GetBook 获取单本书；不存在时返回 NOT_FOUND
	GetBook(ctx context.Context, bookID string) (*Book, error)

	// GetBooks 批量获取（推荐使用，避免打分/解释环节的 N+1 查询）。
	// 不存在的 ID 从结果中缺省，不报错。
	GetBooks(ctx context.Context, bookIDs []string) (map[string]*Book, error)

	// ListPopular 按热门度返回推荐域内的书：
	// RomantasyConfidence 降序，其次 PublicationYear 降序。
	ListPopular(ctx context.Context, limit int) ([]*Book, error)
}
