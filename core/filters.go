package core

import (
	"fmt"
	"strings"
)

// RecommendationFilters 是请求级的内容过滤条件。
// 在进入核心链路前做边界校验（Validate）；核心链路内部不再产生校验错误。
type RecommendationFilters struct {
	// SpiceMin / SpiceMax 辣度区间 0-5；nil 表示不限。
	// 辣度未知的书在任一区间条件下一律排除。
	SpiceMin *int `yaml:"spice_min" json:"spice_min"`
	SpiceMax *int `yaml:"spice_max" json:"spice_max"`

	// IsYA 三态：nil 不限，否则与书籍 IsYA 做相等匹配
	IsYA *bool `yaml:"is_ya" json:"is_ya"`

	// ExcludeWhyChoose 排除内容预警书：标记为真且置信度 >= 0.5 时排除
	ExcludeWhyChoose bool `yaml:"exclude_why_choose" json:"exclude_why_choose"`

	// IncludeTropes 命中任一标签则保留（大小写不敏感）
	IncludeTropes []string `yaml:"include_tropes" json:"include_tropes"`

	// ExcludeTropes 命中任一标签则剔除（大小写不敏感）
	ExcludeTropes []string `yaml:"exclude_tropes" json:"exclude_tropes"`

	// Expression 可选的 CEL 表达式过滤，例如
	// `item.features["confidence"] > 0.1 && label.recall_source != null`
	Expression string `yaml:"expression" json:"expression"`
}

// Validate 校验过滤条件（契约违规在边界报错，不进入核心链路）。
func (f *RecommendationFilters) Validate() error {
	if f == nil {
		return nil
	}
	if f.SpiceMin != nil && (*f.SpiceMin < 0 || *f.SpiceMin > 5) {
		return NewDomainError(ModuleEngine, ErrorCodeInvalidInput,
			fmt.Sprintf("filters: spice_min %d out of range [0,5]", *f.SpiceMin))
	}
	if f.SpiceMax != nil && (*f.SpiceMax < 0 || *f.SpiceMax > 5) {
		return NewDomainError(ModuleEngine, ErrorCodeInvalidInput,
			fmt.Sprintf("filters: spice_max %d out of range [0,5]", *f.SpiceMax))
	}
	if f.SpiceMin != nil && f.SpiceMax != nil && *f.SpiceMin > *f.SpiceMax {
		return NewDomainError(ModuleEngine, ErrorCodeInvalidInput,
			fmt.Sprintf("filters: spice_min %d > spice_max %d", *f.SpiceMin, *f.SpiceMax))
	}
	return nil
}

// NormalizedIncludeTropes 返回小写化的包含标签集合。
func (f *RecommendationFilters) NormalizedIncludeTropes() []string {
	return normalizeTropes(f.IncludeTropes)
}

// NormalizedExcludeTropes 返回小写化的排除标签集合。
func (f *RecommendationFilters) NormalizedExcludeTropes() []string {
	return normalizeTropes(f.ExcludeTropes)
}

func normalizeTropes(tropes []string) []string {
	if len(tropes) == 0 {
		return nil
	}
	out := make([]string, 0, len(tropes))
	for _, t := range tropes {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
