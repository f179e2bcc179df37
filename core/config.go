package core

// EngineConfig 是引擎可调参数的配置接口，所有参数外部供给，不在使用点硬编码。
type EngineConfig interface {
	// MinOverlap 计算相似度要求的最小共同评分书数
	MinOverlap() int

	// ShrinkageFactor 显著性加权收缩因子：adjusted = raw * overlap/(overlap+shrinkage)
	ShrinkageFactor() int

	// MaxNeighbors 每用户持久化的相似边上限（TopK 截断）
	MaxNeighbors() int

	// NeighborPoolSize 打分时读取的邻居池大小（比 MaxNeighbors 截断更宽，
	// 但读取上限通常小于持久化上限，默认 100）
	NeighborPoolSize() int

	// MinNeighborsForRec 推荐一本书要求的最少独立邻居数：
	// 单个邻居的意见不足以构成推荐依据
	MinNeighborsForRec() int

	// DiversityAuthorLimit 结果列表中同一作者的书数上限
	DiversityAuthorLimit() int
}

// DefaultEngineConfig 是默认配置实现。
type DefaultEngineConfig struct{}

func (c *DefaultEngineConfig) MinOverlap() int { return 5 }

func (c *DefaultEngineConfig) ShrinkageFactor() int { return 10 }

func (c *DefaultEngineConfig) MaxNeighbors() int { return 200 }

func (c *DefaultEngineConfig) NeighborPoolSize() int { return 100 }

func (c *DefaultEngineConfig) MinNeighborsForRec() int { return 2 }

func (c *DefaultEngineConfig) DiversityAuthorLimit() int { return 3 }

// StaticEngineConfig 是字面量配置实现，便于从 YAML/JSON 配置构建。
// 0 值字段回落到默认值。
type StaticEngineConfig struct {
	Overlap       int `yaml:"min_overlap" json:"min_overlap"`
	Shrinkage     int `yaml:"shrinkage_factor" json:"shrinkage_factor"`
	Neighbors     int `yaml:"max_neighbors" json:"max_neighbors"`
	NeighborPool  int `yaml:"neighbor_pool_size" json:"neighbor_pool_size"`
	MinContrib    int `yaml:"min_neighbors_for_rec" json:"min_neighbors_for_rec"`
	AuthorDiverse int `yaml:"diversity_author_limit" json:"diversity_author_limit"`
}

func (c *StaticEngineConfig) MinOverlap() int {
	if c.Overlap > 0 {
		return c.Overlap
	}
	return 5
}

func (c *StaticEngineConfig) ShrinkageFactor() int {
	if c.Shrinkage > 0 {
		return c.Shrinkage
	}
	return 10
}

func (c *StaticEngineConfig) MaxNeighbors() int {
	if c.Neighbors > 0 {
		return c.Neighbors
	}
	return 200
}

func (c *StaticEngineConfig) NeighborPoolSize() int {
	if c.NeighborPool > 0 {
		return c.NeighborPool
	}
	return 100
}

func (c *StaticEngineConfig) MinNeighborsForRec() int {
	if c.MinContrib > 0 {
		return c.MinContrib
	}
	return 2
}

func (c *StaticEngineConfig) DiversityAuthorLimit() int {
	if c.AuthorDiverse > 0 {
		return c.AuthorDiverse
	}
	return 3
}
