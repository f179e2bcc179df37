// Package builders 提供内置 Node 的配置构建器，import 即注册。
package builders

import (
	"fmt"
	"time"

	"github.com/rushteam/bookrec/config"
	"github.com/rushteam/bookrec/feature"
	"github.com/rushteam/bookrec/filter"
	"github.com/rushteam/bookrec/pipeline"
	"github.com/rushteam/bookrec/pkg/conv"
	"github.com/rushteam/bookrec/postprocess"
	"github.com/rushteam/bookrec/recall"
	"github.com/rushteam/bookrec/rerank"
)

func init() {
	config.Register("recall.fanout", BuildFanoutNode)
	config.Register("recall.neighbor", BuildNeighborNode)
	config.Register("recall.popular", BuildPopularNode)
	config.Register("feature.enrich", BuildEnrichNode)
	config.Register("filter", BuildFilterNode)
	config.Register("rerank.diversity", BuildDiversityNode)
	config.Register("rerank.page", BuildPageNode)
	config.Register("postprocess.explain", BuildExplainNode)
}

func buildSource(sourceMap map[string]interface{}) (recall.Source, error) {
	deps := config.GetDeps()
	sourceType := conv.ConfigGet(sourceMap, "type", "")
	switch sourceType {
	case "neighbor":
		if deps.Ratings == nil || deps.Similarity == nil {
			return nil, fmt.Errorf("neighbor source requires ratings and similarity deps")
		}
		return &recall.NeighborRecall{
			Ratings: deps.Ratings,
			Store:   deps.Similarity,
			Config:  deps.Engine,
		}, nil
	case "popular":
		if deps.Catalog == nil && deps.Store == nil {
			return nil, fmt.Errorf("popular source requires catalog or store dep")
		}
		return &recall.Popular{
			Catalog: deps.Catalog,
			Ratings: deps.Ratings,
			Store:   deps.Store,
			Key:     conv.ConfigGet(sourceMap, "key", ""),
			Limit:   int(conv.ConfigGetInt64(sourceMap, "limit", 0)),
		}, nil
	default:
		return nil, fmt.Errorf("unknown source type: %s", sourceType)
	}
}

func BuildFanoutNode(cfg map[string]interface{}) (pipeline.Node, error) {
	sourcesConfig, ok := cfg["sources"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("sources not found or invalid")
	}
	sources := make([]recall.Source, 0, len(sourcesConfig))
	for _, sc := range sourcesConfig {
		sourceMap, ok := sc.(map[string]interface{})
		if !ok {
			continue
		}
		src, err := buildSource(sourceMap)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}

	fanout := &recall.Fanout{
		Sources:       sources,
		Dedup:         conv.ConfigGet(cfg, "dedup", false),
		MergeStrategy: conv.ConfigGet(cfg, "merge_strategy", "fallback"),
	}
	if sec := conv.ConfigGetInt64(cfg, "timeout", 0); sec > 0 {
		fanout.Timeout = time.Duration(sec) * time.Second
	}
	if n := conv.ConfigGetInt64(cfg, "max_concurrent", 0); n > 0 {
		fanout.MaxConcurrent = int(n)
	}
	return fanout, nil
}

func BuildNeighborNode(cfg map[string]interface{}) (pipeline.Node, error) {
	deps := config.GetDeps()
	if deps.Ratings == nil || deps.Similarity == nil {
		return nil, fmt.Errorf("recall.neighbor requires ratings and similarity deps")
	}
	return &recall.NeighborRecall{
		Ratings: deps.Ratings,
		Store:   deps.Similarity,
		Config:  deps.Engine,
	}, nil
}

func BuildPopularNode(cfg map[string]interface{}) (pipeline.Node, error) {
	deps := config.GetDeps()
	if deps.Catalog == nil && deps.Store == nil {
		return nil, fmt.Errorf("recall.popular requires catalog or store dep")
	}
	return &recall.Popular{
		Catalog: deps.Catalog,
		Ratings: deps.Ratings,
		Store:   deps.Store,
		Key:     conv.ConfigGet(cfg, "key", ""),
		Limit:   int(conv.ConfigGetInt64(cfg, "limit", 0)),
	}, nil
}

func BuildEnrichNode(cfg map[string]interface{}) (pipeline.Node, error) {
	deps := config.GetDeps()
	if deps.Catalog == nil {
		return nil, fmt.Errorf("feature.enrich requires catalog dep")
	}
	return &feature.EnrichNode{
		Catalog:        deps.Catalog,
		FeatureService: deps.Features,
		FeaturePrefix:  conv.ConfigGet(cfg, "feature_prefix", ""),
	}, nil
}

func BuildFilterNode(cfg map[string]interface{}) (pipeline.Node, error) {
	filtersConfig, ok := cfg["filters"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("filters not found or invalid")
	}
	deps := config.GetDeps()

	filters := make([]filter.Filter, 0, len(filtersConfig))
	for _, fc := range filtersConfig {
		filterMap, ok := fc.(map[string]interface{})
		if !ok {
			continue
		}
		filterType := conv.ConfigGet(filterMap, "type", "")
		switch filterType {
		case "domain":
			filters = append(filters, &filter.DomainFilter{})
		case "read":
			if deps.Ratings == nil {
				return nil, fmt.Errorf("read filter requires ratings dep")
			}
			filters = append(filters, &filter.ReadFilter{Ratings: deps.Ratings})
		case "spice":
			filters = append(filters, &filter.SpiceFilter{})
		case "audience":
			filters = append(filters, &filter.AudienceFilter{})
		case "content_warning":
			filters = append(filters, &filter.ContentWarningFilter{
				Threshold: conv.ConfigGet(filterMap, "threshold", 0.0),
			})
		case "tropes":
			filters = append(filters, &filter.TropeFilter{})
		case "suppressed":
			ids := conv.SliceAnyToString(filterMap["book_ids"])
			filters = append(filters, &filter.SuppressedFilter{
				BookIDs: ids,
				Store:   deps.Store,
				Key:     conv.ConfigGet(filterMap, "key", ""),
			})
		case "expression":
			filters = append(filters, &filter.ExpressionFilter{
				Expr: conv.ConfigGet(filterMap, "expr", ""),
			})
		default:
			return nil, fmt.Errorf("unknown filter type: %s", filterType)
		}
	}

	return &filter.FilterNode{Filters: filters}, nil
}

func BuildDiversityNode(cfg map[string]interface{}) (pipeline.Node, error) {
	return &rerank.AuthorDiversity{
		Limit:  int(conv.ConfigGetInt64(cfg, "author_limit", 0)),
		Config: config.GetDeps().Engine,
	}, nil
}

func BuildPageNode(cfg map[string]interface{}) (pipeline.Node, error) {
	return &rerank.PageNode{
		Offset: int(conv.ConfigGetInt64(cfg, "offset", 0)),
		Limit:  int(conv.ConfigGetInt64(cfg, "limit", 0)),
	}, nil
}

func BuildExplainNode(cfg map[string]interface{}) (pipeline.Node, error) {
	deps := config.GetDeps()
	if deps.Ratings == nil || deps.Catalog == nil {
		return nil, fmt.Errorf("postprocess.explain requires ratings and catalog deps")
	}
	return &postprocess.ExplainNode{
		Ratings:         deps.Ratings,
		Catalog:         deps.Catalog,
		MinSharedRating: conv.ConfigGet(cfg, "min_shared_rating", 0.0),
		TopNeighbors:    int(conv.ConfigGetInt64(cfg, "top_neighbors", 0)),
		MaxSharedTitles: int(conv.ConfigGetInt64(cfg, "max_shared_titles", 0)),
	}, nil
}
