package recall

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/rushteam/bookrec/core"
)

// StoreRatingsAdapter 是基于 core.Store 的评分数据适配器，
// 实现 core.RatingSource 与 core.RatingFeedback 接口。
// 从 Redis/MySQL 等存储中读取评分数据。
//
// 存储布局：
//
//	用户评分表：{KeyPrefix}:user:{userID} → JSON map[bookID]rating（含哨兵 0 行）
//	书籍倒排表：{KeyPrefix}:book:{bookID} → JSON map[userID]rating
//	数据共享用户：{KeyPrefix}:sharing → JSON []userID（已授权参与计算）
//	反馈来源：  {KeyPrefix}:feedback:{userID}:{bookID} → source
type StoreRatingsAdapter struct {
	store core.Store

	// KeyPrefix 存储 key 前缀，默认 "ratings"
	KeyPrefix string
}

// NewStoreRatingsAdapter 创建一个基于 core.Store 的评分适配器。
func NewStoreRatingsAdapter(s core.Store, keyPrefix string) *StoreRatingsAdapter {
	if keyPrefix == "" {
		keyPrefix = "ratings"
	}
	return &StoreRatingsAdapter{
		store:     s,
		KeyPrefix: keyPrefix,
	}
}

func (a *StoreRatingsAdapter) Name() string {
	return "store_ratings_adapter"
}

func (a *StoreRatingsAdapter) userKey(userID string) string {
	return a.KeyPrefix + ":user:" + userID
}

func (a *StoreRatingsAdapter) bookKey(bookID string) string {
	return a.KeyPrefix + ":book:" + bookID
}

// getUserDoc 读取用户评分文档（含哨兵行），key 不存在返回空 map。
func (a *StoreRatingsAdapter) getUserDoc(ctx context.Context, userID string) (map[string]float64, error) {
	data, err := a.store.Get(ctx, a.userKey(userID))
	if err != nil {
		if core.IsStoreNotFound(err) {
			return make(map[string]float64), nil
		}
		return nil, err
	}

	var doc map[string]float64
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// GetRatings 实现 core.RatingSource 接口，只返回有效评分（>0）。
func (a *StoreRatingsAdapter) GetRatings(ctx context.Context, userID string) (map[string]float64, error) {
	doc, err := a.getUserDoc(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := make(map[string]float64, len(doc))
	for bookID, rating := range doc {
		if rating > core.SentinelRating {
			result[bookID] = rating
		}
	}
	return result, nil
}

// GetRatedBookIDs 实现 core.RatingSource 接口，返回所有出现过评分行的书（含哨兵行）。
func (a *StoreRatingsAdapter) GetRatedBookIDs(ctx context.Context, userID string) ([]string, error) {
	doc, err := a.getUserDoc(ctx, userID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(doc))
	for bookID := range doc {
		ids = append(ids, bookID)
	}
	sort.Strings(ids)
	return ids, nil
}

// getSharingUsers 读取已授权共享数据的用户集合。
func (a *StoreRatingsAdapter) getSharingUsers(ctx context.Context) (map[string]bool, error) {
	data, err := a.store.Get(ctx, a.KeyPrefix+":sharing")
	if err != nil {
		if core.IsStoreNotFound(err) {
			return make(map[string]bool), nil
		}
		return nil, err
	}

	var users []string
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, err
	}

	set := make(map[string]bool, len(users))
	for _, u := range users {
		set[u] = true
	}
	return set, nil
}

// GetEligibleUsers 实现 core.RatingSource 接口：
// 已授权共享数据且有效评分数 >= minRatings 的用户。
func (a *StoreRatingsAdapter) GetEligibleUsers(ctx context.Context, minRatings int) ([]string, error) {
	sharing, err := a.getSharingUsers(ctx)
	if err != nil {
		return nil, err
	}
	if len(sharing) == 0 {
		return []string{}, nil
	}

	userIDs := make([]string, 0, len(sharing))
	keys := make([]string, 0, len(sharing))
	for userID := range sharing {
		userIDs = append(userIDs, userID)
		keys = append(keys, a.userKey(userID))
	}

	docs, err := a.store.BatchGet(ctx, keys)
	if err != nil {
		return nil, err
	}

	result := make([]string, 0, len(userIDs))
	for i, userID := range userIDs {
		data, ok := docs[keys[i]]
		if !ok {
			continue
		}
		var doc map[string]float64
		if err := json.Unmarshal(data, &doc); err != nil {
			continue
		}
		valid := 0
		for _, rating := range doc {
			if rating > core.SentinelRating {
				valid++
			}
		}
		if valid >= minRatings {
			result = append(result, userID)
		}
	}
	sort.Strings(result)
	return result, nil
}

// GetCandidateUsers 实现 core.RatingSource 接口：
// 通过书籍倒排表找出与目标用户共享 >= minShared 本书的其他授权用户。
// 只查目标用户评过的书，避免全库扫描。
func (a *StoreRatingsAdapter) GetCandidateUsers(ctx context.Context, userID string, bookIDs []string, minShared int) ([]string, error) {
	if len(bookIDs) == 0 {
		return []string{}, nil
	}

	sharing, err := a.getSharingUsers(ctx)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(bookIDs))
	for _, bookID := range bookIDs {
		keys = append(keys, a.bookKey(bookID))
	}

	docs, err := a.store.BatchGet(ctx, keys)
	if err != nil {
		return nil, err
	}

	shared := make(map[string]int)
	for _, data := range docs {
		var raters map[string]float64
		if err := json.Unmarshal(data, &raters); err != nil {
			continue
		}
		for raterID, rating := range raters {
			if raterID == userID || rating <= core.SentinelRating {
				continue
			}
			if !sharing[raterID] {
				continue
			}
			shared[raterID]++
		}
	}

	result := make([]string, 0, len(shared))
	for raterID, count := range shared {
		if count >= minShared {
			result = append(result, raterID)
		}
	}
	sort.Strings(result)
	return result, nil
}

// GetNeighborRatings 实现 core.RatingSource 接口：
// 一次批量取齐所有邻居评分，按书分组返回。
// 只读取已授权共享的邻居，撤回共享后评分立即对他人不可见。
func (a *StoreRatingsAdapter) GetNeighborRatings(ctx context.Context, neighborIDs []string, excludeBookIDs []string) (map[string]map[string]float64, error) {
	if len(neighborIDs) == 0 {
		return make(map[string]map[string]float64), nil
	}

	excluded := make(map[string]bool, len(excludeBookIDs))
	for _, bookID := range excludeBookIDs {
		excluded[bookID] = true
	}

	sharing, err := a.getSharingUsers(ctx)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(neighborIDs))
	for _, neighborID := range neighborIDs {
		keys = append(keys, a.userKey(neighborID))
	}

	docs, err := a.store.BatchGet(ctx, keys)
	if err != nil {
		return nil, err
	}

	result := make(map[string]map[string]float64)
	for i, neighborID := range neighborIDs {
		if !sharing[neighborID] {
			continue
		}
		data, ok := docs[keys[i]]
		if !ok {
			continue
		}
		var doc map[string]float64
		if err := json.Unmarshal(data, &doc); err != nil {
			continue
		}
		for bookID, rating := range doc {
			if excluded[bookID] || rating <= core.SentinelRating {
				continue
			}
			if result[bookID] == nil {
				result[bookID] = make(map[string]float64)
			}
			result[bookID][neighborID] = rating
		}
	}
	return result, nil
}

// GetHighRatedBookIDs 实现 core.RatingSource 接口：
// 批量获取一组用户评分 >= minRating 的书。
func (a *StoreRatingsAdapter) GetHighRatedBookIDs(ctx context.Context, userIDs []string, minRating float64) (map[string][]string, error) {
	if len(userIDs) == 0 {
		return make(map[string][]string), nil
	}

	keys := make([]string, 0, len(userIDs))
	for _, userID := range userIDs {
		keys = append(keys, a.userKey(userID))
	}

	docs, err := a.store.BatchGet(ctx, keys)
	if err != nil {
		return nil, err
	}

	result := make(map[string][]string, len(userIDs))
	for i, userID := range userIDs {
		data, ok := docs[keys[i]]
		if !ok {
			continue
		}
		var doc map[string]float64
		if err := json.Unmarshal(data, &doc); err != nil {
			continue
		}
		books := make([]string, 0)
		for bookID, rating := range doc {
			if rating >= minRating && rating > core.SentinelRating {
				books = append(books, bookID)
			}
		}
		sort.Strings(books)
		result[userID] = books
	}
	return result, nil
}

// HasRating 实现 core.RatingFeedback 接口：是否已存在评分行（含哨兵行）。
func (a *StoreRatingsAdapter) HasRating(ctx context.Context, userID, bookID string) (bool, error) {
	doc, err := a.getUserDoc(ctx, userID)
	if err != nil {
		return false, err
	}
	_, ok := doc[bookID]
	return ok, nil
}

// RecordSentinel 实现 core.RatingFeedback 接口：写入哨兵评分行（rating=0）。
// 幂等：已有评分行时不覆盖，直接返回。
func (a *StoreRatingsAdapter) RecordSentinel(ctx context.Context, userID, bookID, source string) error {
	doc, err := a.getUserDoc(ctx, userID)
	if err != nil {
		return err
	}
	if _, ok := doc[bookID]; ok {
		return nil
	}

	doc[bookID] = core.SentinelRating
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	if err := a.store.Set(ctx, a.userKey(userID), data); err != nil {
		return err
	}

	// 倒排表同步写入哨兵行，保证两侧视图一致
	bookData, err := a.store.Get(ctx, a.bookKey(bookID))
	raters := make(map[string]float64)
	if err == nil {
		if uerr := json.Unmarshal(bookData, &raters); uerr != nil {
			raters = make(map[string]float64)
		}
	} else if !core.IsStoreNotFound(err) {
		return err
	}
	raters[userID] = core.SentinelRating
	bookData, err = json.Marshal(raters)
	if err != nil {
		return err
	}
	if err := a.store.Set(ctx, a.bookKey(bookID), bookData); err != nil {
		return err
	}

	if source != "" {
		feedbackKey := a.KeyPrefix + ":feedback:" + userID + ":" + bookID
		return a.store.Set(ctx, feedbackKey, []byte(source))
	}
	return nil
}

// 确保实现领域接口
var (
	_ core.RatingSource   = (*StoreRatingsAdapter)(nil)
	_ core.RatingFeedback = (*StoreRatingsAdapter)(nil)
)

// RatingRow 是一条评分记录，用于测试数据准备。
type RatingRow struct {
	UserID  string
	BookID  string
	Rating  float64
	Sharing bool
}

// SetupRatingTestData 辅助函数：为测试准备评分数据到 Store 中。
// 使用 StoreRatingsAdapter + MemoryStore 时，可以用这个函数方便地添加测试数据。
func SetupRatingTestData(ctx context.Context, adapter *StoreRatingsAdapter, rows []RatingRow) error {
	userDocs := make(map[string]map[string]float64)
	bookDocs := make(map[string]map[string]float64)
	sharing := make(map[string]bool)

	for _, row := range rows {
		if userDocs[row.UserID] == nil {
			userDocs[row.UserID] = make(map[string]float64)
		}
		userDocs[row.UserID][row.BookID] = row.Rating

		if bookDocs[row.BookID] == nil {
			bookDocs[row.BookID] = make(map[string]float64)
		}
		bookDocs[row.BookID][row.UserID] = row.Rating

		if row.Sharing {
			sharing[row.UserID] = true
		}
	}

	kvs := make(map[string][]byte, len(userDocs)+len(bookDocs)+1)
	for userID, doc := range userDocs {
		data, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		kvs[adapter.userKey(userID)] = data
	}
	for bookID, doc := range bookDocs {
		data, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		kvs[adapter.bookKey(bookID)] = data
	}

	sharingList := make([]string, 0, len(sharing))
	for userID := range sharing {
		sharingList = append(sharingList, userID)
	}
	sort.Strings(sharingList)
	sharingData, err := json.Marshal(sharingList)
	if err != nil {
		return err
	}
	kvs[adapter.KeyPrefix+":sharing"] = sharingData

	return adapter.store.BatchSet(ctx, kvs)
}
