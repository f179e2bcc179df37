package similarity

import (
	"math"
	"sort"
)

// RatingMatrix 是稀疏的用户×书评分矩阵（CSR 布局）：
// 行 = 用户，列 = 这些用户评过的书的并集，显式保存
// row/col/value 数组及 ID↔下标双向映射，避免物化稠密矩阵。
//
// 注意：全对相似度的计算量仍是 O(n²)（n 为活跃用户数），
// 这是批路径的主导扩展约束；内存上不再持有 n×n 稠密相似度矩阵，
// 每个用户的相似度行按需计算、用完即弃。
type RatingMatrix struct {
	userIDs []string
	bookIDs []string
	userIdx map[string]int
	bookIdx map[string]int

	// CSR：第 i 行的非零条目位于 cols/vals[indptr[i]:indptr[i+1])，行内按列升序
	indptr []int
	cols   []int
	vals   []float64
}

// NewRatingMatrix 由 map[userID]map[bookID]rating 构建矩阵。
// 行顺序按 userOrder 给定（批任务用排序后的 eligible 列表，保证确定性）。
func NewRatingMatrix(ratings map[string]map[string]float64, userOrder []string) *RatingMatrix {
	m := &RatingMatrix{
		userIDs: make([]string, 0, len(userOrder)),
		userIdx: make(map[string]int, len(userOrder)),
		bookIdx: make(map[string]int),
	}

	// 列 = 所有出现过的书，排序后编号（确定性）
	bookSet := make(map[string]struct{})
	for _, userID := range userOrder {
		for bookID := range ratings[userID] {
			bookSet[bookID] = struct{}{}
		}
	}
	m.bookIDs = make([]string, 0, len(bookSet))
	for bookID := range bookSet {
		m.bookIDs = append(m.bookIDs, bookID)
	}
	sort.Strings(m.bookIDs)
	for i, bookID := range m.bookIDs {
		m.bookIdx[bookID] = i
	}

	m.indptr = make([]int, 0, len(userOrder)+1)
	m.indptr = append(m.indptr, 0)
	for _, userID := range userOrder {
		userRatings := ratings[userID]
		m.userIDs = append(m.userIDs, userID)
		m.userIdx[userID] = len(m.userIDs) - 1

		cols := make([]int, 0, len(userRatings))
		for bookID := range userRatings {
			cols = append(cols, m.bookIdx[bookID])
		}
		sort.Ints(cols)
		for _, col := range cols {
			m.cols = append(m.cols, col)
			m.vals = append(m.vals, userRatings[m.bookIDs[col]])
		}
		m.indptr = append(m.indptr, len(m.cols))
	}
	return m
}

// Users 返回行顺序对应的用户 ID 列表。
func (m *RatingMatrix) Users() []string { return m.userIDs }

// Books 返回列顺序对应的书籍 ID 列表。
func (m *RatingMatrix) Books() []string { return m.bookIDs }

// NumUsers 返回行数。
func (m *RatingMatrix) NumUsers() int { return len(m.userIDs) }

// Row 返回第 i 行的非零条目（列下标与值的切片视图，勿修改）。
func (m *RatingMatrix) Row(i int) (cols []int, vals []float64) {
	start, end := m.indptr[i], m.indptr[i+1]
	return m.cols[start:end], m.vals[start:end]
}

// RowCount 返回第 i 行的非零条目数。
func (m *RatingMatrix) RowCount(i int) int {
	return m.indptr[i+1] - m.indptr[i]
}

// CenterRows 对每行做均值中心化：均值只在该行"已评分条目"上计算并扣减，
// 缺失条目保持缺失（不被拉向均值）——以中心化向量的余弦近似 Pearson。
// 返回各行均值。中心化不改变非零下标集合，overlap 统计不受影响。
func (m *RatingMatrix) CenterRows() []float64 {
	means := make([]float64, len(m.userIDs))
	for i := range m.userIDs {
		start, end := m.indptr[i], m.indptr[i+1]
		if start == end {
			continue
		}
		var sum float64
		for k := start; k < end; k++ {
			sum += m.vals[k]
		}
		mean := sum / float64(end-start)
		means[i] = mean
		for k := start; k < end; k++ {
			m.vals[k] -= mean
		}
	}
	return means
}

// NormalizeRows 将每行归一化为单位 L2 范数；零范数的行保持为零
// （常数评分行中心化后范数为零，与任何行的相似度为 0，自然被丢弃）。
// 返回各行原始范数。
func (m *RatingMatrix) NormalizeRows() []float64 {
	norms := make([]float64, len(m.userIDs))
	for i := range m.userIDs {
		start, end := m.indptr[i], m.indptr[i+1]
		var sq float64
		for k := start; k < end; k++ {
			sq += m.vals[k] * m.vals[k]
		}
		norm := math.Sqrt(sq)
		norms[i] = norm
		if norm == 0 {
			continue
		}
		for k := start; k < end; k++ {
			m.vals[k] /= norm
		}
	}
	return norms
}

// DotRows 计算第 i 行与第 j 行的点积与非零下标交集大小（overlap）。
// 行内列下标有序，双指针一趟即可同时得到相似度与 overlap，
// 不依赖相似度值反推共享信号量。
func (m *RatingMatrix) DotRows(i, j int) (dot float64, overlap int) {
	is, ie := m.indptr[i], m.indptr[i+1]
	js, je := m.indptr[j], m.indptr[j+1]
	for is < ie && js < je {
		switch {
		case m.cols[is] == m.cols[js]:
			dot += m.vals[is] * m.vals[js]
			overlap++
			is++
			js++
		case m.cols[is] < m.cols[js]:
			is++
		default:
			js++
		}
	}
	return dot, overlap
}
