package similarity

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rushteam/bookrec/core"
)

// DefaultCheckpointKey 是批任务断点的默认存储 key。
const DefaultCheckpointKey = "similarity:batch:checkpoint"

// Checkpoint 是批任务的断点结构：显式持久化在 core.Store 中，
// 而不是进程内全局状态。批任务每提交完一个用户就记录一次，
// 任务被取消或崩溃后重跑可以跳过已提交的用户，部分完成是合法的非错误结果。
type Checkpoint struct {
	Store core.Store

	// Key 存储 key；为空时使用 DefaultCheckpointKey
	Key string

	mu    sync.Mutex
	state *checkpointState
}

type checkpointState struct {
	StartedAt time.Time       `json:"started_at"`
	Done      map[string]bool `json:"done"` // 已提交的用户
}

func (c *Checkpoint) key() string {
	if c.Key != "" {
		return c.Key
	}
	return DefaultCheckpointKey
}

// Load 加载断点，返回已提交的用户集合；无断点时返回空集合。
func (c *Checkpoint) Load(ctx context.Context) (map[string]bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.Store == nil {
		c.state = &checkpointState{StartedAt: time.Now(), Done: make(map[string]bool)}
		return map[string]bool{}, nil
	}

	data, err := c.Store.Get(ctx, c.key())
	if err != nil {
		if core.IsStoreNotFound(err) {
			c.state = &checkpointState{StartedAt: time.Now(), Done: make(map[string]bool)}
			return map[string]bool{}, nil
		}
		return nil, err
	}

	var state checkpointState
	if err := json.Unmarshal(data, &state); err != nil {
		// 损坏的断点按空断点处理：宁可重算也不卡死任务
		state = checkpointState{StartedAt: time.Now(), Done: make(map[string]bool)}
	}
	if state.Done == nil {
		state.Done = make(map[string]bool)
	}
	c.state = &state

	done := make(map[string]bool, len(state.Done))
	for k, v := range state.Done {
		done[k] = v
	}
	return done, nil
}

// MarkDone 记录某用户已提交并落盘断点。并发安全（提取阶段可能是并发的）。
func (c *Checkpoint) MarkDone(ctx context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == nil {
		c.state = &checkpointState{StartedAt: time.Now(), Done: make(map[string]bool)}
	}
	c.state.Done[userID] = true

	if c.Store == nil {
		return nil
	}
	data, err := json.Marshal(c.state)
	if err != nil {
		return err
	}
	return c.Store.Set(ctx, c.key(), data)
}

// Clear 任务完整结束后清除断点。
func (c *Checkpoint) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = nil
	if c.Store == nil {
		return nil
	}
	return c.Store.Delete(ctx, c.key())
}
