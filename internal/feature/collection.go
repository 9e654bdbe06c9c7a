package feature

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"

	"site-report/internal/geometry"
	"site-report/internal/logger"
)

var (
	ErrNotFound            = errors.New("feature not found")
	ErrObservationNotFound = errors.New("observation not found")
)

// 文档注释：要素集合
// 背景：集合是要素几何与观测的唯一修改入口，每个修改方法返回前同步重算缓存，读取方看到的缓存总是最新。
// 约束：非并发安全；单项修改遇到缺失或非法几何时直接拒绝且不改动状态。
type Collection struct {
	items []*Feature
	index map[string]*Feature
}

func NewCollection() *Collection {
	return &Collection{index: make(map[string]*Feature)}
}

// Len：要素数量
func (c *Collection) Len() int { return len(c.items) }

// All：按插入顺序返回要素（切片副本，元素为共享指针）
func (c *Collection) All() []*Feature { return append([]*Feature(nil), c.items...) }

// Get：按 ID 查询
func (c *Collection) Get(id string) (*Feature, bool) {
	f, ok := c.index[id]
	return f, ok
}

// Add：校验几何后加入集合；缺失 ID 时生成新 ID
func (c *Collection) Add(f *Feature) error {
	if f == nil {
		return geometry.ErrEmptyGeometry
	}
	if err := geometry.Validate(f.Geometry); err != nil {
		return err
	}
	if f.ID == "" {
		f.ID = NewID()
	}
	if _, dup := c.index[f.ID]; dup {
		f.ID = NewID()
	}
	if f.Observations == nil {
		f.Observations = []Observation{}
	}
	for i := range f.Observations {
		if f.Observations[i].ID == "" {
			f.Observations[i].ID = NewID()
		}
	}
	Recompute(f)
	c.items = append(c.items, f)
	c.index[f.ID] = f
	return nil
}

// 文档注释：整体替换要素（导入路径）
// 背景：导入数据可能含缺失几何的条目，批量路径不拒绝，只跳过缓存计算并返回跳过数量。
func (c *Collection) Replace(fs []*Feature) (skipped int) {
	c.items = make([]*Feature, 0, len(fs))
	c.index = make(map[string]*Feature, len(fs))
	for _, f := range fs {
		if f == nil {
			skipped++
			continue
		}
		if f.ID == "" || c.index[f.ID] != nil {
			f.ID = NewID()
		}
		c.items = append(c.items, f)
		c.index[f.ID] = f
	}
	skipped += RecomputeAll(c.items)
	if skipped > 0 {
		logger.L().Debug("feature_replace_skipped", "count", skipped)
	}
	return skipped
}

// Delete：删除要素，返回是否存在
func (c *Collection) Delete(id string) bool {
	if _, ok := c.index[id]; !ok {
		return false
	}
	delete(c.index, id)
	for i, f := range c.items {
		if f.ID == id {
			c.items = append(c.items[:i], c.items[i+1:]...)
			break
		}
	}
	return true
}

// UpdateGeometry：替换几何并重算缓存
func (c *Collection) UpdateGeometry(id string, g orb.Geometry) error {
	f, ok := c.index[id]
	if !ok {
		return ErrNotFound
	}
	if err := geometry.Validate(g); err != nil {
		return err
	}
	f.Geometry = g
	Recompute(f)
	return nil
}

// Patch：属性局部更新，nil 字段不修改
type Patch struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	ShowLabel   *bool   `json:"showLabel"`
}

// UpdateProperties：更新名称、描述、类别与标签开关
func (c *Collection) UpdateProperties(id string, p Patch) error {
	f, ok := c.index[id]
	if !ok {
		return ErrNotFound
	}
	if p.Name != nil {
		f.Name = *p.Name
	}
	if p.Description != nil {
		f.Description = *p.Description
	}
	if p.Category != nil {
		f.Category = *p.Category
	}
	if p.ShowLabel != nil {
		f.ShowLabel = *p.ShowLabel
	}
	Recompute(f)
	return nil
}

// AddObservation：追加观测并重算，返回带 ID 的观测
func (c *Collection) AddObservation(id string, o Observation) (Observation, error) {
	f, ok := c.index[id]
	if !ok {
		return Observation{}, ErrNotFound
	}
	if o.ID == "" {
		o.ID = NewID()
	}
	if o.Images == nil {
		o.Images = []Image{}
	}
	f.Observations = append(f.Observations, o)
	Recompute(f)
	return o, nil
}

// UpdateObservation：按观测 ID 整体替换
func (c *Collection) UpdateObservation(id string, o Observation) error {
	f, ok := c.index[id]
	if !ok {
		return ErrNotFound
	}
	for i := range f.Observations {
		if f.Observations[i].ID == o.ID {
			if o.Images == nil {
				o.Images = []Image{}
			}
			f.Observations[i] = o
			Recompute(f)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrObservationNotFound, o.ID)
}

// RemoveObservation：删除观测并重算
func (c *Collection) RemoveObservation(id, obsID string) error {
	f, ok := c.index[id]
	if !ok {
		return ErrNotFound
	}
	for i := range f.Observations {
		if f.Observations[i].ID == obsID {
			f.Observations = append(f.Observations[:i], f.Observations[i+1:]...)
			Recompute(f)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrObservationNotFound, obsID)
}

// SetObservations：整体替换观测列表
func (c *Collection) SetObservations(id string, obs []Observation) error {
	f, ok := c.index[id]
	if !ok {
		return ErrNotFound
	}
	out := make([]Observation, len(obs))
	for i, o := range obs {
		if o.ID == "" {
			o.ID = NewID()
		}
		if o.Images == nil {
			o.Images = []Image{}
		}
		out[i] = o
	}
	f.Observations = out
	Recompute(f)
	return nil
}

// RenameCategory：类别改名钩子，同步全部引用
func (c *Collection) RenameCategory(oldName, newName string) {
	for _, f := range c.items {
		if f.Category == oldName {
			f.Category = newName
		}
	}
}

// DeleteByCategory：删除引用该类别的全部要素，返回删除数量
func (c *Collection) DeleteByCategory(name string) int {
	kept := c.items[:0]
	n := 0
	for _, f := range c.items {
		if f.Category == name {
			delete(c.index, f.ID)
			n++
			continue
		}
		kept = append(kept, f)
	}
	for i := len(kept); i < len(c.items); i++ {
		c.items[i] = nil
	}
	c.items = kept
	return n
}

// ReassignCategory：把引用 from 的要素改挂到 to，返回数量
func (c *Collection) ReassignCategory(from, to string) int {
	n := 0
	for _, f := range c.items {
		if f.Category == from {
			f.Category = to
			n++
		}
	}
	return n
}

// ByCategory：指定类别下的要素（插入顺序）
func (c *Collection) ByCategory(name string) []*Feature {
	var out []*Feature
	for _, f := range c.items {
		if f.Category == name {
			out = append(out, f)
		}
	}
	return out
}
