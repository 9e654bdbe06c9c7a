package category

import (
	"errors"
	"strings"

	"site-report/internal/logger"
)

var (
	ErrDuplicateName = errors.New("category already exists")
	ErrNotFound      = errors.New("category not found")
	ErrEmptyName     = errors.New("category name cannot be empty")
)

// RenameHook：类别改名时同步更新引用方（要素的类别字段）
type RenameHook func(oldName, newName string)

// 文档注释：类别存储
// 背景：持有类别样式与类别可见性两张表；名称顺序按插入顺序保留，供图例与“默认类别”选择使用。
// 约束：非并发安全，调用方（工作区）保证同一时刻只有一个修改者；Rename 在返回前完成全部三处更新。
type Store struct {
	order      []string
	cats       map[string]*Category
	visibility map[string]bool
	onRename   []RenameHook
}

func NewStore() *Store {
	return &Store{cats: make(map[string]*Category), visibility: make(map[string]bool)}
}

// OnRename：注册改名钩子
func (s *Store) OnRename(h RenameHook) { s.onRename = append(s.onRename, h) }

// Default：返回内置默认样式（独立副本）
func (s *Store) Default() StyleSet { return Default() }

// Add：新增类别并创建可见性条目；样式取值规则与 SetStyleField 相同，非法时返回 ErrBadValue
func (s *Store) Add(name string, styles StyleSet) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	if _, ok := s.cats[name]; ok {
		return ErrDuplicateName
	}
	if err := styles.Validate(); err != nil {
		return err
	}
	s.cats[name] = &Category{Styles: styles}
	s.order = append(s.order, name)
	s.EnsureVisibility(name)
	logger.L().Debug("category_add", "name", name)
	return nil
}

// AddDefault：以默认样式新增类别
func (s *Store) AddDefault(name string) error { return s.Add(name, Default()) }

// 文档注释：新增或覆盖类别（导入路径），保留既有位置
// 约束：非法样式字段回退为默认值，渲染侧不会读到缺失颜色或不存在的图案。
func (s *Store) Put(name string, c Category) {
	if _, ok := s.cats[name]; !ok {
		s.order = append(s.order, name)
	}
	styles, fixed := c.Styles.Normalize()
	if len(fixed) > 0 {
		logger.L().Debug("category_style_fixed", "name", name, "fields", fixed)
	}
	s.cats[name] = &Category{Styles: styles}
	s.EnsureVisibility(name)
}

// 文档注释：类别改名
// 背景：类别以名称被要素引用，改名必须同时迁移存储键、可见性键与全部要素引用，否则渲染会读到不一致的中间态。
// 约束：新名称已存在返回 ErrDuplicateName；旧名称不存在返回 ErrNotFound；名称顺序保持原位置。
func (s *Store) Rename(oldName, newName string) error {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return ErrEmptyName
	}
	c, ok := s.cats[oldName]
	if !ok {
		return ErrNotFound
	}
	if oldName == newName {
		return nil
	}
	if _, exists := s.cats[newName]; exists {
		return ErrDuplicateName
	}
	s.cats[newName] = c
	delete(s.cats, oldName)
	for i, n := range s.order {
		if n == oldName {
			s.order[i] = newName
			break
		}
	}
	vis := s.Visible(oldName)
	delete(s.visibility, oldName)
	s.visibility[newName] = vis
	for _, h := range s.onRename {
		h(oldName, newName)
	}
	logger.L().Debug("category_rename", "old", oldName, "new", newName)
	return nil
}

// Remove：删除样式与可见性条目；不处理要素，级联策略由调用方决定
func (s *Store) Remove(name string) {
	if _, ok := s.cats[name]; !ok {
		delete(s.visibility, name)
		return
	}
	delete(s.cats, name)
	delete(s.visibility, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	logger.L().Debug("category_remove", "name", name)
}

// Get：读取类别（返回副本）
func (s *Store) Get(name string) (Category, bool) {
	c, ok := s.cats[name]
	if !ok {
		return Category{}, false
	}
	return *c, true
}

func (s *Store) Has(name string) bool {
	_, ok := s.cats[name]
	return ok
}

// Names：按插入顺序返回类别名
func (s *Store) Names() []string { return append([]string(nil), s.order...) }

func (s *Store) Len() int { return len(s.order) }

// First：第一个类别名，导入时作为缺省归属
func (s *Store) First() (string, bool) {
	if len(s.order) == 0 {
		return "", false
	}
	return s.order[0], true
}

// Visible：缺失条目视为可见
func (s *Store) Visible(name string) bool {
	v, ok := s.visibility[name]
	return !ok || v
}

// SetVisible：设置类别可见性；类别不存在返回 ErrNotFound 且不创建条目
func (s *Store) SetVisible(name string, v bool) error {
	if _, ok := s.cats[name]; !ok {
		return ErrNotFound
	}
	s.visibility[name] = v
	return nil
}

// EnsureVisibility：首次出现的类别懒创建可见性条目（默认可见）
func (s *Store) EnsureVisibility(name string) {
	if _, ok := s.visibility[name]; !ok {
		s.visibility[name] = true
	}
}

// Visibility：可见性表副本，供过滤与导出使用
func (s *Store) Visibility() map[string]bool {
	out := make(map[string]bool, len(s.visibility))
	for k, v := range s.visibility {
		out[k] = v
	}
	return out
}

// 文档注释：整体替换可见性表（项目导入）
// 约束：只保留存储中存在的类别；表中缺失的类别默认可见。
func (s *Store) ReplaceVisibility(m map[string]bool) {
	s.visibility = make(map[string]bool, len(s.order))
	for _, n := range s.order {
		v, ok := m[n]
		s.visibility[n] = !ok || v
	}
}
