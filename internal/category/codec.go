package category

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mdobak/go-xerrors"
	"gopkg.in/yaml.v3"
)

// ErrNotCategoryFile：文件不是类别表（空对象或首个条目缺少 styles）
var ErrNotCategoryFile = errors.New("file does not appear to be a valid category file")

// Entry：有序类别表中的一项
type Entry struct {
	Name     string
	Category Category
}

// 文档注释：有序类别表
// 背景：类别文件与项目文件中类别是一个 JSON 对象，键序即界面中的类别顺序；map 解码会丢失顺序，因此按 token 逐项解析。
type Entries []Entry

// MarshalJSON：按顺序输出 {"name": {"styles": {...}}, ...}
func (e Entries) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, it := range e {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(it.Name)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(it.Category)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON：保序解析；重复键以后出现者为准且保留首次位置
func (e *Entries) UnmarshalJSON(b []byte) error {
	names, raws, err := orderedObject(b)
	if err != nil {
		return err
	}
	out := make(Entries, 0, len(names))
	index := make(map[string]int, len(names))
	for i, n := range names {
		var c Category
		if err := json.Unmarshal(raws[i], &c); err != nil {
			return fmt.Errorf("category %q: %w", n, err)
		}
		if j, ok := index[n]; ok {
			out[j].Category = c
			continue
		}
		index[n] = len(out)
		out = append(out, Entry{Name: n, Category: c})
	}
	*e = out
	return nil
}

// MarshalYAML：映射节点保持顺序
func (e Entries) MarshalYAML() (any, error) {
	n := &yaml.Node{Kind: yaml.MappingNode}
	for _, it := range e {
		var v yaml.Node
		if err := v.Encode(it.Category); err != nil {
			return nil, err
		}
		n.Content = append(n.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: it.Name}, &v)
	}
	return n, nil
}

// UnmarshalYAML：按映射节点的键值对顺序解析
func (e *Entries) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.MappingNode {
		return fmt.Errorf("categories: expected mapping, got yaml kind %d", n.Kind)
	}
	out := make(Entries, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		var c Category
		if err := n.Content[i+1].Decode(&c); err != nil {
			return fmt.Errorf("category %q: %w", n.Content[i].Value, err)
		}
		out = append(out, Entry{Name: n.Content[i].Value, Category: c})
	}
	*e = out
	return nil
}

// orderedObject：逐 token 读取顶层对象，返回键序与原始值
func orderedObject(b []byte) ([]string, []json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, fmt.Errorf("expected JSON object")
	}
	var names []string
	var raws []json.RawMessage
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("expected object key")
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, nil, err
		}
		names = append(names, key)
		raws = append(raws, raw)
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}
	return names, raws, nil
}

// 文档注释：解析类别文件（JSON）
// 背景：与前端导入一致，只检查首个条目是否带有 styles 字段，其余条目缺失字段按默认值补齐。
// 返回：格式不符返回 ErrNotCategoryFile；JSON 语法错误原样返回。
func ParseJSON(b []byte) (Entries, error) {
	names, raws, err := orderedObject(b)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 || !hasStyles(raws[0]) {
		return nil, ErrNotCategoryFile
	}
	var e Entries
	if err := json.Unmarshal(b, &e); err != nil {
		return nil, err
	}
	return e, nil
}

func hasStyles(raw json.RawMessage) bool {
	var peek struct {
		Styles json.RawMessage `json:"styles"`
	}
	if err := json.Unmarshal(raw, &peek); err != nil {
		return false
	}
	return len(peek.Styles) > 0 && string(peek.Styles) != "null"
}

// ParseYAML：解析 YAML 类别预设
func ParseYAML(b []byte) (Entries, error) {
	var e Entries
	if err := yaml.Unmarshal(b, &e); err != nil {
		return nil, err
	}
	if len(e) == 0 {
		return nil, ErrNotCategoryFile
	}
	return e, nil
}

// 文档注释：加载类别预设文件
// 背景：服务启动时可通过 CATEGORY_PRESETS_PATH 预置一组类别；按扩展名选择 YAML 或 JSON。
// 约束：读取或解析失败时返回包装后的错误，调用方决定是否继续启动。
func LoadPresets(path string) (Entries, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, xerrors.New(err)
	}
	var e Entries
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		e, err = ParseYAML(b)
	default:
		e, err = ParseJSON(b)
	}
	if err != nil {
		return nil, xerrors.New(fmt.Errorf("presets %s: %w", path, err))
	}
	return e, nil
}

// Entries：按顺序导出当前全部类别
func (s *Store) Entries() Entries {
	out := make(Entries, 0, len(s.order))
	for _, n := range s.order {
		out = append(out, Entry{Name: n, Category: *s.cats[n]})
	}
	return out
}

// Merge：合并导入的类别（同名覆盖，新名追加），并为新类别创建可见性条目
func (s *Store) Merge(e Entries) {
	for _, it := range e {
		if strings.TrimSpace(it.Name) == "" {
			continue
		}
		s.Put(it.Name, it.Category)
	}
}
