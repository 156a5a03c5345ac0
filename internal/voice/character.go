// Package voice 管理嗓音参数：内置角色、用户自定义角色和全局默认值。
package voice

import (
	"fmt"
	"sort"
	"strings"

	"github.com/iabetor/samspeech/internal/tts"
)

// Character 是一组命名的嗓音参数。
type Character struct {
	Name   string
	Params tts.Params
}

// builtin 是 SAM 的经典角色预设。
var builtin = []Character{
	{Name: "elf", Params: tts.Params{Speed: 72, Pitch: 64, Throat: 110, Mouth: 160}},
	{Name: "littleRobot", Params: tts.Params{Speed: 92, Pitch: 60, Throat: 190, Mouth: 190}},
	{Name: "stuffyGuy", Params: tts.Params{Speed: 82, Pitch: 72, Throat: 110, Mouth: 105}},
	{Name: "littleOldLady", Params: tts.Params{Speed: 82, Pitch: 32, Throat: 145, Mouth: 145}},
	{Name: "extraTerrestrial", Params: tts.Params{Speed: 100, Pitch: 64, Throat: 150, Mouth: 200}},
	{Name: "sam", Params: tts.DefaultParams},
}

// Builtin 返回内置角色列表的副本，顺序固定。
func Builtin() []Character {
	out := make([]Character, len(builtin))
	copy(out, builtin)
	return out
}

// LookupBuiltin 按名称（不区分大小写）查找内置角色。
func LookupBuiltin(name string) (Character, bool) {
	for _, c := range builtin {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return Character{}, false
}

// BuiltinAt 按下标查找内置角色，对应宿主下拉框的序号。
func BuiltinAt(i int) (Character, bool) {
	if i < 0 || i >= len(builtin) {
		return Character{}, false
	}
	return builtin[i], true
}

// Catalog 合并内置角色与持久化的自定义角色。自定义角色不能覆盖内置名称。
type Catalog struct {
	store *Store
}

// NewCatalog 创建角色目录。store 可以为 nil，此时只有内置角色。
func NewCatalog(store *Store) *Catalog {
	return &Catalog{store: store}
}

// Lookup 先查内置角色，再查自定义角色。
func (c *Catalog) Lookup(name string) (Character, error) {
	if ch, ok := LookupBuiltin(name); ok {
		return ch, nil
	}
	if c.store != nil {
		ch, ok, err := c.store.Get(name)
		if err != nil {
			return Character{}, err
		}
		if ok {
			return ch, nil
		}
	}
	return Character{}, fmt.Errorf("未知角色: %s", name)
}

// Save 保存自定义角色。
func (c *Catalog) Save(ch Character) error {
	if c.store == nil {
		return fmt.Errorf("未配置角色存储")
	}
	if strings.TrimSpace(ch.Name) == "" {
		return fmt.Errorf("角色名称不能为空")
	}
	if _, ok := LookupBuiltin(ch.Name); ok {
		return fmt.Errorf("不能覆盖内置角色: %s", ch.Name)
	}
	return c.store.Put(ch)
}

// Remove 删除自定义角色，返回是否删除了记录。
func (c *Catalog) Remove(name string) (bool, error) {
	if c.store == nil {
		return false, nil
	}
	return c.store.Delete(name)
}

// List 返回内置角色（固定顺序）加上按名称排序的自定义角色。
func (c *Catalog) List() ([]Character, error) {
	out := Builtin()
	if c.store == nil {
		return out, nil
	}
	custom, err := c.store.List()
	if err != nil {
		return nil, err
	}
	sort.Slice(custom, func(i, j int) bool { return custom[i].Name < custom[j].Name })
	return append(out, custom...), nil
}
