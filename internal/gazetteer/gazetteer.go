// 包 gazetteer：在新闻文本中查找已知新加坡地名（整词、大小写不敏感）
package gazetteer

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Mention：一次地名命中，Pos 为该地名在文本中首个有效命中的字节偏移
type Mention struct {
	Name string
	Pos  int
}

type entry struct {
	name string
	re   *regexp.Regexp
}

// 文档注释：地名表匹配器
// 背景：地名表规模为数百条，逐条线性扫描足够；每条预编译为大小写不敏感的字面量模式。
// 约束：构建后只读，可被多个流水线调用共享；整词判定基于命中前后的字符（字母/数字/下划线视为词内字符），
// 因而 "Jurong" 不会命中 "Jurongville"，且以连字符结尾的地名同样适用。
type Matcher struct {
	entries  []entry
	fallback map[string]bool
}

// Option：匹配器构造选项
type Option func(*Matcher)

// Fallback：指定泛化地名（如国家名本身），排序时排在所有具体地名之后
func Fallback(names ...string) Option {
	return func(m *Matcher) {
		for _, n := range names {
			m.fallback[strings.ToLower(strings.TrimSpace(n))] = true
		}
	}
}

// New：构建匹配器；表项按原字符串去重，空白表项被丢弃，保持首次出现顺序
func New(names []string, opts ...Option) *Matcher {
	m := &Matcher{fallback: map[string]bool{}}
	for _, o := range opts {
		o(m)
	}
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		m.entries = append(m.entries, entry{name: n, re: regexp.MustCompile(`(?i)` + regexp.QuoteMeta(n))})
	}
	return m
}

// Len：去重后的表项数量
func (m *Matcher) Len() int { return len(m.entries) }

// Names：去重后的表项（按构建顺序）
func (m *Matcher) Names() []string {
	out := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.name)
	}
	return out
}

// FindMentions：返回命中的表项集合；无命中时返回空集合
func (m *Matcher) FindMentions(text string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, mt := range m.Find(text) {
		out[mt.Name] = struct{}{}
	}
	return out
}

// 文档注释：查找所有命中并给出确定性顺序
// 背景：调用方按顺序逐个地理编码并在首个成功处停止，因此顺序决定文章归属的地点。
// 约束：排序规则依次为：泛化地名置后；文本中首次出现位置靠前者优先；同一位置更长的表项优先
// （"Jurong East" 先于 "Jurong"）；最后按字典序。
func (m *Matcher) Find(text string) []Mention {
	var out []Mention
	for _, e := range m.entries {
		if pos := firstWholeWord(e.re, text); pos >= 0 {
			out = append(out, Mention{Name: e.name, Pos: pos})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		fi, fj := m.fallback[strings.ToLower(out[i].Name)], m.fallback[strings.ToLower(out[j].Name)]
		if fi != fj {
			return fj
		}
		if out[i].Pos != out[j].Pos {
			return out[i].Pos < out[j].Pos
		}
		if len(out[i].Name) != len(out[j].Name) {
			return len(out[i].Name) > len(out[j].Name)
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Contains：文本中是否存在任一地名（命中即返回）
func (m *Matcher) Contains(text string) bool {
	for _, e := range m.entries {
		if firstWholeWord(e.re, text) >= 0 {
			return true
		}
	}
	return false
}

// 首个满足整词边界的命中偏移；不存在时返回 -1
func firstWholeWord(re *regexp.Regexp, text string) int {
	for _, loc := range re.FindAllStringIndex(text, -1) {
		if loc[0] > 0 {
			r, _ := utf8.DecodeLastRuneInString(text[:loc[0]])
			if isWordRune(r) {
				continue
			}
		}
		if loc[1] < len(text) {
			r, _ := utf8.DecodeRuneInString(text[loc[1]:])
			if isWordRune(r) {
				continue
			}
		}
		return loc[0]
	}
	return -1
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}
