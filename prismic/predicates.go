package prismic

import (
	"strconv"
	"strings"
)

// Predicate 는 Prismic 쿼리 언어의 술어 하나다. 예: [at(document.type, "posts")]
type Predicate struct {
	name string
	path string
	args []string
}

// At 은 path 의 값이 value 와 정확히 일치하는 문서를 찾는다.
func At(path, value string) Predicate {
	return Predicate{name: "at", path: path, args: []string{strconv.Quote(value)}}
}

// In 은 path 의 값이 values 중 하나인 문서를 찾는다. (document.id, my.<type>.uid 에 사용)
func In(path string, values ...string) Predicate {
	quoted := make([]string, 0, len(values))
	for _, v := range values {
		quoted = append(quoted, strconv.Quote(v))
	}
	return Predicate{name: "in", path: path, args: []string{"[" + strings.Join(quoted, ", ") + "]"}}
}

func (p Predicate) String() string {
	return "[" + p.name + "(" + p.path + ", " + strings.Join(p.args, ", ") + ")]"
}

// BuildQuery 는 술어 목록을 q 파라미터 값으로 합친다.
func BuildQuery(preds []Predicate) string {
	var b strings.Builder
	b.WriteString("[")
	for _, p := range preds {
		b.WriteString(p.String())
	}
	b.WriteString("]")
	return b.String()
}
