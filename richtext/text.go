package richtext

import "strings"

// AsText 는 모든 블록의 text 를 공백 하나로 이어 붙인다.
// 서식(span)은 버린다. 텍스트가 없는 블록(이미지/임베드, 빈 문단)도 빈 문자열로 자리를 차지한다.
func AsText(rt RichText) string {
	parts := make([]string, len(rt))
	for i, block := range rt {
		if block.hasText() {
			parts[i] = block.Text
		}
	}
	return strings.Join(parts, " ")
}
