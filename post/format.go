package post

import (
	"fmt"
	"strings"
	"time"

	"spacetraveling/richtext"
)

// Prismic 은 first_publication_date 를 "2021-03-15T12:00:00+0000" 형태로 준다.
var dateLayouts = []string{
	"2006-01-02T15:04:05-0700",
	time.RFC3339Nano,
	"2006-01-02",
}

// ParseDate 는 Prismic 타임스탬프 또는 RFC 3339 문자열을 해석한다.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid publication date %q", raw)
}

// FormatDate 는 타임스탬프를 "dd MMM yyyy" 로 포맷한다. 월 약어는 locale 표를 따른다.
func FormatDate(raw string, loc Locale) (string, error) {
	t, err := ParseDate(raw)
	if err != nil {
		return "", err
	}
	if loc.Location != nil {
		t = t.In(loc.Location)
	}
	return fmt.Sprintf("%02d %s %04d", t.Day(), loc.MonthsAbbr[t.Month()-1], t.Year()), nil
}

// ReadingTime 은 섹션별로 ceil(단어 수 / 200) 을 구해 합산한다.
// 단어는 평문을 공백 한 칸 기준으로 나눈 조각이라 빈 본문도 1 단어로 센다.
func ReadingTime(content []Content) int {
	total := 0
	for _, c := range content {
		words := len(strings.Split(richtext.AsText(c.Body), " "))
		total += (words + WordsPerMinute - 1) / WordsPerMinute
	}
	return total
}
