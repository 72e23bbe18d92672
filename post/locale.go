package post

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
)

// Locale 은 날짜 포맷과 로딩 문구에 쓰는 지역 설정이다.
type Locale struct {
	Tag         language.Tag
	MonthsAbbr  [12]string
	LoadingText string
	Location    *time.Location
}

var (
	PtBR = Locale{
		Tag:         language.BrazilianPortuguese,
		MonthsAbbr:  [12]string{"jan", "fev", "mar", "abr", "mai", "jun", "jul", "ago", "set", "out", "nov", "dez"},
		LoadingText: "Carregando...",
		Location:    time.UTC,
	}
	EnUS = Locale{
		Tag:         language.AmericanEnglish,
		MonthsAbbr:  [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"},
		LoadingText: "Loading...",
		Location:    time.UTC,
	}
)

// 첫 항목이 매칭 실패 시 기본값이다.
var (
	locales = []Locale{PtBR, EnUS}
	matcher = language.NewMatcher([]language.Tag{PtBR.Tag, EnUS.Tag})
)

// LookupLocale 은 BCP 47 이름을 지원 locale 중 가장 가까운 것으로 맞추고 시간대를 붙인다.
// name 이 비어 있으면 pt-BR, tz 가 비어 있으면 UTC 다.
func LookupLocale(name, tz string) (Locale, error) {
	loc := PtBR
	if name != "" {
		tag, err := language.Parse(name)
		if err != nil {
			return Locale{}, fmt.Errorf("parse locale %q: %w", name, err)
		}
		_, idx, _ := matcher.Match(tag)
		loc = locales[idx]
	}
	if tz != "" {
		location, err := time.LoadLocation(tz)
		if err != nil {
			return Locale{}, fmt.Errorf("load timezone %q: %w", tz, err)
		}
		loc.Location = location
	}
	return loc, nil
}
