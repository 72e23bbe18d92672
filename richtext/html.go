package richtext

import (
	"bytes"
	"sort"
	"strings"
	"unicode/utf16"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// LinkResolver 는 문서 링크(link_type=Document)를 URL 로 바꾼다.
type LinkResolver func(Link) string

// DefaultLinkResolver 는 링크에 담긴 url 을 그대로 쓴다.
func DefaultLinkResolver(l Link) string { return l.URL }

// AsHTML 은 리치 텍스트를 HTML 로 직렬화한다.
// 텍스트는 이스케이프되지만 embed 블록의 oembed.html 은 그대로 삽입된다.
func AsHTML(rt RichText) (string, error) {
	return AsHTMLWith(rt, DefaultLinkResolver)
}

func AsHTMLWith(rt RichText, resolve LinkResolver) (string, error) {
	if resolve == nil {
		resolve = DefaultLinkResolver
	}
	var buf bytes.Buffer
	for _, n := range buildNodes(rt, resolve) {
		if err := html.Render(&buf, n); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

func buildNodes(rt RichText, resolve LinkResolver) []*html.Node {
	var (
		out  []*html.Node
		list *html.Node
	)
	for _, b := range rt {
		var wrapper atom.Atom
		switch b.Type {
		case ListItem:
			wrapper = atom.Ul
		case OListItem:
			wrapper = atom.Ol
		}
		if wrapper == 0 {
			list = nil
			if n := blockNode(b, resolve); n != nil {
				out = append(out, n)
			}
			continue
		}
		if list == nil || list.DataAtom != wrapper {
			list = element(wrapper)
			out = append(out, list)
		}
		list.AppendChild(blockNode(b, resolve))
	}
	return out
}

var headings = map[string]atom.Atom{
	Heading1: atom.H1,
	Heading2: atom.H2,
	Heading3: atom.H3,
	Heading4: atom.H4,
	Heading5: atom.H5,
	Heading6: atom.H6,
}

func blockNode(b Block, resolve LinkResolver) *html.Node {
	var n *html.Node
	switch b.Type {
	case Paragraph:
		n = element(atom.P)
	case Preformatted:
		n = element(atom.Pre)
	case ListItem, OListItem:
		n = element(atom.Li)
	case Image:
		return imageNode(b, resolve)
	case Embed:
		return embedNode(b)
	default:
		a, ok := headings[b.Type]
		if !ok {
			return nil
		}
		n = element(a)
	}
	if b.Label != "" {
		n.Attr = append(n.Attr, html.Attribute{Key: "class", Val: b.Label})
	}
	units := utf16.Encode([]rune(b.Text))
	appendSpans(n, units, 0, len(units), sortedSpans(b.Spans, len(units)), resolve)
	return n
}

func imageNode(b Block, resolve LinkResolver) *html.Node {
	class := "block-img"
	if b.Label != "" {
		class += " " + b.Label
	}
	p := element(atom.P, html.Attribute{Key: "class", Val: class})

	alt := ""
	if b.Alt != nil {
		alt = *b.Alt
	}
	img := element(atom.Img, html.Attribute{Key: "src", Val: b.URL}, html.Attribute{Key: "alt", Val: alt})
	if b.Copyright != nil && *b.Copyright != "" {
		img.Attr = append(img.Attr, html.Attribute{Key: "copyright", Val: *b.Copyright})
	}

	if b.LinkTo != nil {
		a := linkNode(*b.LinkTo, resolve)
		a.AppendChild(img)
		p.AppendChild(a)
		return p
	}
	p.AppendChild(img)
	return p
}

func embedNode(b Block) *html.Node {
	if b.Oembed == nil {
		return nil
	}
	div := element(atom.Div,
		html.Attribute{Key: "data-oembed", Val: b.Oembed.EmbedURL},
		html.Attribute{Key: "data-oembed-type", Val: b.Oembed.Type},
		html.Attribute{Key: "data-oembed-provider", Val: b.Oembed.ProviderName},
	)
	if b.Label != "" {
		div.Attr = append(div.Attr, html.Attribute{Key: "class", Val: b.Label})
	}
	children, err := html.ParseFragment(strings.NewReader(b.Oembed.HTML), element(atom.Div))
	if err != nil {
		div.AppendChild(&html.Node{Type: html.TextNode, Data: b.Oembed.HTML})
		return div
	}
	for _, c := range children {
		div.AppendChild(c)
	}
	return div
}

func linkNode(l Link, resolve LinkResolver) *html.Node {
	a := element(atom.A, html.Attribute{Key: "href", Val: resolve(l)})
	if l.Target != "" {
		a.Attr = append(a.Attr,
			html.Attribute{Key: "target", Val: l.Target},
			html.Attribute{Key: "rel", Val: "noopener"},
		)
	}
	return a
}

func spanNode(s Span, resolve LinkResolver) *html.Node {
	switch s.Type {
	case Strong:
		return element(atom.Strong)
	case Em:
		return element(atom.Em)
	case Hyperlink:
		var l Link
		if s.Data != nil {
			l = s.Data.Link
		}
		return linkNode(l, resolve)
	case Label:
		n := element(atom.Span)
		if s.Data != nil && s.Data.Label != "" {
			n.Attr = append(n.Attr, html.Attribute{Key: "class", Val: s.Data.Label})
		}
		return n
	}
	return element(atom.Span)
}

// sortedSpans 는 범위를 텍스트 길이로 자르고 (start 오름차순, end 내림차순) 으로 정렬한다.
// 바깥 span 이 먼저 오므로 안쪽 span 은 자식으로 중첩된다.
func sortedSpans(spans []Span, length int) []Span {
	out := make([]Span, 0, len(spans))
	for _, s := range spans {
		s.Start = max(0, min(s.Start, length))
		s.End = max(0, min(s.End, length))
		if s.End > s.Start {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].End > out[j].End
	})
	return out
}

// appendSpans 는 units[start:end] 를 parent 아래에 span 트리로 붙인다.
// 현재 span 의 끝을 넘어가는 span 은 둘로 나눠 나머지를 형제로 보낸다.
func appendSpans(parent *html.Node, units []uint16, start, end int, spans []Span, resolve LinkResolver) {
	pos := start
	for len(spans) > 0 {
		cur := spans[0]
		spans = spans[1:]

		s, e := max(cur.Start, pos), min(cur.End, end)
		if e <= s {
			continue
		}
		if s > pos {
			appendText(parent, units[pos:s])
		}

		var inner, rest []Span
		for _, o := range spans {
			switch {
			case o.Start >= e:
				rest = append(rest, o)
			case o.End > e:
				head, tail := o, o
				head.End, tail.Start = e, e
				inner = append(inner, head)
				rest = append(rest, tail)
			default:
				inner = append(inner, o)
			}
		}

		n := spanNode(cur, resolve)
		parent.AppendChild(n)
		appendSpans(n, units, s, e, inner, resolve)

		spans = sortedSpans(rest, end)
		pos = e
	}
	if pos < end {
		appendText(parent, units[pos:end])
	}
}

// appendText 는 줄바꿈을 <br> 로 바꿔 텍스트 노드를 붙인다.
func appendText(parent *html.Node, units []uint16) {
	lines := strings.Split(string(utf16.Decode(units)), "\n")
	for i, line := range lines {
		if i > 0 {
			parent.AppendChild(element(atom.Br))
		}
		if line != "" {
			parent.AppendChild(&html.Node{Type: html.TextNode, Data: line})
		}
	}
}

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String(), Attr: attrs}
}
