package references

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/vvka-141/skilldeploy/internal/metadata"
	"github.com/vvka-141/skilldeploy/pkg/skilldeploy"
)

// Detection grammar. Fenced code blocks are never scanned; the header block of
// a primary document is scanned for dependency lists only.
var (
	// [text](target "title") and ![alt](target)
	linkRe = regexp.MustCompile(`(!?)\[([^\]\n]*)\]\([ \t]*(<[^>\n]*>|[^\s()]+)(?:[ \t]+"[^"\n]*"|[ \t]+'[^'\n]*')?[ \t]*\)`)

	// [label]: target
	definitionRe = regexp.MustCompile(`^ {0,3}\[([^\]\n]+)\]:[ \t]*(<[^>\n]*>|\S+)`)

	// ./x, ../x/y, or root-relative a/b/c preceded by a boundary character
	proseRe = regexp.MustCompile(`(^|[\s(\x60"'\[])((?:\.{1,2}/)+[A-Za-z0-9_][A-Za-z0-9_.\-]*(?:/[A-Za-z0-9_.\-]+)*/?|[A-Za-z0-9_][A-Za-z0-9_\-]*(?:/[A-Za-z0-9_.\-]+)+/?)`)

	// top-level "key:" line in a header block
	headerKeyRe = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_\-]*)[ \t]*:(.*)$`)
)

// site is one detected path expression and the construct around it.
type site struct {
	form skilldeploy.RefForm
	expr string

	// exprStart and exprEnd delimit the expression in the artifact
	exprStart, exprEnd int

	// wholeStart and wholeEnd delimit the link or definition holding it
	wholeStart, wholeEnd int

	text   string // link text or definition label
	image  bool
	inCode bool
	line   int

	// lineEnd is where a trailing YAML comment can be inserted
	lineEnd int

	// inline marks a dependency inside a [a, b] flow list
	inline bool
}

// line is one line of an artifact with its byte offsets.
type line struct {
	start int
	text  string // without the line terminator
	num   int
}

func splitLines(content []byte) []line {
	var out []line
	start := 0
	num := 1
	for start <= len(content) {
		i := bytes.IndexByte(content[start:], '\n')
		var text string
		if i < 0 {
			text = string(content[start:])
		} else {
			text = string(content[start : start+i])
		}
		text = strings.TrimSuffix(text, "\r")
		out = append(out, line{start: start, text: text, num: num})
		if i < 0 {
			break
		}
		start += i + 1
		num++
	}
	return out
}

// scanText detects links, definitions and prose paths. Lines before bodyStart
// are ignored.
func scanText(content []byte, bodyStart int) []site {
	var sites []site
	var fence string

	for _, ln := range splitLines(content) {
		if ln.start < bodyStart {
			continue
		}

		trimmed := strings.TrimLeft(ln.text, " \t")
		if fence != "" {
			if closesFence(trimmed, fence) {
				fence = ""
			}
			continue
		}
		if marker := fenceMarker(trimmed); marker != "" {
			fence = marker
			continue
		}

		if m := definitionRe.FindStringSubmatchIndex(ln.text); m != nil {
			expr, es, ee := unwrapAngle(ln.text, m[4], m[5])
			sites = append(sites, site{
				form:       skilldeploy.FormDefinition,
				expr:       expr,
				exprStart:  ln.start + es,
				exprEnd:    ln.start + ee,
				wholeStart: ln.start,
				wholeEnd:   ln.start + len(ln.text),
				text:       ln.text[m[2]:m[3]],
				line:       ln.num,
			})
			continue
		}

		var occupied [][2]int
		for _, m := range linkRe.FindAllStringSubmatchIndex(ln.text, -1) {
			occupied = append(occupied, [2]int{m[0], m[1]})
			expr, es, ee := unwrapAngle(ln.text, m[6], m[7])
			sites = append(sites, site{
				form:       skilldeploy.FormLink,
				expr:       expr,
				exprStart:  ln.start + es,
				exprEnd:    ln.start + ee,
				wholeStart: ln.start + m[0],
				wholeEnd:   ln.start + m[1],
				text:       ln.text[m[4]:m[5]],
				image:      m[3] > m[2],
				line:       ln.num,
			})
		}

		code := codeSpans(ln.text)
		for _, m := range proseRe.FindAllStringSubmatchIndex(ln.text, -1) {
			es, ee := m[4], m[5]
			for ee > es && ln.text[ee-1] == '.' {
				ee--
			}
			if ee <= es || overlaps(occupied, es, ee) {
				continue
			}
			sites = append(sites, site{
				form:      skilldeploy.FormProse,
				expr:      ln.text[es:ee],
				exprStart: ln.start + es,
				exprEnd:   ln.start + ee,
				inCode:    within(code, es, ee),
				line:      ln.num,
			})
		}
	}
	return sites
}

// scanHeader detects dependency list entries in a header block.
func scanHeader(content []byte, h metadata.Header) []site {
	var sites []site
	lines := splitLines(content[:h.End])

	var blockKey bool
	for _, ln := range lines {
		if ln.start < h.Start {
			continue
		}
		lineEnd := ln.start + len(ln.text)

		if m := headerKeyRe.FindStringSubmatchIndex(ln.text); m != nil {
			blockKey = false
			key := ln.text[m[2]:m[3]]
			if !isDependencyKey(key) {
				continue
			}
			valueFrom := m[4]
			vs, ve := valueSpan(ln.text, valueFrom)
			switch {
			case vs == ve:
				blockKey = true
			case ln.text[vs] == '[':
				for _, item := range flowItems(ln.text, vs) {
					sites = append(sites, dependencySite(ln, item[0], item[1], lineEnd, true))
				}
			default:
				sites = append(sites, dependencySite(ln, vs, ve, lineEnd, false))
			}
			continue
		}

		if !blockKey {
			continue
		}
		trimmed := strings.TrimLeft(ln.text, " \t")
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		indent := len(ln.text) - len(trimmed)
		if indent == 0 && !strings.HasPrefix(trimmed, "-") {
			blockKey = false
			continue
		}
		if !strings.HasPrefix(trimmed, "- ") && trimmed != "-" {
			continue
		}
		vs, ve := valueSpan(ln.text, indent+1)
		if vs < ve {
			sites = append(sites, dependencySite(ln, vs, ve, lineEnd, false))
		}
	}
	return sites
}

func dependencySite(ln line, vs, ve, lineEnd int, inline bool) site {
	s, e := unquote(ln.text, vs, ve)
	return site{
		form:      skilldeploy.FormDependency,
		expr:      ln.text[s:e],
		exprStart: ln.start + s,
		exprEnd:   ln.start + e,
		line:      ln.num,
		lineEnd:   lineEnd,
		inline:    inline,
	}
}

func isDependencyKey(key string) bool {
	for _, k := range metadata.DependencyKeys {
		if k == key {
			return true
		}
	}
	return false
}

// valueSpan returns the span of a YAML value starting at from, without
// surrounding whitespace and trailing comment.
func valueSpan(text string, from int) (int, int) {
	s := from
	for s < len(text) && (text[s] == ' ' || text[s] == '\t') {
		s++
	}
	e := len(text)
	var quote byte
	for i := s; i < len(text); i++ {
		c := text[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '#' && (i == s || text[i-1] == ' ' || text[i-1] == '\t'):
			e = i
			i = len(text)
		}
	}
	for e > s && (text[e-1] == ' ' || text[e-1] == '\t') {
		e--
	}
	return s, e
}

// flowItems splits a [a, b] flow list starting at open into item spans.
func flowItems(text string, open int) [][2]int {
	end := strings.IndexByte(text[open:], ']')
	if end < 0 {
		return nil
	}
	end += open

	var items [][2]int
	start := open + 1
	for i := open + 1; i <= end; i++ {
		if i == end || text[i] == ',' {
			s, e := start, i
			for s < e && (text[s] == ' ' || text[s] == '\t') {
				s++
			}
			for e > s && (text[e-1] == ' ' || text[e-1] == '\t') {
				e--
			}
			if s < e {
				items = append(items, [2]int{s, e})
			}
			start = i + 1
		}
	}
	return items
}

func unquote(text string, s, e int) (int, int) {
	if e-s >= 2 && (text[s] == '"' || text[s] == '\'') && text[e-1] == text[s] {
		return s + 1, e - 1
	}
	return s, e
}

func unwrapAngle(text string, s, e int) (string, int, int) {
	if e-s >= 2 && text[s] == '<' && text[e-1] == '>' {
		s, e = s+1, e-1
	}
	return text[s:e], s, e
}

// fenceMarker returns the full backtick or tilde run opening a code fence.
func fenceMarker(trimmed string) string {
	if trimmed == "" || (trimmed[0] != '`' && trimmed[0] != '~') {
		return ""
	}
	n := 0
	for n < len(trimmed) && trimmed[n] == trimmed[0] {
		n++
	}
	if n < 3 {
		return ""
	}
	return trimmed[:n]
}

// closesFence reports whether trimmed is a run of the opening fence character
// at least as long as open, followed only by whitespace.
func closesFence(trimmed, open string) bool {
	marker := fenceMarker(trimmed)
	if marker == "" || marker[0] != open[0] || len(marker) < len(open) {
		return false
	}
	return strings.TrimSpace(trimmed[len(marker):]) == ""
}

// codeSpans returns inline code spans delimited by single backticks.
func codeSpans(text string) [][2]int {
	var spans [][2]int
	open := -1
	for i := 0; i < len(text); i++ {
		if text[i] != '`' {
			continue
		}
		if open < 0 {
			open = i
		} else {
			spans = append(spans, [2]int{open, i + 1})
			open = -1
		}
	}
	return spans
}

func within(spans [][2]int, s, e int) bool {
	for _, sp := range spans {
		if s > sp[0] && e < sp[1] {
			return true
		}
	}
	return false
}

func overlaps(spans [][2]int, s, e int) bool {
	for _, sp := range spans {
		if s < sp[1] && e > sp[0] {
			return true
		}
	}
	return false
}
