package markup

import "strings"

type tagKind int

const (
	kindText  tagKind = iota // a '<' that does not start a tag
	kindOpen                 // <name ...>
	kindClose                // </name>
	kindSkip                 // comments, declarations, processing instructions
)

type tag struct {
	kind        tagKind
	name        string // lower-cased
	attrs       map[string]string
	selfClosing bool
}

// readTag reads the tag starting at s[i] == '<'. It returns the tag and the
// offset just past it, or false when more input is needed to decide.
func readTag(s string, i int) (tag, int, bool) {
	j := i + 1
	if j >= len(s) {
		return tag{}, 0, false
	}

	c := s[j]
	switch {
	case c == '!':
		if strings.HasPrefix(s[j:], "!--") {
			end := strings.Index(s[j+3:], "-->")
			if end < 0 {
				return tag{}, 0, false
			}
			return tag{kind: kindSkip}, j + 3 + end + 3, true
		}
		if len(s)-j < 3 && strings.HasPrefix("!--", s[j:]) {
			return tag{}, 0, false
		}
		return skipToGT(s, j)

	case c == '?':
		return skipToGT(s, j)

	case c == '/':
		name, k := readName(s, j+1)
		if k == len(s) {
			return tag{}, 0, false
		}
		if name == "" {
			return tag{kind: kindText}, i + 1, true
		}
		end := strings.IndexByte(s[k:], '>')
		if end < 0 {
			return tag{}, 0, false
		}
		return tag{kind: kindClose, name: strings.ToLower(name)}, k + end + 1, true

	case isNameStart(c):
		name, k := readName(s, j)
		if k == len(s) {
			return tag{}, 0, false
		}
		end := strings.IndexByte(s[k:], '>')
		if end < 0 {
			return tag{}, 0, false
		}
		body := strings.TrimSpace(s[k : k+end])
		t := tag{kind: kindOpen, name: strings.ToLower(name)}
		if strings.HasSuffix(body, "/") {
			t.selfClosing = true
			body = strings.TrimSuffix(body, "/")
		}
		t.attrs = parseAttrs(body)
		return t, k + end + 1, true

	default:
		return tag{kind: kindText}, i + 1, true
	}
}

func skipToGT(s string, j int) (tag, int, bool) {
	end := strings.IndexByte(s[j:], '>')
	if end < 0 {
		return tag{}, 0, false
	}
	return tag{kind: kindSkip}, j + end + 1, true
}

func isNameStart(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}

func isNameChar(c byte) bool {
	return isNameStart(c) || (c >= '0' && c <= '9') || c == '-' || c == ':' || c == '.'
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// readName returns the tag name starting at s[i] and the offset after it.
func readName(s string, i int) (string, int) {
	k := i
	for k < len(s) && isNameChar(s[k]) {
		k++
	}
	return s[i:k], k
}

// parseAttrs parses key="value" pairs. Keys are lower-cased, values may be
// single-, double- or un-quoted. The first occurrence of a key wins.
func parseAttrs(body string) map[string]string {
	attrs := map[string]string{}
	i := 0
	for i < len(body) {
		for i < len(body) && isSpace(body[i]) {
			i++
		}
		start := i
		for i < len(body) && !isSpace(body[i]) && body[i] != '=' {
			i++
		}
		key := strings.ToLower(body[start:i])
		for i < len(body) && isSpace(body[i]) {
			i++
		}
		if i >= len(body) || body[i] != '=' {
			if key != "" {
				if _, ok := attrs[key]; !ok {
					attrs[key] = ""
				}
			}
			continue
		}
		i++ // '='
		for i < len(body) && isSpace(body[i]) {
			i++
		}
		var val string
		if i < len(body) && (body[i] == '"' || body[i] == '\'') {
			q := body[i]
			end := strings.IndexByte(body[i+1:], q)
			if end < 0 {
				val = body[i+1:]
				i = len(body)
			} else {
				val = body[i+1 : i+1+end]
				i = i + 1 + end + 1
			}
		} else {
			vs := i
			for i < len(body) && !isSpace(body[i]) {
				i++
			}
			val = body[vs:i]
		}
		if key == "" {
			continue
		}
		if _, ok := attrs[key]; !ok {
			attrs[key] = val
		}
	}
	return attrs
}

// findClose looks for </name> (ASCII case-insensitive, optional whitespace
// before '>') at or after from. It returns the offsets of the close tag.
func findClose(s string, from int, name string) (start, end int, ok bool) {
	for from < len(s) {
		j := strings.Index(s[from:], "</")
		if j < 0 {
			return 0, 0, false
		}
		k := from + j
		after := k + 2
		if len(s)-after < len(name) {
			return 0, 0, false
		}
		if strings.EqualFold(s[after:after+len(name)], name) {
			m := after + len(name)
			for m < len(s) && isSpace(s[m]) {
				m++
			}
			if m < len(s) && s[m] == '>' {
				return k, m + 1, true
			}
		}
		from = k + 2
	}
	return 0, 0, false
}

// resumePoint is where a failed close-tag search can safely restart once
// more input arrives: any close tag completed later must begin at the last
// '<' seen, because a close tag never contains another '<'.
func resumePoint(s string, from int) int {
	if from >= len(s) {
		return len(s)
	}
	idx := strings.LastIndexByte(s[from:], '<')
	if idx < 0 {
		return len(s)
	}
	return from + idx
}

// element is a closed child element found inside a construct.
type element struct {
	name  string
	attrs map[string]string
	text  string // raw inner text
	at    int    // offset of the opening '<' within the scanned string
}

// children returns the closed child elements of s whose names are in want,
// in source order. Unclosed children end the scan.
func children(s string, want map[string]bool) []element {
	var out []element
	i := 0
	for i < len(s) {
		lt := strings.IndexByte(s[i:], '<')
		if lt < 0 {
			break
		}
		i += lt
		t, n, ok := readTag(s, i)
		if !ok {
			break
		}
		if t.kind != kindOpen || !want[t.name] {
			i = n
			continue
		}
		if t.selfClosing {
			out = append(out, element{name: t.name, attrs: t.attrs, at: i})
			i = n
			continue
		}
		cs, ce, found := findClose(s, n, t.name)
		if !found {
			break
		}
		out = append(out, element{name: t.name, attrs: t.attrs, text: s[n:cs], at: i})
		i = ce
	}
	return out
}
