package markup

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// ParseInline is the inline pass: it scans raw left to right and returns
// the span tree. Delimiters without a matching closer stay literal.
func ParseInline(raw string) []Inline {
	var out []Inline
	var text strings.Builder

	flush := func() {
		if text.Len() > 0 {
			out = append(out, Inline{Kind: InlineText, Text: text.String()})
			text.Reset()
		}
	}
	emit := func(n Inline) {
		flush()
		out = append(out, n)
	}

	for i := 0; i < len(raw); {
		c := raw[i]
		switch c {
		case '\\':
			if i+1 < len(raw) && isEscapable(raw[i+1]) {
				text.WriteByte(raw[i+1])
				i += 2
				continue
			}
		case '\n':
			emit(Inline{Kind: InlineBreak})
			i++
			continue
		case '`':
			n := runLength(raw, i, '`')
			if j := findRun(raw, i+n, '`', n); j >= 0 {
				emit(Inline{Kind: InlineCode, Text: trimCodeSpan(raw[i+n : j])})
				i = j + n
				continue
			}
			// No closer: the whole run is literal
			text.WriteString(raw[i : i+n])
			i += n
			continue
		case '!':
			if i+1 < len(raw) && raw[i+1] == '[' {
				if label, url, end, ok := linkTail(raw, i+1, true); ok {
					emit(Inline{Kind: InlineImage, Text: label, URL: url})
					i = end
					continue
				}
			}
		case '[':
			if label, url, end, ok := linkTail(raw, i, false); ok {
				emit(Inline{Kind: InlineLink, URL: url, Children: ParseInline(label)})
				i = end
				continue
			}
		case '*', '_':
			if n, end, ok := emphasis(raw, i); ok {
				emit(n)
				i = end
				continue
			}
		case '~':
			if strings.HasPrefix(raw[i:], "~~") {
				if j := findCloser(raw, i+2, "~~"); j > i+2 {
					emit(Inline{Kind: InlineStrike, Children: ParseInline(raw[i+2 : j])})
					i = j + 2
					continue
				}
			}
		}
		text.WriteByte(c)
		i++
	}
	flush()
	return out
}

// emphasis tries ***x***, **x** / __x__ and *x* / _x_ at raw[i].
func emphasis(raw string, i int) (Inline, int, bool) {
	c := raw[i]
	if c == '_' && !leftBoundary(raw, i) {
		return Inline{}, 0, false
	}
	n := runLength(raw, i, c)

	if c == '*' && n >= 3 {
		if j := findCloser(raw, i+3, "***"); j > i+3 && validInner(raw[i+3:j]) {
			inner := Inline{Kind: InlineEmphasis, Children: ParseInline(raw[i+3 : j])}
			return Inline{Kind: InlineStrong, Children: []Inline{inner}}, j + 3, true
		}
	}

	if n >= 2 {
		delim := raw[i : i+2]
		if j := findCloser(raw, i+2, delim); j > i+2 && validInner(raw[i+2:j]) && (c != '_' || rightBoundary(raw, j+2)) {
			return Inline{Kind: InlineStrong, Children: ParseInline(raw[i+2 : j])}, j + 2, true
		}
		return Inline{}, 0, false
	}

	if j := singleCloser(raw, i+1, c); j > i+1 && validInner(raw[i+1:j]) {
		return Inline{Kind: InlineEmphasis, Children: ParseInline(raw[i+1 : j])}, j + 1, true
	}
	return Inline{}, 0, false
}

// singleCloser finds a lone delimiter c that is not part of a doubled run.
func singleCloser(raw string, from int, c byte) int {
	for j := from; j < len(raw); j++ {
		switch raw[j] {
		case '`':
			n := runLength(raw, j, '`')
			if k := findRun(raw, j+n, '`', n); k >= 0 {
				j = k + n - 1
			}
			continue
		case '\n':
			return -1
		case c:
			if raw[j-1] == c || (j+1 < len(raw) && raw[j+1] == c) {
				continue
			}
			if c == '_' && !rightBoundary(raw, j+1) {
				continue
			}
			return j
		}
	}
	return -1
}

// findCloser returns the index of delim at or after from, skipping code
// spans, or -1.
func findCloser(raw string, from int, delim string) int {
	for j := from; j < len(raw); j++ {
		if raw[j] == '`' {
			n := runLength(raw, j, '`')
			if k := findRun(raw, j+n, '`', n); k >= 0 {
				j = k + n - 1
				continue
			}
		}
		if strings.HasPrefix(raw[j:], delim) {
			return j
		}
	}
	return -1
}

// validInner rejects content that is empty or padded by whitespace.
func validInner(s string) bool {
	if s == "" {
		return false
	}
	first, _ := utf8.DecodeRuneInString(s)
	last, _ := utf8.DecodeLastRuneInString(s)
	return !unicode.IsSpace(first) && !unicode.IsSpace(last)
}

// leftBoundary reports whether raw[i] is not preceded by a letter or digit.
func leftBoundary(raw string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(raw[:i])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// rightBoundary reports whether raw[j:] does not start with a letter or digit.
func rightBoundary(raw string, j int) bool {
	if j >= len(raw) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(raw[j:])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// linkTail parses "[label](url)" starting at the '[' at raw[i].
// Images may have an empty label; links may not.
func linkTail(raw string, i int, image bool) (label, url string, end int, ok bool) {
	depth := 0
	end = -1
	for j := i; j < len(raw) && end < 0; j++ {
		switch raw[j] {
		case '\\':
			j++
		case '\n':
			return "", "", 0, false
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				end = j
			}
		}
	}
	if end < 0 || end+1 >= len(raw) || raw[end+1] != '(' {
		return "", "", 0, false
	}

	closeBracket := end
	depth = 0
	for j := closeBracket + 1; j < len(raw); j++ {
		switch raw[j] {
		case '\n':
			return "", "", 0, false
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				label = raw[i+1 : closeBracket]
				url = linkDestination(raw[closeBracket+2 : j])
				if url == "" || (label == "" && !image) {
					return "", "", 0, false
				}
				return label, url, j + 1, true
			}
		}
	}
	return "", "", 0, false
}

// linkDestination drops an optional quoted title and angle brackets.
func linkDestination(s string) string {
	s = strings.TrimSpace(s)
	if fields := strings.Fields(s); len(fields) > 1 {
		s = fields[0]
	}
	s = strings.TrimPrefix(s, "<")
	s = strings.TrimSuffix(s, ">")
	return s
}

func runLength(raw string, i int, c byte) int {
	n := 0
	for i+n < len(raw) && raw[i+n] == c {
		n++
	}
	return n
}

// findRun finds a run of exactly n bytes c at or after from.
func findRun(raw string, from int, c byte, n int) int {
	for j := from; j < len(raw); {
		if raw[j] != c {
			j++
			continue
		}
		m := runLength(raw, j, c)
		if m == n {
			return j
		}
		j += m
	}
	return -1
}

// trimCodeSpan strips one space of padding on both sides, as in `` ` `` spans.
func trimCodeSpan(s string) string {
	if len(s) >= 2 && s[0] == ' ' && s[len(s)-1] == ' ' && strings.TrimSpace(s) != "" {
		return s[1 : len(s)-1]
	}
	return s
}

func isEscapable(c byte) bool {
	return strings.IndexByte("\\`*_{}[]()#+-.!|~>", c) >= 0
}
