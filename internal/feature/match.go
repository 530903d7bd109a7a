package feature

import (
	"regexp"
	"strings"
	"sync"
)

// MatchPattern reports whether filePath matches a glob pattern with
// fnmatch semantics: "*" matches any run of characters including "/",
// "?" matches one character and "[...]" a character class ("[!...]"
// negates). "**/" additionally matches zero directories, and a trailing
// "/**" matches the directory itself. Backslashes and leading "./" are
// normalised before matching.
func MatchPattern(filePath, pattern string) bool {
	filePath = normalizePath(filePath)
	pattern = normalizePath(pattern)
	if filePath == "" || pattern == "" {
		return false
	}
	return compilePattern(pattern).MatchString(filePath)
}

func normalizePath(p string) string {
	p = strings.ReplaceAll(strings.TrimSpace(p), "\\", "/")
	for strings.HasPrefix(p, "./") {
		p = p[2:]
	}
	return strings.TrimPrefix(p, "/")
}

var patternCache sync.Map // pattern -> *regexp.Regexp

func compilePattern(pattern string) *regexp.Regexp {
	if re, ok := patternCache.Load(pattern); ok {
		return re.(*regexp.Regexp)
	}
	re := regexp.MustCompile(translate(pattern))
	patternCache.Store(pattern, re)
	return re
}

// translate turns a glob into an anchored regular expression.
func translate(pattern string) string {
	var b strings.Builder
	b.WriteString(`^`)
	for i := 0; i < len(pattern); {
		c := pattern[i]
		switch {
		case strings.HasPrefix(pattern[i:], "**/"):
			b.WriteString(`(?:.*/)?`)
			i += 3
		case pattern[i:] == "/**":
			b.WriteString(`(?:/.*)?`)
			i += 3
		case c == '*':
			for i < len(pattern) && pattern[i] == '*' {
				i++
			}
			b.WriteString(`.*`)
		case c == '?':
			b.WriteString(`.`)
			i++
		case c == '[':
			class, n := translateClass(pattern[i:])
			b.WriteString(class)
			i += n
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
			i++
		}
	}
	b.WriteString(`$`)
	return b.String()
}

// translateClass converts the bracket expression at the start of s. An
// unterminated "[" is a literal, as in fnmatch.
func translateClass(s string) (string, int) {
	j := 1
	if j < len(s) && s[j] == '!' {
		j++
	}
	if j < len(s) && s[j] == ']' {
		j++
	}
	for j < len(s) && s[j] != ']' {
		j++
	}
	if j >= len(s) {
		return `\[`, 1
	}

	body := s[1:j]
	negate := strings.HasPrefix(body, "!")
	if negate {
		body = body[1:]
	}
	body = strings.ReplaceAll(body, `\`, `\\`)
	body = strings.ReplaceAll(body, `[`, `\[`)
	body = strings.ReplaceAll(body, `]`, `\]`)
	if strings.HasPrefix(body, "^") {
		body = `\` + body
	}
	if negate {
		return "[^" + body + "]", j + 1
	}
	return "[" + body + "]", j + 1
}
