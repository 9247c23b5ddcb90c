package host

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind uint8

const (
	tokWhitespace tokenKind = iota
	tokComment
	tokIdent
	tokNumber
	tokString
	tokShortString
	tokPunct
)

// token is one lexeme of Cairo source. Offsets are byte offsets into the file.
type token struct {
	kind  tokenKind
	start uint32
	end   uint32
	text  string
}

func (t token) trivia() bool {
	return t.kind == tokWhitespace || t.kind == tokComment
}

func (t token) is(punct string) bool {
	return t.kind == tokPunct && t.text == punct
}

// lex splits src into tokens. Every byte of src belongs to exactly one token.
func lex(src string) []token {
	var toks []token
	i := 0
	emit := func(kind tokenKind, end int) {
		toks = append(toks, token{kind: kind, start: uint32(i), end: uint32(end), text: src[i:end]})
		i = end
	}
	for i < len(src) {
		r, size := utf8.DecodeRuneInString(src[i:])
		switch {
		case unicode.IsSpace(r):
			j := i + size
			for j < len(src) {
				r, s := utf8.DecodeRuneInString(src[j:])
				if !unicode.IsSpace(r) {
					break
				}
				j += s
			}
			emit(tokWhitespace, j)
		case strings.HasPrefix(src[i:], "//"):
			j := strings.IndexByte(src[i:], '\n')
			if j < 0 {
				emit(tokComment, len(src))
			} else {
				emit(tokComment, i+j)
			}
		case r == '_' || unicode.IsLetter(r):
			j := i + size
			for j < len(src) {
				r, s := utf8.DecodeRuneInString(src[j:])
				if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
					break
				}
				j += s
			}
			emit(tokIdent, j)
		case unicode.IsDigit(r):
			j := i + size
			for j < len(src) && (isAlnum(src[j]) || src[j] == '_') {
				j++
			}
			emit(tokNumber, j)
		case r == '"':
			emit(tokString, quoted(src, i, '"'))
		case r == '\'':
			emit(tokShortString, quoted(src, i, '\''))
		default:
			emit(tokPunct, i+size)
		}
	}
	return toks
}

// quoted returns the end offset of the literal opened at start, honoring backslash escapes.
func quoted(src string, start int, quote byte) int {
	j := start + 1
	for j < len(src) {
		switch src[j] {
		case '\\':
			j += 2
			continue
		case quote:
			return j + 1
		}
		j++
	}
	return len(src)
}

func isAlnum(b byte) bool {
	return b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}

func closing(open string) string {
	switch open {
	case "(":
		return ")"
	case "[":
		return "]"
	case "{":
		return "}"
	}
	return ""
}

// matching returns the index of the token closing the bracket at toks[open], or -1.
func matching(toks []token, open int) int {
	want := closing(toks[open].text)
	depth := 0
	for i := open; i < len(toks); i++ {
		t := toks[i]
		if t.kind != tokPunct {
			continue
		}
		switch t.text {
		case "(", "[", "{":
			depth++
		case ")", "]", "}":
			depth--
			if depth == 0 {
				if t.text != want {
					return -1
				}
				return i
			}
		}
	}
	return -1
}

// nextSignificant returns the index of the first non-trivia token at or after i, or len(toks).
func nextSignificant(toks []token, i, limit int) int {
	for i < limit && toks[i].trivia() {
		i++
	}
	return i
}
