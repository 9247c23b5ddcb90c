package host

import (
	"strings"

	"go.trai.ch/scarb/internal/core/domain"
)

// attribute is an outer `#[name(args)]` attribute of an item.
type attribute struct {
	name string
	// span covers `#[...]` only.
	span domain.TextSpan
	// spanWithTrivia also covers the trivia following the attribute.
	spanWithTrivia domain.TextSpan
	// args is the text between the parentheses, empty when there are none.
	args    domain.TextSpan
	hasArgs bool
}

// item is a module level item or an item nested in a container item.
type item struct {
	// span starts at the first attribute or keyword and ends after the closing `;` or `}`.
	span    domain.TextSpan
	attrs   []attribute
	keyword string
	// members are the items nested in the braces of a container item.
	members []item
	// first and last are token indexes of the item.
	first, last int
}

// inlineCall is a `name!(...)` invocation.
type inlineCall struct {
	name string
	span domain.TextSpan
	// args includes the delimiters.
	args domain.TextSpan
}

// scanItems splits toks[from:to] into items. Unparseable trailing tokens are ignored.
func scanItems(toks []token, from, to int) []item {
	var items []item
	i := nextSignificant(toks, from, to)
	for i < to {
		it, next, ok := scanItem(toks, i, to)
		if !ok {
			break
		}
		items = append(items, it)
		i = nextSignificant(toks, next, to)
	}
	return items
}

func scanItem(toks []token, start, to int) (item, int, bool) {
	it := item{first: start}
	i := start
	for i+1 < to && toks[i].is("#") && toks[i+1].is("[") {
		attr, next, ok := scanAttribute(toks, i, to)
		if !ok {
			return item{}, 0, false
		}
		it.attrs = append(it.attrs, attr)
		i = nextSignificant(toks, next, to)
	}
	it.keyword = keyword(toks, i, to)

	// Only a semicolon ends these items; their braces belong to paths or values.
	semicolonOnly := it.keyword == "use" || it.keyword == "const" || it.keyword == "type"

	end := -1
	bodyOpen := -1
	for j := i; j < to; j++ {
		t := toks[j]
		if t.is(";") {
			end = j
			break
		}
		if t.is("{") && !semicolonOnly {
			closeIdx := matching(toks, j)
			if closeIdx < 0 || closeIdx >= to {
				return item{}, 0, false
			}
			bodyOpen = j
			end = closeIdx
			break
		}
		if t.is("(") || t.is("[") || t.is("{") {
			closeIdx := matching(toks, j)
			if closeIdx < 0 || closeIdx >= to {
				return item{}, 0, false
			}
			j = closeIdx
		}
	}
	if end < 0 {
		return item{}, 0, false
	}

	it.last = end
	it.span = domain.TextSpan{Start: toks[start].start, End: toks[end].end}
	if bodyOpen >= 0 && (it.keyword == "impl" || it.keyword == "trait" || it.keyword == "mod") {
		it.members = scanItems(toks, bodyOpen+1, it.last)
	}
	return it, end + 1, true
}

func scanAttribute(toks []token, start, to int) (attribute, int, bool) {
	closeIdx := matching(toks, start+1)
	if closeIdx < 0 || closeIdx >= to {
		return attribute{}, 0, false
	}
	var name strings.Builder
	i := nextSignificant(toks, start+2, closeIdx)
	for i < closeIdx && (toks[i].kind == tokIdent || toks[i].is(":")) {
		name.WriteString(toks[i].text)
		i++
	}
	attr := attribute{
		name: name.String(),
		span: domain.TextSpan{Start: toks[start].start, End: toks[closeIdx].end},
	}
	i = nextSignificant(toks, i, closeIdx)
	if i < closeIdx && toks[i].is("(") {
		argsClose := matching(toks, i)
		if argsClose > 0 && argsClose < closeIdx {
			attr.hasArgs = true
			attr.args = domain.TextSpan{Start: toks[i].end, End: toks[argsClose].start}
		}
	}
	after := nextSignificant(toks, closeIdx+1, to)
	end := toks[closeIdx].end
	if after > closeIdx+1 {
		end = toks[after-1].end
	}
	attr.spanWithTrivia = domain.TextSpan{Start: attr.span.Start, End: end}
	return attr, closeIdx + 1, true
}

// keyword returns the item keyword, skipping visibility and `extern`.
func keyword(toks []token, i, to int) string {
	for i < to {
		i = nextSignificant(toks, i, to)
		if i >= to || toks[i].kind != tokIdent {
			return ""
		}
		switch toks[i].text {
		case "pub":
			i++
			if next := nextSignificant(toks, i, to); next < to && toks[next].is("(") {
				if closeIdx := matching(toks, next); closeIdx > 0 {
					i = closeIdx + 1
				}
			}
		case "extern":
			i++
		default:
			return toks[i].text
		}
	}
	return ""
}

// inlineCalls finds `name!(...)` invocations in toks[from:to] whose name passes accept.
// Calls nested inside another accepted call are left for a later pass.
func inlineCalls(toks []token, from, to int, accept func(string) bool) []inlineCall {
	var calls []inlineCall
	for i := from; i+2 < to; i++ {
		if toks[i].kind != tokIdent || !toks[i+1].is("!") {
			continue
		}
		open := toks[i+2]
		if !open.is("(") && !open.is("[") && !open.is("{") {
			continue
		}
		if !accept(toks[i].text) {
			continue
		}
		closeIdx := matching(toks, i+2)
		if closeIdx < 0 || closeIdx >= to {
			continue
		}
		calls = append(calls, inlineCall{
			name: toks[i].text,
			span: domain.TextSpan{Start: toks[i].start, End: toks[closeIdx].end},
			args: domain.TextSpan{Start: open.start, End: toks[closeIdx].end},
		})
		i = closeIdx
	}
	return calls
}

// deriveNames splits the arguments of a derive attribute.
func deriveNames(src string, attr attribute) []string {
	if !attr.hasArgs {
		return nil
	}
	var names []string
	for _, part := range strings.Split(src[attr.args.Start:attr.args.End], ",") {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	return names
}
