package host

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"go.trai.ch/scarb/internal/core/domain"
	"go.trai.ch/scarb/internal/core/ports"
	"go.trai.ch/zerr"
)

// FileExpansion is the outcome of expanding one source file.
type FileExpansion struct {
	// File replaces the source file in the compiler. It is nil when nothing was expanded.
	File        *domain.VirtualFile
	Diagnostics []domain.Diagnostic
}

// HasErrors reports whether a plugin reported an error.
func (e *FileExpansion) HasErrors() bool {
	for _, d := range e.Diagnostics {
		if d.Severity == domain.SeverityError {
			return true
		}
	}
	return false
}

type edit struct {
	span domain.TextSpan
	text string
	// mappings are relative to text, with origins in the coordinates of the current pass.
	mappings []domain.CodeMapping
}

type fileExpander struct {
	h     *Host
	path  string
	meta  domain.TokenStreamMetadata
	src   string
	toks  []token
	smap  sourceMap
	diags []domain.Diagnostic
	note  string
	// kept holds attributes, by their original location, whose expansion left the item as is.
	kept map[keptAttr]bool
}

type keptAttr struct {
	name string
	at   domain.TextSpan
}

// ExpandFile expands every macro invocation in content until no plugin macro is left.
// Each pass expands at most one attribute per item, together with its derives and inline macros.
func (h *Host) ExpandFile(path, content string, edition domain.Edition) (*FileExpansion, error) {
	if h.IsEmpty() {
		return &FileExpansion{}, nil
	}
	x := &fileExpander{
		h:    h,
		path: path,
		meta: domain.TokenStreamMetadata{OriginalFilePath: path, FileID: path, Edition: string(edition)},
		src:  content,
		smap: identityMap(uint32(len(content))),
		kept: make(map[keptAttr]bool),
	}
	for pass := 0; ; pass++ {
		if pass == MaxPasses {
			return nil, zerr.With(zerr.With(zerr.Wrap(domain.ErrExpansionFailed, "macro expansion did not reach a fixpoint"),
				"file", path), "passes", MaxPasses)
		}
		x.toks = lex(x.src)
		var edits []edit
		for _, it := range scanItems(x.toks, 0, len(x.toks)) {
			e, err := x.item(it)
			if err != nil {
				return nil, err
			}
			edits = append(edits, e...)
		}
		if len(edits) == 0 {
			break
		}
		x.apply(edits)
	}

	out := &FileExpansion{Diagnostics: x.diags}
	if x.src != content {
		out.File = &domain.VirtualFile{Path: path, Content: x.src, CodeMappings: x.smap, Note: x.note}
	}
	return out, nil
}

func (x *fileExpander) item(it item) ([]edit, error) {
	for i, attr := range it.attrs {
		if reg, ok := x.h.attrs[attr.name]; ok && !x.isKept(attr) {
			return x.attribute(it, i, reg)
		}
	}

	var edits []edit
	for _, m := range it.members {
		e, err := x.item(m)
		if err != nil {
			return nil, err
		}
		edits = append(edits, e...)
	}
	if len(edits) > 0 {
		return edits, nil
	}

	for _, attr := range it.attrs {
		if attr.name != "derive" {
			continue
		}
		e, err := x.derive(it, attr)
		if err != nil {
			return nil, err
		}
		edits = append(edits, e...)
	}
	e, err := x.inline(it)
	if err != nil {
		return nil, err
	}
	return append(edits, e...), nil
}

func (x *fileExpander) attribute(it item, i int, reg registered) ([]edit, error) {
	attr := it.attrs[i]
	adapter := newSpanAdapter(it.span.Start, attr)
	callSite := domain.TextSpan{Start: it.span.Start, End: it.span.Start + attr.span.Width()}
	req := ports.ExpandRequest{
		CallSite: callSite,
		Args:     x.stream(attr.args, attr.hasArgs),
		Item:     adapter.tokenStream(x.toks, it.first, it.last+1, attr.spanWithTrivia, x.meta),
	}
	res, err := x.h.call(reg, req, x.path)
	if err != nil {
		return nil, err
	}
	x.collect(res.Diagnostics, adapter, attr.span)
	if res.HasErrors() {
		return []edit{{span: attr.spanWithTrivia}}, nil
	}
	text := res.TokenStream.String()
	if len(res.AuxData) == 0 && text == req.Item.String() && x.lastAttribute(it, i) {
		x.kept[x.keyOf(attr)] = true
		return x.item(it)
	}
	x.noteFor("attribute", attr.name)
	return []edit{{span: it.span, text: text, mappings: x.mappings(res, adapter, attr.span, len(text))}}, nil
}

// lastAttribute reports whether no macro attribute after it.attrs[i] is left to expand.
func (x *fileExpander) lastAttribute(it item, i int) bool {
	for _, attr := range it.attrs[i+1:] {
		if _, ok := x.h.attrs[attr.name]; ok && !x.isKept(attr) {
			return false
		}
	}
	return true
}

func (x *fileExpander) keyOf(attr attribute) keptAttr {
	return keptAttr{name: attr.name, at: x.smap.translate(attr.span).Span}
}

func (x *fileExpander) isKept(attr attribute) bool {
	return x.kept[x.keyOf(attr)]
}

func (x *fileExpander) derive(it item, attr attribute) ([]edit, error) {
	var handled, rest []string
	for _, name := range deriveNames(x.src, attr) {
		if _, ok := x.h.derives[name]; ok {
			handled = append(handled, name)
		} else {
			rest = append(rest, name)
		}
	}
	if len(handled) == 0 {
		return nil, nil
	}

	item := identityAdapter().tokenStream(x.toks, it.first, it.last+1, domain.TextSpan{}, x.meta)
	var generated strings.Builder
	var mappings []domain.CodeMapping
	for _, name := range handled {
		res, err := x.h.call(x.h.derives[name], ports.ExpandRequest{CallSite: attr.span, Item: item}, x.path)
		if err != nil {
			return nil, err
		}
		x.collect(res.Diagnostics, identityAdapter(), attr.span)
		if res.HasErrors() {
			continue
		}
		x.noteFor("derive", name)
		text := res.TokenStream.String()
		generated.WriteString("\n")
		offset := uint32(generated.Len())
		for _, m := range x.mappings(res, identityAdapter(), attr.span, len(text)) {
			m.Span.Start += offset
			m.Span.End += offset
			mappings = append(mappings, m)
		}
		generated.WriteString(text)
	}
	mappings = coverGaps(mappings, generated.Len(), callSiteOrigin(attr.span))

	remove := edit{span: attr.spanWithTrivia}
	if len(rest) > 0 {
		text := strings.Join(rest, ", ")
		remove = edit{
			span:     attr.args,
			text:     text,
			mappings: coverGaps(nil, len(text), callSiteOrigin(attr.args)),
		}
	}
	insert := edit{
		span:     domain.TextSpan{Start: it.span.End, End: it.span.End},
		text:     generated.String(),
		mappings: mappings,
	}
	return []edit{remove, insert}, nil
}

func (x *fileExpander) inline(it item) ([]edit, error) {
	start := it.span.Start
	if n := len(it.attrs); n > 0 {
		start = it.attrs[n-1].spanWithTrivia.End
	}
	from, to := tokensIn(x.toks, domain.TextSpan{Start: start, End: it.span.End})
	calls := inlineCalls(x.toks, from, to, func(name string) bool {
		_, ok := x.h.inline[name]
		return ok
	})

	var edits []edit
	for _, call := range calls {
		req := ports.ExpandRequest{CallSite: call.span, Args: x.stream(call.args, true)}
		res, err := x.h.call(x.h.inline[call.name], req, x.path)
		if err != nil {
			return nil, err
		}
		x.collect(res.Diagnostics, identityAdapter(), call.span)
		x.noteFor("inline", call.name)
		text := res.TokenStream.String()
		edits = append(edits, edit{span: call.span, text: text, mappings: x.mappings(res, identityAdapter(), call.span, len(text))})
	}
	return edits, nil
}

// stream returns the tokens of span with their file offsets.
func (x *fileExpander) stream(span domain.TextSpan, ok bool) domain.TokenStream {
	if !ok {
		return domain.TokenStream{Metadata: x.meta}
	}
	from, to := tokensIn(x.toks, span)
	return identityAdapter().tokenStream(x.toks, from, to, domain.TextSpan{}, x.meta)
}

// mappings converts plugin code mappings to the current pass, filling gaps with the call site.
func (x *fileExpander) mappings(res *domain.ProcMacroResult, adapter spanAdapter, callSite domain.TextSpan, n int) []domain.CodeMapping {
	out := make([]domain.CodeMapping, 0, len(res.CodeMappings))
	for _, m := range res.CodeMappings {
		if m.Origin.Kind == domain.OriginCallSite {
			m.Origin.Span = callSite
		} else {
			m.Origin = adapter.originalOrigin(m.Origin)
		}
		out = append(out, m)
	}
	return coverGaps(out, n, callSiteOrigin(callSite))
}

// collect records plugin diagnostics with spans pointing into the original file.
func (x *fileExpander) collect(diags []domain.Diagnostic, adapter spanAdapter, callSite domain.TextSpan) {
	for _, d := range diags {
		span := callSite
		if d.Span != nil {
			span = adapter.originalSpan(*d.Span)
		}
		origin := x.smap.translate(span)
		d.Span = &origin.Span
		d.File = x.path
		x.diags = append(x.diags, d)
	}
}

func (x *fileExpander) noteFor(kind, name string) {
	if x.note == "" {
		x.note = fmt.Sprintf("this error originates in the %s macro: `%s`", kind, name)
	}
}

// apply performs non-overlapping edits from the end of the file backwards so that
// the offsets of the remaining edits stay valid.
func (x *fileExpander) apply(edits []edit) {
	slices.SortFunc(edits, func(a, b edit) int {
		if c := cmp.Compare(b.span.Start, a.span.Start); c != 0 {
			return c
		}
		return cmp.Compare(b.span.End, a.span.End)
	})
	for _, e := range edits {
		x.smap = x.smap.replace(e.span, uint32(len(e.text)), e.mappings)
		x.src = x.src[:e.span.Start] + e.text + x.src[e.span.End:]
	}
}

func callSiteOrigin(span domain.TextSpan) domain.CodeOrigin {
	return domain.CodeOrigin{Kind: domain.OriginCallSite, Span: span}
}

// coverGaps sorts mappings, drops overlaps and maps every uncovered byte of [0, n) to fallback.
func coverGaps(mappings []domain.CodeMapping, n int, fallback domain.CodeOrigin) []domain.CodeMapping {
	slices.SortStableFunc(mappings, func(a, b domain.CodeMapping) int {
		return cmp.Compare(a.Span.Start, b.Span.Start)
	})
	end := uint32(n)
	var out []domain.CodeMapping
	var pos uint32
	for _, m := range mappings {
		m.Span.End = min(m.Span.End, end)
		if m.Span.Start < pos {
			m.Span.Start = pos
		}
		if m.Span.Start >= m.Span.End {
			continue
		}
		if m.Span.Start > pos {
			out = append(out, domain.CodeMapping{Span: domain.TextSpan{Start: pos, End: m.Span.Start}, Origin: fallback})
		}
		out = append(out, m)
		pos = m.Span.End
	}
	if pos < end {
		out = append(out, domain.CodeMapping{Span: domain.TextSpan{Start: pos, End: end}, Origin: fallback})
	}
	return out
}
