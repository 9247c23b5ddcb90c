package host

import (
	"slices"

	"go.trai.ch/scarb/internal/core/domain"
)

// spanAdapter presents an item to a plugin as if the expanded attribute were its first
// attribute. Tokens before the attribute move toward the end of the item by the attribute
// width. Tokens after it keep their offsets.
type spanAdapter struct {
	itemStart uint32
	attr      domain.TextSpan
	// callSite is attr without its trailing trivia.
	callSite domain.TextSpan
}

func newSpanAdapter(itemStart uint32, a attribute) spanAdapter {
	return spanAdapter{itemStart: itemStart, attr: a.spanWithTrivia, callSite: a.span}
}

// identityAdapter leaves every offset unchanged.
func identityAdapter() spanAdapter {
	return spanAdapter{}
}

func (a spanAdapter) width() uint32 {
	return a.attr.Width()
}

// adapt maps an offset of the current file to the offset seen by the plugin.
func (a spanAdapter) adapt(off uint32) uint32 {
	if off >= a.itemStart && off < a.attr.Start {
		return off + a.width()
	}
	return off
}

// original maps an offset seen by the plugin back to the current file.
func (a spanAdapter) original(off uint32) uint32 {
	w := a.width()
	switch {
	case w == 0:
		return off
	case off >= a.itemStart && off < a.itemStart+w:
		return a.inCallSite(off)
	case off >= a.itemStart+w && off < a.attr.End:
		return off - w
	default:
		return off
	}
}

// inCallSite maps an offset of the adapted attribute region onto the attribute.
// Offsets in its trailing trivia land on the attribute end.
func (a spanAdapter) inCallSite(off uint32) uint32 {
	return a.callSite.Start + min(off-a.itemStart, a.callSite.Width())
}

func (a spanAdapter) originalSpan(s domain.TextSpan) domain.TextSpan {
	w := a.width()
	if w > 0 && s.Start >= a.itemStart && s.Start < a.itemStart+w && s.End <= a.itemStart+w {
		return domain.TextSpan{Start: a.inCallSite(s.Start), End: a.inCallSite(max(s.End, s.Start))}
	}
	out := domain.TextSpan{Start: a.original(s.Start), End: a.original(s.End)}
	if out.End < out.Start {
		out.End = out.Start + s.Width()
	}
	return out
}

// originalOrigin maps a code origin reported by the plugin back to the current file.
func (a spanAdapter) originalOrigin(o domain.CodeOrigin) domain.CodeOrigin {
	switch o.Kind {
	case domain.OriginStart:
		o.Start = a.original(o.Start)
	default:
		o.Span = a.originalSpan(o.Span)
	}
	return o
}

// tokenStream builds the plugin input from toks[from:to], skipping tokens inside skip.
func (a spanAdapter) tokenStream(toks []token, from, to int, skip domain.TextSpan, meta domain.TokenStreamMetadata) domain.TokenStream {
	ts := domain.TokenStream{Metadata: meta}
	for _, t := range toks[from:to] {
		if skip.Width() > 0 && t.start >= skip.Start && t.end <= skip.End {
			continue
		}
		ts.Tokens = append(ts.Tokens, domain.Token{
			Content: t.text,
			Span:    domain.TextSpan{Start: a.adapt(t.start), End: a.adapt(t.start) + (t.end - t.start)},
		})
	}
	return ts
}

// tokensIn returns the token index range covering span.
func tokensIn(toks []token, span domain.TextSpan) (int, int) {
	from, _ := slices.BinarySearchFunc(toks, span.Start, func(t token, off uint32) int {
		return int(int64(t.start) - int64(off))
	})
	to := from
	for to < len(toks) && toks[to].end <= span.End {
		to++
	}
	return from, to
}

// sourceMap maps every byte of the current text to the original file.
// Segments are sorted and cover the current text without gaps.
type sourceMap []domain.CodeMapping

func identityMap(n uint32) sourceMap {
	span := domain.TextSpan{Start: 0, End: n}
	return sourceMap{{Span: span, Origin: domain.CodeOrigin{Kind: domain.OriginSpan, Span: span}}}
}

// translate maps a span of the current text to the original file.
func (m sourceMap) translate(s domain.TextSpan) domain.CodeOrigin {
	for _, seg := range m {
		if s.Start < seg.Span.Start || s.Start >= seg.Span.End {
			continue
		}
		if seg.Origin.Kind == domain.OriginSpan && s.End <= seg.Span.End {
			start := seg.Origin.Span.Start + (s.Start - seg.Span.Start)
			return domain.CodeOrigin{Kind: domain.OriginSpan, Span: domain.TextSpan{Start: start, End: start + s.Width()}}
		}
		return seg.Origin
	}
	if len(m) > 0 {
		return m[len(m)-1].Origin
	}
	return domain.CodeOrigin{Kind: domain.OriginSpan, Span: s}
}

func (m sourceMap) translateOrigin(o domain.CodeOrigin) domain.CodeOrigin {
	switch o.Kind {
	case domain.OriginStart:
		t := m.translate(domain.TextSpan{Start: o.Start, End: o.Start})
		if t.Kind == domain.OriginSpan {
			return domain.CodeOrigin{Kind: domain.OriginStart, Start: t.Span.Start}
		}
		return t
	case domain.OriginCallSite:
		t := m.translate(o.Span)
		return domain.CodeOrigin{Kind: domain.OriginCallSite, Span: t.Span}
	default:
		return m.translate(o.Span)
	}
}

// replace returns the map after span of the current text was replaced by n bytes.
// Mappings of the inserted text are relative to it, with origins in current coordinates.
func (m sourceMap) replace(span domain.TextSpan, n uint32, inserted []domain.CodeMapping) sourceMap {
	var out sourceMap
	for _, seg := range m {
		switch {
		case seg.Span.End <= span.Start:
			out = append(out, seg)
		case seg.Span.Start >= span.End:
			out = append(out, shiftSegment(seg, span.Start+n, span.End))
		default:
			if seg.Span.Start < span.Start {
				out = append(out, clip(seg, seg.Span.Start, span.Start))
			}
			if seg.Span.End > span.End {
				out = append(out, shiftSegment(clip(seg, span.End, seg.Span.End), span.Start+n, span.End))
			}
		}
	}
	for _, mapping := range inserted {
		if mapping.Span.Width() == 0 {
			continue
		}
		out = append(out, domain.CodeMapping{
			Span:   domain.TextSpan{Start: span.Start + mapping.Span.Start, End: span.Start + mapping.Span.End},
			Origin: m.translateOrigin(mapping.Origin),
		})
	}
	slices.SortStableFunc(out, func(a, b domain.CodeMapping) int {
		return int(int64(a.Span.Start) - int64(b.Span.Start))
	})
	return out
}

// clip restricts seg to [start, end).
func clip(seg domain.CodeMapping, start, end uint32) domain.CodeMapping {
	if seg.Origin.Kind == domain.OriginSpan {
		seg.Origin.Span.Start += start - seg.Span.Start
		seg.Origin.Span.End = seg.Origin.Span.Start + (end - start)
	}
	seg.Span = domain.TextSpan{Start: start, End: end}
	return seg
}

// shiftSegment moves seg, which starts at or after oldEnd, so oldEnd lands on newEnd.
func shiftSegment(seg domain.CodeMapping, newEnd, oldEnd uint32) domain.CodeMapping {
	seg.Span.Start = seg.Span.Start - oldEnd + newEnd
	seg.Span.End = seg.Span.End - oldEnd + newEnd
	return seg
}
