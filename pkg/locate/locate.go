// Package locate finds subresource references in a parsed HTML document.
package locate

import (
	"iter"
	"regexp"
	"strings"
	"sync/atomic"

	"github.com/PuerkitoBio/goquery"
)

// Reference is one URL found in an element attribute.
type Reference struct {
	Tag  string
	Attr string
	Raw  string
	Kind Kind

	set func(string)
}

// Set replaces this reference's URL in the document. For srcset and inline
// style attributes only this reference's portion of the value changes.
func (r Reference) Set(value string) {
	if r.set != nil {
		r.set(value)
	}
}

// Locator scans documents with a fixed rule table.
type Locator struct {
	rules []Rule
}

// New creates a Locator for the given rules.
func New(rules []Rule) *Locator {
	return &Locator{rules: append([]Rule(nil), rules...)}
}

// Locate scans doc with DefaultRules.
func Locate(doc *goquery.Document, kinds Kinds) iter.Seq[Reference] {
	return New(DefaultRules).Locate(doc, kinds)
}

// Locate returns the references of the enabled kinds in document order, then
// rule order within an element. The sequence is lazy and can be consumed once;
// later iterations yield nothing.
func (l *Locator) Locate(doc *goquery.Document, kinds Kinds) iter.Seq[Reference] {
	var active []Rule
	for _, r := range l.rules {
		if kinds.Enabled(r.Kind) {
			active = append(active, r)
		}
	}

	var consumed atomic.Bool
	return func(yield func(Reference) bool) {
		if consumed.Swap(true) || doc == nil || len(active) == 0 {
			return
		}
		for _, sel := range doc.Find("*").EachIter() {
			tag := goquery.NodeName(sel)
			for _, rule := range active {
				if rule.Tag != AnyTag && rule.Tag != tag {
					continue
				}
				value, ok := sel.Attr(rule.Attr)
				if !ok || strings.TrimSpace(value) == "" {
					continue
				}
				for _, ref := range expand(sel, tag, rule, value) {
					if !yield(ref) {
						return
					}
				}
			}
		}
	}
}

func expand(sel *goquery.Selection, tag string, rule Rule, value string) []Reference {
	switch rule.Format {
	case SrcSet:
		return srcSetRefs(sel, tag, rule, value)
	case StyleURLs:
		return styleRefs(sel, tag, rule, value)
	default:
		return []Reference{{
			Tag:  tag,
			Attr: rule.Attr,
			Raw:  strings.TrimSpace(value),
			Kind: rule.Kind,
			set:  func(v string) { sel.SetAttr(rule.Attr, v) },
		}}
	}
}

type candidate struct {
	url        string
	descriptor string
}

// srcSet holds the parsed candidates of one srcset attribute so that each
// candidate can be rewritten independently.
type srcSet struct {
	sel        *goquery.Selection
	attr       string
	candidates []candidate
}

func (s *srcSet) render() {
	parts := make([]string, len(s.candidates))
	for i, c := range s.candidates {
		if c.descriptor == "" {
			parts[i] = c.url
			continue
		}
		parts[i] = c.url + " " + c.descriptor
	}
	s.sel.SetAttr(s.attr, strings.Join(parts, ", "))
}

func srcSetRefs(sel *goquery.Selection, tag string, rule Rule, value string) []Reference {
	set := &srcSet{sel: sel, attr: rule.Attr}
	for _, part := range strings.Split(value, ",") {
		fields := strings.Fields(part)
		if len(fields) == 0 {
			continue
		}
		set.candidates = append(set.candidates, candidate{
			url:        fields[0],
			descriptor: strings.Join(fields[1:], " "),
		})
	}

	refs := make([]Reference, 0, len(set.candidates))
	for i, c := range set.candidates {
		refs = append(refs, Reference{
			Tag:  tag,
			Attr: rule.Attr,
			Raw:  c.url,
			Kind: rule.Kind,
			set: func(v string) {
				set.candidates[i].url = v
				set.render()
			},
		})
	}
	return refs
}

var styleURL = regexp.MustCompile(`url\(\s*(?:'([^']*)'|"([^"]*)"|([^'")\s]+))\s*\)`)

// styleValue splits an inline style into literal text and url() arguments.
type styleValue struct {
	sel    *goquery.Selection
	attr   string
	pieces []string
}

func (s *styleValue) render() {
	s.sel.SetAttr(s.attr, strings.Join(s.pieces, ""))
}

func styleRefs(sel *goquery.Selection, tag string, rule Rule, value string) []Reference {
	matches := styleURL.FindAllStringSubmatchIndex(value, -1)
	if len(matches) == 0 {
		return nil
	}

	sv := &styleValue{sel: sel, attr: rule.Attr}
	var urlPieces []int
	last := 0
	for _, m := range matches {
		// m holds start/end pairs: whole match, then the three alternatives
		start, end := -1, -1
		for g := 1; g <= 3; g++ {
			if m[2*g] >= 0 {
				start, end = m[2*g], m[2*g+1]
				break
			}
		}
		if start < 0 || strings.TrimSpace(value[start:end]) == "" {
			continue
		}
		sv.pieces = append(sv.pieces, value[last:start])
		urlPieces = append(urlPieces, len(sv.pieces))
		sv.pieces = append(sv.pieces, value[start:end])
		last = end
	}
	sv.pieces = append(sv.pieces, value[last:])

	refs := make([]Reference, 0, len(urlPieces))
	for _, idx := range urlPieces {
		refs = append(refs, Reference{
			Tag:  tag,
			Attr: rule.Attr,
			Raw:  strings.TrimSpace(sv.pieces[idx]),
			Kind: rule.Kind,
			set: func(v string) {
				sv.pieces[idx] = v
				sv.render()
			},
		})
	}
	return refs
}
