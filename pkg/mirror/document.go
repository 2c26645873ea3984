package mirror

import (
	"bytes"
	"fmt"
	"mime"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/yosssi/gohtml"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	pkgerrors "github.com/glorpus-work/sitegrab/pkg/errors"
	"github.com/glorpus-work/sitegrab/pkg/fsutil"
	"github.com/glorpus-work/sitegrab/pkg/pathmap"
)

var markupTypes = map[string]bool{
	"text/html":             true,
	"application/xhtml+xml": true,
}

// parseDocument decodes body to UTF-8 and parses it. An empty content type is
// accepted; any other non-markup type is a parse failure.
func parseDocument(body []byte, contentType string) (*goquery.Document, error) {
	if contentType != "" {
		mediaType, _, err := mime.ParseMediaType(contentType)
		if err != nil {
			return nil, fmt.Errorf("%w: content type %q: %w", pkgerrors.ErrParseFailed, contentType, err)
		}
		if !markupTypes[strings.ToLower(mediaType)] {
			return nil, fmt.Errorf("%w: content type %q is not HTML", pkgerrors.ErrParseFailed, mediaType)
		}
	}

	_, name, _ := charset.DetermineEncoding(body, contentType)
	r, err := charset.NewReaderLabel(name, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: charset %q: %w", pkgerrors.ErrParseFailed, name, err)
	}

	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", pkgerrors.ErrParseFailed, err)
	}
	doc := goquery.NewDocumentFromNode(root)

	if name != "utf-8" {
		declareUTF8(doc)
	}
	return doc, nil
}

// declareUTF8 updates charset declarations after the content was transcoded.
func declareUTF8(doc *goquery.Document) {
	doc.Find("meta[charset]").SetAttr("charset", "utf-8")
	doc.Find("meta[http-equiv]").Each(func(_ int, s *goquery.Selection) {
		if v, _ := s.Attr("http-equiv"); strings.EqualFold(v, "content-type") {
			s.SetAttr("content", "text/html; charset=utf-8")
		}
	})
}

// resolutionBase returns the URL references resolve against. A same-document
// <base href> wins over the fetched URL; its href is removed so the local
// copy resolves relative to index.html.
func resolutionBase(doc *goquery.Document, fetched *url.URL) *url.URL {
	sel := doc.Find("base[href]").First()
	href, ok := sel.Attr("href")
	if !ok {
		return fetched
	}
	sel.RemoveAttr("href")

	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return fetched
	}
	base := fetched.ResolveReference(ref)
	if !pathmap.IsHTTP(base) {
		return fetched
	}
	return base
}

// localRef turns a local path into the attribute value written to the document.
func localRef(p string) string {
	return (&url.URL{Path: p}).EscapedPath()
}

// renderDocument serializes doc, optionally re-indented.
func renderDocument(doc *goquery.Document, pretty bool) ([]byte, error) {
	var buf bytes.Buffer
	for _, n := range doc.Nodes {
		if err := html.Render(&buf, n); err != nil {
			return nil, fmt.Errorf("%w: render: %w", pkgerrors.ErrWriteFailed, err)
		}
	}
	if !pretty {
		return buf.Bytes(), nil
	}
	out := gohtml.FormatBytes(buf.Bytes())
	if len(out) == 0 || out[len(out)-1] != '\n' {
		out = append(out, '\n')
	}
	return out, nil
}

func writeDocument(doc *goquery.Document, dest string, pretty bool) (string, error) {
	data, err := renderDocument(doc, pretty)
	if err != nil {
		return "", err
	}
	if err := fsutil.EnsureDir(dest); err != nil {
		return "", fmt.Errorf("%w: %w", pkgerrors.ErrWriteFailed, err)
	}
	path := filepath.Join(dest, pathmap.RootDocument)
	if err := fsutil.WriteFileAtomic(path, data, fsutil.FileModeDefault); err != nil {
		return "", fmt.Errorf("%w: %w", pkgerrors.ErrWriteFailed, err)
	}
	return path, nil
}
