// Package sitecheck inspects a generated HTML site: it reads the index title,
// counts pages and finds relative links that point at files which were not
// generated.
package sitecheck

import (
	"errors"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/net/html"

	berrors "git.home.luguber.info/inful/sphinxctl/internal/errors"
)

// IndexFile is the entry page every HTML build must produce.
const IndexFile = "index.html"

// ErrNoIndex is returned when the site has no index page.
var ErrNoIndex = errors.New("site has no " + IndexFile)

// Link is a reference found in a page.
type Link struct {
	URL       string
	Tag       string
	Attribute string
}

// BrokenLink is a relative link whose target does not exist in the site.
type BrokenLink struct {
	Page string // relative to the site root, slash separated
	URL  string
}

// Report summarises one site.
type Report struct {
	Root        string
	Title       string
	Pages       int
	BrokenLinks []BrokenLink
}

// Inspect walks the site rooted at dir.
func Inspect(dir string) (*Report, error) {
	dir = filepath.Clean(dir)
	index := filepath.Join(dir, IndexFile)
	if _, err := os.Stat(index); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNoIndex
		}
		return nil, berrors.FileSystemError("stat", index, err)
	}

	rep := &Report{Root: dir}
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".html") {
			return nil
		}
		rep.Pages++

		f, err := os.Open(filepath.Clean(path))
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()

		doc, err := html.Parse(f)
		if err != nil {
			return berrors.Wrap(err, berrors.CategoryValidation, berrors.SeverityError, "parse HTML").
				WithContext("path", path)
		}
		if path == index {
			rep.Title = Title(doc)
		}
		rel, _ := filepath.Rel(dir, path)
		for _, l := range collectLinks(doc) {
			target, ok := localTarget(filepath.Dir(path), l.URL)
			if !ok {
				continue
			}
			if _, statErr := os.Stat(target); statErr != nil {
				rep.BrokenLinks = append(rep.BrokenLinks, BrokenLink{Page: filepath.ToSlash(rel), URL: l.URL})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(rep.BrokenLinks, func(i, j int) bool {
		if rep.BrokenLinks[i].Page != rep.BrokenLinks[j].Page {
			return rep.BrokenLinks[i].Page < rep.BrokenLinks[j].Page
		}
		return rep.BrokenLinks[i].URL < rep.BrokenLinks[j].URL
	})
	return rep, nil
}

// ExtractLinks parses r and returns every href/src reference in document order.
func ExtractLinks(r io.Reader) ([]Link, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, berrors.Wrap(err, berrors.CategoryValidation, berrors.SeverityError, "parse HTML")
	}
	return collectLinks(doc), nil
}

// Title returns the trimmed text of the first <title> element.
func Title(doc *html.Node) string {
	var find func(*html.Node) *html.Node
	find = func(n *html.Node) *html.Node {
		if n.Type == html.ElementNode && n.Data == "title" {
			return n
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if t := find(c); t != nil {
				return t
			}
		}
		return nil
	}
	if t := find(doc); t != nil {
		return strings.Join(strings.Fields(extractText(t)), " ")
	}
	return ""
}

func collectLinks(doc *html.Node) []Link {
	var links []Link
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			attr := ""
			switch n.Data {
			case "a", "link":
				attr = "href"
			case "img", "script", "source", "video", "audio":
				attr = "src"
			}
			if attr != "" {
				if v := getAttr(n, attr); v != "" {
					links = append(links, Link{URL: v, Tag: n.Data, Attribute: attr})
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return links
}

// localTarget resolves a relative link against pageDir. It reports false for
// fragments, absolute URLs and special schemes.
func localTarget(pageDir, link string) (string, bool) {
	if link == "" || strings.HasPrefix(link, "#") {
		return "", false
	}
	u, err := url.Parse(link)
	if err != nil || u.Scheme != "" || u.Host != "" || u.Path == "" || strings.HasPrefix(u.Path, "/") {
		return "", false
	}
	p, err := url.PathUnescape(u.Path)
	if err != nil {
		p = u.Path
	}
	target := filepath.Join(pageDir, filepath.FromSlash(p))
	if strings.HasSuffix(p, "/") {
		target = filepath.Join(target, IndexFile)
	}
	return target, true
}

func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func extractText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var text strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		text.WriteString(extractText(c))
	}
	return text.String()
}
