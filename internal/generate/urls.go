package generate

import (
	"net/url"
	"path"
	"regexp"
	"strings"

	"scribe.app/engine/internal/block"
)

var (
	urlPattern = regexp.MustCompile(`https?://[^\s<>"'\])]+`)

	imageExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true, ".svg": true}

	embedHosts = []string{"youtube.com", "youtu.be", "vimeo.com", "loom.com", "figma.com", "docs.google.com", "drive.google.com"}
)

// FindURLs returns the distinct URLs in s in order of appearance.
func FindURLs(s string) []string {
	var out []string
	seen := map[string]bool{}
	for _, u := range urlPattern.FindAllString(s, -1) {
		u = strings.TrimRight(u, ".,;:!?")
		if !seen[u] {
			seen[u] = true
			out = append(out, u)
		}
	}
	return out
}

// URLBlock classifies a URL by file extension and host: image, embed, or
// bookmark for everything else.
func URLBlock(raw string) block.Block {
	u, err := url.Parse(raw)
	if err != nil {
		return block.Bookmark(raw)
	}
	if imageExts[strings.ToLower(path.Ext(u.Path))] {
		return block.Image(raw)
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	for _, h := range embedHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return block.Embed(raw)
		}
	}
	return block.Bookmark(raw)
}

func isURL(s string) bool {
	s = strings.TrimSpace(s)
	return !strings.ContainsAny(s, " \n\t") && urlPattern.FindString(s) == s && s != ""
}
