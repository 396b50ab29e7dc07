package proxy

import (
	"net/url"
	"regexp"
	"strings"
)

var uriAttr = regexp.MustCompile(`URI="([^"]+)"`)

// Tags whose URI attribute points at another fetchable resource.
var uriTags = []string{"#EXT-X-MEDIA", "#EXT-X-KEY", "#EXT-X-MAP", "#EXT-X-I-FRAME-STREAM-INF"}

// IsPlaylist reports whether an upstream answer is an HLS playlist. A
// .m3u8 url only counts when the server does not claim a transport stream.
func IsPlaylist(contentType, target string) bool {
	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "application/vnd.apple.mpegurl") || strings.Contains(ct, "application/x-mpegurl") {
		return true
	}
	return strings.Contains(target, ".m3u8") && !strings.Contains(ct, "video/mp2t")
}

// RewritePlaylist routes every resource a playlist references back
// through the proxy. Relative references resolve against the directory
// of target; origin is prepended to the proxy path.
func RewritePlaylist(body, target, origin string) (string, error) {
	base, err := url.Parse(target)
	if err != nil {
		return "", err
	}
	base.RawQuery = ""
	base.Fragment = ""

	lines := strings.Split(body, "\n")
	for i, line := range lines {
		trim := strings.TrimSpace(line)

		if m := uriAttr.FindStringSubmatchIndex(line); m != nil && hasURITag(line) {
			uri := line[m[2]:m[3]]
			lines[i] = line[:m[2]] + Link(origin, resolve(base, uri)) + line[m[3]:]
			continue
		}
		if trim == "" || strings.HasPrefix(trim, "#") {
			continue
		}
		lines[i] = Link(origin, resolve(base, trim))
	}
	return strings.Join(lines, "\n"), nil
}

// Link is the proxy url serving target.
func Link(origin, target string) string {
	return strings.TrimSuffix(origin, "/") + Path + "?url=" + url.QueryEscape(target)
}

func hasURITag(line string) bool {
	for _, tag := range uriTags {
		if strings.Contains(line, tag) {
			return true
		}
	}
	return false
}

// resolve makes ref absolute. Unparseable references are left alone.
func resolve(base *url.URL, ref string) string {
	u, err := url.Parse(ref)
	if err != nil || u.IsAbs() {
		return ref
	}
	return base.ResolveReference(u).String()
}
