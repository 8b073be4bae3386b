package cache

import (
	"net/url"
	"path"
	"path/filepath"
	"strings"

	platformerrors "github.com/ab22593k/gitai/errors"
)

// defaultPorts lists ports dropped during normalization, per scheme.
var defaultPorts = map[string]string{
	"http":    "80",
	"https":   "443",
	"ssh":     "22",
	"git+ssh": "22",
	"git":     "9418",
}

// normalizeURL normalizes a Git repository URL to a consistent filesystem-safe path.
//
// Normalization rules:
//  1. Strip surrounding whitespace, trailing slashes and the .git suffix
//  2. Convert SCP-style SSH URLs (git@host:path) to host/path
//  3. Convert http, https, ssh, git and git+ssh URLs to host/path, dropping
//     userinfo and default ports and lowercasing the host
//  4. Convert file:// URLs and absolute local paths to file/<path>
//
// Examples:
//   - https://github.com/my/repo.git → github.com/my/repo
//   - git@github.com:my/repo → github.com/my/repo
//   - ssh://git@GitHub.com:22/my/repo → github.com/my/repo
//   - file:///srv/git/repo.git → file/srv/git/repo
func normalizeURL(rawURL string) (string, error) {
	raw := strings.TrimSpace(rawURL)
	if raw == "" {
		return "", platformerrors.New(platformerrors.CodeInvalidURL, "repository URL is empty")
	}
	if strings.ContainsFunc(raw, func(r rune) bool { return r < 0x20 || r == 0x7f }) {
		return "", invalidURL(rawURL, "contains control characters")
	}

	var host, p string
	switch {
	case filepath.IsAbs(raw):
		host, p = "file", filepath.ToSlash(raw)

	case isSCPLike(raw):
		// Format: git@github.com:org/repo or host:path
		hostPath := raw
		if at := strings.LastIndex(hostPath[:strings.Index(hostPath, ":")], "@"); at >= 0 {
			hostPath = hostPath[at+1:]
		}
		h, rest, _ := strings.Cut(hostPath, ":")
		host, p = strings.ToLower(h), rest

	default:
		parsed, err := url.Parse(raw)
		if err != nil {
			return "", invalidURL(rawURL, err.Error())
		}

		scheme := strings.ToLower(parsed.Scheme)
		switch scheme {
		case "file":
			host, p = "file", parsed.Host+parsed.Path
		case "http", "https", "ssh", "git", "git+ssh":
			if parsed.Hostname() == "" {
				return "", invalidURL(rawURL, "missing host")
			}
			host = strings.ToLower(parsed.Hostname())
			if port := parsed.Port(); port != "" && port != defaultPorts[scheme] {
				host += ":" + port
			}
			p = parsed.Path
		case "":
			return "", invalidURL(rawURL, "missing scheme")
		default:
			return "", invalidURL(rawURL, "unsupported scheme "+scheme)
		}
	}

	p = path.Clean("/" + p)
	p = strings.TrimSuffix(strings.TrimRight(p, "/"), ".git")
	p = strings.TrimPrefix(p, "/")
	if p == "" && host != "file" {
		return "", invalidURL(rawURL, "missing repository path")
	}

	return strings.TrimSuffix(host+"/"+p, "/"), nil
}

// isSCPLike reports whether raw has the [user@]host:path form git accepts
// for SSH remotes.
func isSCPLike(raw string) bool {
	if strings.Contains(raw, "://") {
		return false
	}
	colon := strings.Index(raw, ":")
	if colon <= 0 {
		return false
	}
	slash := strings.Index(raw, "/")
	return slash < 0 || colon < slash
}

func invalidURL(rawURL, reason string) error {
	return platformerrors.WithContext(
		platformerrors.Newf(platformerrors.CodeInvalidURL, "invalid repository URL: %s", reason),
		"url", rawURL,
	)
}
