package fetcher

import (
	"io"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"github.com/h2non/filetype"
	"github.com/vfaronov/httpheader"
)

// defaultExtension is used when neither the header nor the content reveals the type
const defaultExtension = "mp4"

// maxNameLength keeps generated names below common file system limits
const maxNameLength = 200

var ansiRegex = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// DetermineFilename picks the file name for a download response.
//
// Order of precedence:
//  1. Content-Disposition filename sent by the backend
//  2. suggested, the name proposed by the caller
//  3. "download"
//
// A missing extension is derived from the magic bytes of the body, falling
// back to mp4. The returned reader yields the complete body.
func DetermineFilename(resp *http.Response, suggested string) (string, io.Reader, error) {
	candidate := ""
	if _, name, _ := httpheader.ContentDisposition(resp.Header); name != "" {
		candidate = name
	}
	if candidate == "" {
		candidate = suggested
	}

	name := SanitizeFilename(candidate)
	if name == "" {
		name = "download"
	}

	header, body, err := peekReader(resp.Body, 512)
	if err != nil {
		return "", nil, err
	}

	if filepath.Ext(name) == "" {
		ext := defaultExtension
		if kind, _ := filetype.Match(header); kind != filetype.Unknown && kind.Extension != "" {
			ext = kind.Extension
		}
		name = name + "." + ext
	}

	return name, body, nil
}

// SanitizeFilename removes path separators, control sequences and characters
// that are invalid on common file systems.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	if name == "." || name == "/" {
		return ""
	}

	name = ansiRegex.ReplaceAllString(name, "")
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		switch r {
		case ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	name = strings.TrimLeft(name, ".")

	if len(name) > maxNameLength {
		ext := filepath.Ext(name)
		if len(ext) > 16 {
			ext = ""
		}
		name = strings.ToValidUTF8(name[:maxNameLength-len(ext)], "") + ext
	}

	return name
}
