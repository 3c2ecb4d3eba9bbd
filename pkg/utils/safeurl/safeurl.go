package safeurl

import (
	"net/url"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/reelpull/pkg/domain/model"
)

// maxURLLength rejects pasted blobs that can not be a single link
const maxURLLength = 2048

var allowedSchemes = map[string]bool{"http": true, "https": true}

// Validate trims raw and checks that it is a single absolute http(s) URL.
// It returns the normalized URL.
func Validate(raw string) (string, error) {
	text := strings.TrimSpace(raw)

	switch {
	case text == "":
		return "", goerr.Wrap(model.ErrInvalidInput, "link is empty")
	case len(text) > maxURLLength:
		return "", goerr.Wrap(model.ErrInvalidInput, "link is too long", goerr.V("length", len(text)))
	case strings.ContainsAny(text, "\n\r"):
		return "", goerr.Wrap(model.ErrInvalidInput, "link must be a single line")
	}

	parsed, err := url.Parse(text)
	if err != nil {
		return "", goerr.Wrap(model.ErrInvalidInput, "link is not a URL", goerr.V("parse_error", err.Error()))
	}

	if !allowedSchemes[strings.ToLower(parsed.Scheme)] {
		return "", goerr.Wrap(model.ErrInvalidInput, "link must use http or https", goerr.V("scheme", parsed.Scheme))
	}
	if strings.TrimSpace(parsed.Host) == "" {
		return "", goerr.Wrap(model.ErrInvalidInput, "link has no host")
	}

	return parsed.String(), nil
}
