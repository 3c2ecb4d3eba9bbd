package clipboard

import (
	"github.com/atotto/clipboard"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/reelpull/pkg/utils/safeurl"
)

// Reader takes the link to fetch from the system clipboard
type Reader struct {
	readAll func() (string, error)
}

// Option is a functional option for Reader
type Option func(*Reader)

// WithSource replaces the clipboard access, used by tests
func WithSource(readAll func() (string, error)) Option {
	return func(r *Reader) {
		r.readAll = readAll
	}
}

// New creates a Reader backed by the system clipboard
func New(opts ...Option) *Reader {
	r := &Reader{readAll: clipboard.ReadAll}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ReadURL returns the clipboard content when it is a single http(s) link
func (r *Reader) ReadURL() (string, error) {
	text, err := r.readAll()
	if err != nil {
		return "", goerr.Wrap(err, "failed to read from clipboard")
	}

	link, err := safeurl.Validate(text)
	if err != nil {
		return "", goerr.Wrap(err, "clipboard does not contain a valid link")
	}
	return link, nil
}
