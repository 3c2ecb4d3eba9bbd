package fetcher

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/reelpull/pkg/domain/interfaces"
	"github.com/m-mizutani/reelpull/pkg/utils/safeurl"
)

// Printer is a dry-run Initiator: it writes the download URL instead of fetching it
type Printer struct {
	mu sync.Mutex
	w  io.Writer
}

var _ interfaces.Initiator = (*Printer)(nil)

// NewPrinter creates a Printer writing one tab separated line per download to w
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Initiate prints "<name>\t<url>"
func (p *Printer) Initiate(ctx context.Context, rawURL, suggestedName string) error {
	target, err := safeurl.Validate(rawURL)
	if err != nil {
		return goerr.Wrap(err, "refusing to print download", goerr.V("url", rawURL))
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := fmt.Fprintf(p.w, "%s\t%s\n", suggestedName, target); err != nil {
		return goerr.Wrap(err, "failed to print download")
	}
	return nil
}
