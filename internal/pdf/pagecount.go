// Package pdf counts pages in uploaded documents. Pricing depends on an
// accurate count, so a document the parser cannot read is rejected
// rather than priced at zero.
package pdf

import (
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

type Counter struct{}

func NewCounter() *Counter {
	return &Counter{}
}

func (Counter) CountPages(path string) (int, error) {
	n, err := api.PageCountFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to count pages: %w", err)
	}
	if n < 1 {
		return 0, fmt.Errorf("document has no pages")
	}
	return n, nil
}
