package result

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/pzerone/webvirt-wizard/internal/csvgrid"
)

var ErrNothingToExport = errors.New("no result to export")

// Export is a downloadable CSV rendition of a result.
type Export struct {
	Filename string
	Content  string
}

// Presenter holds the latest submission result until it is dismissed.
type Presenter struct {
	mu      sync.RWMutex
	current csvgrid.Grid
}

func NewPresenter() *Presenter {
	return &Presenter{}
}

// Show replaces the held result.
func (p *Presenter) Show(g csvgrid.Grid) {
	p.mu.Lock()
	p.current = g
	p.mu.Unlock()
}

func (p *Presenter) Current() (csvgrid.Grid, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current, p.current != nil
}

// Dismiss discards the held result.
func (p *Presenter) Dismiss() {
	p.mu.Lock()
	p.current = nil
	p.mu.Unlock()
}

func (p *Presenter) Export(now time.Time) (Export, error) {
	g, ok := p.Current()
	if !ok {
		return Export{}, ErrNothingToExport
	}
	return Export{Filename: Filename(now), Content: Serialize(g)}, nil
}

// Serialize writes every row after the first, cells joined by commas and
// rows by newlines. The first row is the server's header.
func Serialize(g csvgrid.Grid) string {
	rows := g.Rows()
	lines := make([]string, len(rows))
	for i, row := range rows {
		lines[i] = strings.Join(row, ",")
	}
	return strings.Join(lines, "\n")
}

func Filename(now time.Time) string {
	return "response-" + now.UTC().Format(time.DateOnly) + ".csv"
}

// WriteTable renders g as an aligned text table, header first.
func WriteTable(w io.Writer, g csvgrid.Grid) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, row := range g {
		if _, err := fmt.Fprintln(tw, strings.Join(row, "\t")); err != nil {
			return err
		}
	}
	return tw.Flush()
}
