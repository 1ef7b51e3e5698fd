package codec

import (
	"bufio"
	"fmt"
	"io"

	"routescope/internal/domain"
)

// TextCodec renders the human-readable summary printed at the end of a run
type TextCodec struct{}

// NewTextCodec creates a new text codec
func NewTextCodec() *TextCodec {
	return &TextCodec{}
}

// Format returns the codec format identifier
func (c *TextCodec) Format() string {
	return "text"
}

// Export writes routers by name, hosts by IP and one line per link
func (c *TextCodec) Export(topo *domain.Topology, w io.Writer) error {
	bw := bufio.NewWriter(w)

	routers := topo.Routers()
	fmt.Fprintf(bw, "Routers (%d):\n", len(routers))
	for _, r := range routers {
		fmt.Fprintf(bw, "  %s\n", r.Label())
	}

	hosts := topo.Hosts()
	fmt.Fprintf(bw, "\nHosts (%d):\n", len(hosts))
	for _, h := range hosts {
		if h.Status == domain.HostStatusUnverified {
			fmt.Fprintf(bw, "  %s\n", h.Label())
			continue
		}
		fmt.Fprintf(bw, "  %s (%s)\n", h.Label(), h.Status)
	}

	links := topo.Links()
	fmt.Fprintf(bw, "\nLinks (%d):\n", len(links))
	for _, l := range links {
		a, b := l.A, l.B
		if a.Kind() == domain.NodeKindHost && b.Kind() == domain.NodeKindRouter {
			a, b = b, a
		}
		fmt.Fprintf(bw, "  %s connected to %s\n", a.Label(), b.Label())
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write text: %w", err)
	}
	return nil
}
