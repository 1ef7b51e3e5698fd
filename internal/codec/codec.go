package codec

import (
	"fmt"
	"io"

	"routescope/internal/domain"
)

// Exporter renders a topology in one output format
type Exporter interface {
	Export(topo *domain.Topology, w io.Writer) error
	Format() string
}

// Formats lists the supported output formats
var Formats = []string{"text", "json", "yaml"}

// ForFormat returns the exporter for a format name
func ForFormat(name string) (Exporter, error) {
	switch name {
	case "", "text":
		return NewTextCodec(), nil
	case "json":
		return NewJSONCodec(), nil
	case "yaml", "yml":
		return NewYAMLCodec(), nil
	}
	return nil, fmt.Errorf("unknown output format %q", name)
}
