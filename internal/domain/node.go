package domain

// NodeKind tells routers and hosts apart
type NodeKind string

const (
	NodeKindRouter NodeKind = "router"
	NodeKindHost   NodeKind = "host"
)

// Node is a vertex of the topology. It is implemented only by *Router and
// *PCHost; switch on the concrete type to reach kind-specific data.
type Node interface {
	Kind() NodeKind
	Key() string
	Hash() uint64
	Label() string
	node()
}

func (r *Router) Kind() NodeKind { return NodeKindRouter }
func (r *Router) node()          {}

func (h *PCHost) Kind() NodeKind { return NodeKindHost }
func (h *PCHost) node()          {}

var (
	_ Node = (*Router)(nil)
	_ Node = (*PCHost)(nil)
)
