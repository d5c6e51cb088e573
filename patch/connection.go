package patch

// Connection is one logical edge between two socket ids. An empty id is a
// dangling end; such pairs are skipped during reconciliation.
type Connection struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Dangling reports whether either end is missing.
func (c Connection) Dangling() bool {
	return c.Source == "" || c.Target == ""
}

// Edge is the editor's view of a wire: the handles it was dragged between.
// Either handle may be nil while a drag is in progress.
type Edge struct {
	SourceHandle *string
	TargetHandle *string
}

// Connections projects editor edges onto the connection list, one pair per
// edge, keeping dangling pairs for the reconciler to drop.
func Connections(edges []Edge) []Connection {
	conns := make([]Connection, 0, len(edges))
	for _, e := range edges {
		conns = append(conns, Connection{
			Source: deref(e.SourceHandle),
			Target: deref(e.TargetHandle),
		})
	}

	return conns
}

// References reports whether any connection names id at either end.
func References(conns []Connection, id string) bool {
	for _, c := range conns {
		if c.Source == id || c.Target == id {
			return true
		}
	}

	return false
}

func deref(s *string) string {
	if s == nil {
		return ""
	}

	return *s
}
