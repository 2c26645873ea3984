package mirror

// State is the lifecycle position of a run.
type State int

const (
	Idle State = iota
	FetchingRoot
	DiscoveringReferences
	Downloading
	Rewriting
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case FetchingRoot:
		return "fetching-root"
	case DiscoveringReferences:
		return "discovering-references"
	case Downloading:
		return "downloading"
	case Rewriting:
		return "rewriting"
	case Done:
		return "done"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Terminal reports whether no further transitions follow s.
func (s State) Terminal() bool {
	return s == Done || s == Failed
}
