package cli

// Default values for CLI flags and formatted output.
const (
	// DefaultHistoryLimit is the number of runs listed by the history command.
	DefaultHistoryLimit = 20
	// DefaultServeAddr is where the serve command listens.
	DefaultServeAddr = "127.0.0.1:8080"
	// TabWidth is the width of tabs in formatted output.
	TabWidth = 2
	// metricsNamespace prefixes every exported metric.
	metricsNamespace = "sitegrab"
)
