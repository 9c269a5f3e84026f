package taskname

const (
	// Trust tasks
	TrustRecalculate = "trust:recalculate"
)
