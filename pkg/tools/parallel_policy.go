package tools

// ToolParallelPolicy declares whether a tool may share its instance across
// concurrent calls within one batch.
type ToolParallelPolicy string

const (
	// ToolParallelSerialOnly is the default: the tool must never run
	// concurrently with another call to itself.
	ToolParallelSerialOnly ToolParallelPolicy = "serial_only"
	// ToolParallelReadOnly marks a tool that only reads shared state and is
	// therefore safe to run alongside other read-only calls.
	ToolParallelReadOnly ToolParallelPolicy = "parallel_read_only"
)

const (
	// ParallelToolsModeReadOnlyOnly parallelizes only tools whose policy is
	// ToolParallelReadOnly. This is the default mode.
	ParallelToolsModeReadOnlyOnly = "read_only_only"
	// ParallelToolsModeAll parallelizes every tool the registry reports as
	// instance-safe, regardless of its declared policy.
	ParallelToolsModeAll = "all"
)

// ParallelPolicyProvider is implemented by tools that declare a
// non-default parallel policy.
type ParallelPolicyProvider interface {
	ParallelPolicy() ToolParallelPolicy
}
