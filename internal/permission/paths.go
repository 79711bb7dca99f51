package permission

import (
	"os"
	"path/filepath"
)

// DefaultStorePath returns ~/.cortex/permissions.json, the permission
// manager's own persistence root. This is deliberately separate from the
// gateway/agent runtime's ~/.cortexrun directory: permission grants are a
// security boundary a user may want to inspect or back up independent of
// the rest of the runtime's config and cache state.
func DefaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = os.TempDir()
	}
	return filepath.Join(home, ".cortex", "permissions.json")
}
