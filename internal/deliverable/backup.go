package deliverable

import (
	"time"

	"github.com/ncruces/go-strftime"
)

// backupSuffix formats a sortable UTC-timestamped suffix so successive
// backups of the same file never collide and sort in creation order.
func backupSuffix(at time.Time) string {
	return ".bak_" + strftime.Format("%Y%m%dT%H%M%SZ", at.UTC())
}
