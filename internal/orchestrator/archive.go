package orchestrator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"

	"github.com/FlexNetOS/agentaskit/internal/methodology"
	"github.com/FlexNetOS/agentaskit/internal/observability"
	"github.com/FlexNetOS/agentaskit/internal/verification"
)

// archiveDir is the backup-tree leaf for snapshot roots:
// "backups/backup_<UTC>_<id>/".
const archiveDir = "backups"

// archiveLedger writes verdict's evidence ledger as gzip-compressed JSON
// under the workspace's backups tree. Failures to archive are logged,
// never returned: a failed archive must not itself turn a Passed or Failed
// verdict into something worse for the caller.
func (o *Orchestrator) archiveLedger(verdict verification.Verdict, at time.Time) methodology.ArchiveResult {
	dir := filepath.Join(o.cfg.WorkspaceRoot, archiveDir, fmt.Sprintf("backup_%s_%s", at.UTC().Format("20060102T150405Z"), uuid.New().String()))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		o.sink.Warnf("archiving evidence ledger: materializing %s: %v", dir, err)
		return methodology.RunArchive(dir, 0)
	}

	path := filepath.Join(dir, "ledger.json.gz")
	f, err := os.Create(path)
	if err != nil {
		o.sink.Warnf("archiving evidence ledger: creating %s: %v", path, err)
		return methodology.RunArchive(path, 0)
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	defer gz.Close()

	data, err := json.Marshal(verdict.Ledger)
	if err != nil {
		o.sink.Warnf("archiving evidence ledger: marshaling: %v", err)
		return methodology.RunArchive(path, 0)
	}
	n, err := gz.Write(data)
	if err != nil {
		o.sink.Warnf("archiving evidence ledger: writing %s: %v", path, err)
		return methodology.RunArchive(path, 0)
	}
	if err := gz.Close(); err != nil {
		o.sink.Warnf("archiving evidence ledger: flushing %s: %v", path, err)
	}

	o.sink.Audit(observability.AuditEntry{Action: "evidence_ledger_archived", Resource: path, Success: true, At: at})
	return methodology.RunArchive(path, int64(n))
}
