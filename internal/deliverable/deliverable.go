// Package deliverable implements the Deliverable Planner & Validator:
// parsing a line-oriented deliverable plan file, topologically ordering it
// into parallel execution groups, resolving each deliverable to a typed
// filesystem location, running quality gates, and delivering checksummed
// receipts with backup snapshots.
package deliverable

import "time"

// Kind classifies the sort of artifact a Deliverable produces.
type Kind struct {
	name   string
	custom bool
}

var (
	Code          = Kind{name: "Code"}
	Doc           = Kind{name: "Doc"}
	Config        = Kind{name: "Config"}
	Test          = Kind{name: "Test"}
	Artifact      = Kind{name: "Artifact"}
	Report        = Kind{name: "Report"}
	Data          = Kind{name: "Data"}
)

// CustomKind returns an extensible, never-colliding Kind.
func CustomKind(name string) Kind { return Kind{name: name, custom: true} }

func (k Kind) String() string { return k.name }

// Status tracks a Deliverable's progress from planning through delivery.
type Status int

const (
	StatusPlanned Status = iota
	StatusInProgress
	StatusPendingValidation
	StatusValidated
	StatusFailed
	StatusDelivered
)

func (s Status) String() string {
	switch s {
	case StatusPlanned:
		return "Planned"
	case StatusInProgress:
		return "InProgress"
	case StatusPendingValidation:
		return "PendingValidation"
	case StatusValidated:
		return "Validated"
	case StatusFailed:
		return "Failed"
	case StatusDelivered:
		return "Delivered"
	default:
		return "Unknown"
	}
}

// LocationKind classifies the part of the workspace tree a deliverable
// belongs in.
type LocationKind struct {
	name   string
	custom bool
}

var (
	LocationSource        = LocationKind{name: "Source"}
	LocationTest          = LocationKind{name: "Test"}
	LocationDocumentation = LocationKind{name: "Documentation"}
	LocationBuild         = LocationKind{name: "Build"}
	LocationArtifact      = LocationKind{name: "Artifact"}
	LocationTemp          = LocationKind{name: "Temp"}
	LocationConfig        = LocationKind{name: "Config"}
)

func CustomLocationKind(name string) LocationKind { return LocationKind{name: name, custom: true} }

func (l LocationKind) String() string { return l.name }

// TargetLocation is the resolved filesystem destination for a deliverable.
type TargetLocation struct {
	Kind            LocationKind
	BasePath        string
	RelativePath    string
	FilenamePattern string
	OrgRules        []string
	BackupPaths     []string
}

// Path returns the resolved absolute-or-workspace-relative target path.
func (t TargetLocation) Path() string {
	if t.BasePath == "" {
		return t.RelativePath
	}
	return t.BasePath + "/" + t.RelativePath
}

// Deliverable is a single planned output artifact.
type Deliverable struct {
	ID          string // "DEL-NNNN", 1-based
	Name        string
	Kind        Kind
	Description string
	Target      TargetLocation
	Gates       []Gate
	Deps        []string // dependencies, each a Deliverable name or ID
	Status      Status
	FailReason  string
	CreatedAt   time.Time
	CompletedAt time.Time
}

// DeliveryReceipt is the record produced by Deliver. It carries a sha256
// checksum of the delivered file and no signature.
type DeliveryReceipt struct {
	DeliverableID string
	TargetPath    string
	Checksum      string // "sha256:<hex>"
	SizeBytes     int64
	DeliveredAt   time.Time
}
