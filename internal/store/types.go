package store

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a declaration is not in the index.
var ErrNotFound = errors.New("not in index")

// Entity types stored in the declarations table.
const (
	EntityClass    = "class"
	EntityFunction = "function"
)

// Member kinds stored in the members table.
const (
	MemberMethod   = "method"
	MemberProperty = "property"
	MemberConstant = "constant"
)

// Declaration is one indexed class or function, without its payload.
type Declaration struct {
	Name       string `json:"name"`
	EntityType string `json:"entity_type"`
	Kind       string `json:"kind,omitempty"`
	FilePath   string `json:"file_path"`
	LineStart  int    `json:"line_start,omitempty"`
	LineEnd    int    `json:"line_end,omitempty"`
}

// Member is one indexed class member.
type Member struct {
	Owner      string `json:"owner" yaml:"owner"`
	Kind       string `json:"kind" yaml:"kind"`
	Name       string `json:"name" yaml:"name"`
	Visibility string `json:"visibility,omitempty" yaml:"visibility,omitempty"`
	Signature  string `json:"signature,omitempty" yaml:"signature,omitempty"`
}

// FileEntry holds the scan state for a file.
type FileEntry struct {
	FilePath  string
	ScanHash  string
	ScannedAt time.Time
}

// Stats holds index statistics.
type Stats struct {
	Files     int64
	Classes   int64
	Functions int64
	Members   int64
}
