package zp

// StagingArea is the scratch directory an archive is extracted into before
// its contents are placed at the destination. It is owned by a single
// Workflow and never touched by two operations at once.
type StagingArea interface {
	// Dir returns the staging directory path.
	Dir() string

	// Clear deletes every first-level entry, creating the directory if needed.
	Clear() error

	// Prune removes entries matching the configured ignore patterns.
	// Returns the number of removed entries.
	Prune() (int, error)

	// Entries returns the names of the first-level entries.
	Entries() ([]string, error)

	// SingleRoot reports whether the first level holds exactly one entry and
	// that entry is a directory. The answer is recomputed on every call.
	SingleRoot() (string, bool, error)

	// Collapse moves the single root folder's children up into the staging
	// directory and removes the folder. Returns the folder's name.
	Collapse() (string, error)

	// Drain removes any entries left after a successful move.
	Drain() error

	// Close releases the staging area. Ephemeral areas are deleted.
	Close() error
}
