package types

// Version constants for the data model and the store.
const (
	// FormatVersion is the version of the row and cell encoding used by
	// the recording log.
	FormatVersion = "1"

	// StoreVersion is the strata store version.
	StoreVersion = "0.1.0"
)
