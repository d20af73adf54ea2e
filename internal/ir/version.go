package ir

// Version constants for the document format and the tool.
const (
	// DocumentVersion is the configuration document schema version.
	DocumentVersion = "1"

	// ToolVersion is the loadout version.
	ToolVersion = "0.1.0"
)
