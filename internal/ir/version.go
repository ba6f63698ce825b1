package ir

// Version constants stamped into generated code and compiled output.
const (
	// IRVersion is the IR schema version.
	IRVersion = "1"

	// ToolVersion is the relsync tool version.
	ToolVersion = "0.1.0"
)
