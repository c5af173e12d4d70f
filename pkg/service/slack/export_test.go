package slack

// Export internal functions and types for testing
var (
	// TruncateText is exported for testing rune-safe truncation
	TruncateText = truncateText
)
