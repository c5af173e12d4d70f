package usecase

var (
	BuildPromptMessage   = buildPromptMessage
	BuildFollowupMessage = buildFollowupMessage
	BuildDigestMessage   = buildDigestMessage
)
