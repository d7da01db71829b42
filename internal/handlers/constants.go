package handlers

// Common error message constants shared across handlers
const (
	ErrMsgInvalidRequestBody = "Invalid request body"
	ErrMsgInvalidReportID    = "Invalid report ID"
	ErrMsgReportNotFound     = "Report not found"
	ErrMsgInternal           = "Internal server error"
	ErrMsgSafetyNotice       = "The safety notice must be acknowledged before placing a report"
	ErrMsgInvalidState       = "Operation not allowed in the current draft state"
	ErrMsgOutOfBounds        = "Location is outside the allowed region"
	ErrMsgDuplicateReport    = "A report with identical attributes already exists at this location"
	ErrMsgSaveFailed         = "Failed to save report"
	ErrMsgSaveInProgress     = "A save is already in progress"
	ErrMsgDraftCancelled     = "The draft was cancelled before the save completed"
	ErrMsgVoteInFlight       = "A vote for this report is already in progress"
	ErrMsgVoteFailed         = "Failed to record vote"
)

// VoterIDHeader lets a browser client present its own device-local voter id
const VoterIDHeader = "X-Voter-ID"

const maxBodyBytes = 64 << 10
