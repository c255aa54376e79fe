package threads

import "errors"

// User-facing errors. Everything else surfaced by the workflow is a
// server-side failure.
var (
	ErrThreadNotFound       = errors.New("thread not found")
	ErrBanned               = errors.New("ban error")
	ErrNoTitle              = errors.New("must provide title")
	ErrNoBody               = errors.New("must provide body")
	ErrInvalidLink          = errors.New("invalid thread URL")
	ErrParseMentions        = errors.New("failed to parse mentions")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrInvalidStage         = errors.New("please select a stage")
	ErrInvalidTopic         = errors.New("invalid topic")
	ErrMissingCollaborators = errors.New("failed to find all provided collaborators")
	ErrCollaboratorsOverlap = errors.New("cannot overlap addresses when adding/removing collaborators")
)

var userErrors = []error{
	ErrThreadNotFound,
	ErrBanned,
	ErrNoTitle,
	ErrNoBody,
	ErrInvalidLink,
	ErrParseMentions,
	ErrUnauthorized,
	ErrInvalidStage,
	ErrInvalidTopic,
	ErrMissingCollaborators,
	ErrCollaboratorsOverlap,
}

// IsUserError reports whether err is caused by bad input or missing
// permissions rather than a server-side failure.
func IsUserError(err error) bool {
	for _, ue := range userErrors {
		if errors.Is(err, ue) {
			return true
		}
	}
	return false
}
