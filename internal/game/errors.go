package game

import "errors"

// Rejection reasons reported back to the issuing connection. None of them
// touch shared session state.
var (
	// not-found
	ErrRoomNotFound     = errors.New("room not found")
	ErrQuestionNotFound = errors.New("question not found")
	ErrNotInRoom        = errors.New("you are not in this room")

	// precondition-failed
	ErrGameAlreadyStarted = errors.New("game already started")
	ErrGameNotPlaying     = errors.New("game is not in progress")
	ErrNotEnoughPlayers   = errors.New("at least 2 players are required")
	ErrAlreadyJoined      = errors.New("already joined this room")
	ErrAlreadyInRoom      = errors.New("already in another room")
	ErrAlreadyAnswered    = errors.New("answer already submitted")

	// unauthorized
	ErrNotHost = errors.New("only the host can do that")

	// malformed-input
	ErrInvalidPayload   = errors.New("invalid payload")
	ErrInvalidQuestions = errors.New("invalid question set")
	ErrInvalidUsername  = errors.New("username is required")
	ErrInvalidTimeLimit = errors.New("time limit must be between 5 and 300 seconds")
)

// IsRejection reports whether err belongs to the closed set of protocol
// rejections, as opposed to an internal fault.
func IsRejection(err error) bool {
	for _, known := range []error{
		ErrRoomNotFound, ErrQuestionNotFound, ErrNotInRoom,
		ErrGameAlreadyStarted, ErrGameNotPlaying, ErrNotEnoughPlayers,
		ErrAlreadyJoined, ErrAlreadyInRoom, ErrAlreadyAnswered,
		ErrNotHost,
		ErrInvalidPayload, ErrInvalidQuestions, ErrInvalidUsername, ErrInvalidTimeLimit,
	} {
		if errors.Is(err, known) {
			return true
		}
	}
	return false
}
