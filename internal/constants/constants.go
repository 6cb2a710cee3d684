package constants

const (
	GameStateWaiting = "waiting"
	GameStatePlaying = "playing"
	GameStateResults = "results"
)

const (
	QuestionTypeSingle   = "single"
	QuestionTypeMultiple = "multiple"
	QuestionTypeOrder    = "order"
	QuestionTypeFill     = "fill"
)

const (
	PointsPerCorrectAnswer   = 10
	DefaultQuestionTimeLimit = 30 // seconds
	MinQuestionTimeLimit     = 5
	MaxQuestionTimeLimit     = 300
	DefaultHostUsername      = "Host"
	MaxUsernameLength        = 32
)

const (
	RoomCodeLength      = 6
	RoomCodeMaxAttempts = 100
	RoomCodeSuffixLen   = 4
	SequentialCodeStart = 100000
)

const (
	RoomCodeModeRandom     = "random"
	RoomCodeModeSequential = "sequential"
)
