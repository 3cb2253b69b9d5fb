package common

const (
	CommandStart    = ""
	CommandValidate = "validate"
	CommandVersion  = "version"
)

type MainServerCommandValidator struct{}

func (v MainServerCommandValidator) IsCommandValid(cmd string) bool {
	switch cmd {
	case CommandStart,
		CommandValidate,
		CommandVersion:
		return true
	}
	return false
}
