package bridge

// Stage is a step of a /print request. Failures jump from Parsed,
// Validated or Forwarded straight to Responded.
type Stage int

const (
	StageReceived Stage = iota
	StageParsed
	StageValidated
	StageForwarded
	StageResponded
)

func (s Stage) String() string {
	switch s {
	case StageReceived:
		return "received"
	case StageParsed:
		return "parsed"
	case StageValidated:
		return "validated"
	case StageForwarded:
		return "forwarded"
	case StageResponded:
		return "responded"
	default:
		return "unknown"
	}
}
