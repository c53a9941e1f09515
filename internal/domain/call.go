package domain

import "fmt"

type CallState int

const (
	Idle CallState = iota
	Calling
	RingingIncoming
	InCall
)

var callStateNames = [...]string{
	Idle:            "idle",
	Calling:         "calling",
	RingingIncoming: "ringing",
	InCall:          "in_call",
}

func (s CallState) String() string {
	if s < 0 || int(s) >= len(callStateNames) {
		return fmt.Sprintf("CallState(%d)", int(s))
	}
	return callStateNames[s]
}

func (s CallState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *CallState) UnmarshalText(b []byte) error {
	for i, name := range callStateNames {
		if name == string(b) {
			*s = CallState(i)
			return nil
		}
	}
	return fmt.Errorf("unknown call state %q", b)
}
