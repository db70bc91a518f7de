package model

type Status string

const (
	Waiting    Status = "WAITING"
	Processing Status = "PROCESSING"
	Done       Status = "DONE"
	Failed     Status = "FAILED"
)

// transitions is the full lifecycle: WAITING -> PROCESSING -> {DONE, FAILED},
// plus PROCESSING -> WAITING for a retry re-queue.
var transitions = map[Status][]Status{
	Waiting:    {Processing},
	Processing: {Done, Failed, Waiting},
	Done:       {},
	Failed:     {},
}

func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

func (s Status) CanTransition(to Status) bool {
	for _, n := range transitions[s] {
		if n == to {
			return true
		}
	}
	return false
}
