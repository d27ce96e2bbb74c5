package models

// Status is the detector status reported in "state" messages.
type Status int8

const (
	StatusUnknown           Status = -1
	StatusStopped           Status = 0
	StatusStarting          Status = 2
	StatusThrow             Status = 8
	StatusTakeout           Status = 16
	StatusTakeoutInProgress Status = 32
)

// Event is the last detector event reported in "state" messages.
type Event int8

const (
	EventUnknown         Event = -1
	EventStopped         Event = 0
	EventStopping        Event = 1
	EventStarting        Event = 2
	EventStarted         Event = 4
	EventThrowDetected   Event = 8
	EventTakeoutStarted  Event = 16
	EventTakeoutFinished Event = 32
	EventReset           Event = 64
)

const unknownName = "Unknown"

var statusNames = map[Status]string{
	StatusStopped:           "Stopped",
	StatusStarting:          "Starting",
	StatusThrow:             "Throw",
	StatusTakeout:           "Takeout",
	StatusTakeoutInProgress: "Takeout in progress",
}

var eventNames = map[Event]string{
	EventStopped:         "Stopped",
	EventStopping:        "Stopping",
	EventStarting:        "Starting",
	EventStarted:         "Started",
	EventThrowDetected:   "Throw detected",
	EventTakeoutStarted:  "Takeout started",
	EventTakeoutFinished: "Takeout finished",
	EventReset:           "Manual reset",
}

var (
	statusByName = invert(statusNames)
	eventByName  = invert(eventNames)
)

func invert[K comparable](m map[K]string) map[string]K {
	out := make(map[string]K, len(m))
	for k, v := range m {
		out[v] = k
	}
	return out
}

// ParseStatus maps the wire string to a Status. Matching is case-sensitive;
// anything not in the table is StatusUnknown.
func ParseStatus(s string) Status {
	if v, ok := statusByName[s]; ok {
		return v
	}
	return StatusUnknown
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return unknownName
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	*s = ParseStatus(string(text))
	return nil
}

// ParseEvent maps the wire string to an Event, EventUnknown if not in the table.
func ParseEvent(s string) Event {
	if v, ok := eventByName[s]; ok {
		return v
	}
	return EventUnknown
}

func (e Event) String() string {
	if name, ok := eventNames[e]; ok {
		return name
	}
	return unknownName
}

func (e Event) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

func (e *Event) UnmarshalText(text []byte) error {
	*e = ParseEvent(string(text))
	return nil
}
