package tracking

type State string

const (
	Done    State = "done"
	Active  State = "active"
	Pending State = "pending"
)

var labels = map[State]string{
	Done:    "Completed",
	Active:  "In progress",
	Pending: "Pending",
}

// Classify places the stage at position relative to the current index.
func Classify(position, current int) State {
	switch {
	case current > position:
		return Done
	case current == position:
		return Active
	default:
		return Pending
	}
}

func (s State) Label() string { return labels[s] }

type Step struct {
	Position int    `json:"position"`
	Name     string `json:"name"`
	State    State  `json:"state"`
	Label    string `json:"label"`
}

// Timeline renders every stage for the audience. Pass NoOrder to get an
// all-pending timeline.
func Timeline(a Audience, current int) []Step {
	names := Stages(a)
	steps := make([]Step, len(names))
	for i, name := range names {
		st := Classify(i, current)
		steps[i] = Step{Position: i, Name: name, State: st, Label: st.Label()}
	}
	return steps
}
