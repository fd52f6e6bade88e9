// Package tracking places an order on the fixed fulfillment timeline and
// classifies every stage relative to where the order currently is.
package tracking

import "strings"

type Audience string

const (
	Staff    Audience = "staff"
	Customer Audience = "customer"
)

// StageCount is the same for every audience.
const StageCount = 5

// NoOrder is the current index before any order has been looked up.
const NoOrder = -1

var stageNames = map[Audience][StageCount]string{
	Staff: {
		"Eye Test Done",
		"Lens Cutting",
		"Frame Fitting",
		"Courier Pickup",
		"Ready for Collection",
	},
	Customer: {
		"Order Received",
		"Lens Cutting",
		"Frame Fitting",
		"Quality Check",
		"Ready for Pickup",
	},
}

// ParseAudience defaults to Customer for anything it does not recognise.
func ParseAudience(s string) Audience {
	if Audience(strings.ToLower(strings.TrimSpace(s))) == Staff {
		return Staff
	}
	return Customer
}

func Stages(a Audience) []string {
	names := stageNames[ParseAudience(string(a))]
	return names[:]
}

// StageName returns "" for positions outside the timeline.
func StageName(a Audience, position int) string {
	if position < 0 || position >= StageCount {
		return ""
	}
	return Stages(a)[position]
}

// IsTerminal reports whether current is the last stage. There is no separate
// completed state: the last stage being active means the order is ready.
func IsTerminal(current int) bool {
	return current == StageCount-1
}
