package proximity

// DefaultWindowMeters is how far beyond a geofence edge the app still shows
// approach hints. Farther than that a reward card carries no hint.
const DefaultWindowMeters = 2000

// Hint describes how close a user is to a reward's geofence for display on
// a reward card. Inside the fence is always "Here".
type Hint struct {
	ProgressPct float64 `json:"progress_pct"`
	Label       string  `json:"label,omitempty"`
}

// Toward reports approach progress toward a geofence edge. distanceMeters
// and radiusMeters are measured from the venue center; windowMeters is how
// far past the edge hints remain visible.
func Toward(distanceMeters, radiusMeters, windowMeters float64) Hint {
	if windowMeters <= 0 {
		windowMeters = DefaultWindowMeters
	}
	if distanceMeters <= radiusMeters {
		return Hint{ProgressPct: 100, Label: "Here"}
	}
	beyond := distanceMeters - radiusMeters
	if beyond >= windowMeters {
		return Hint{}
	}
	p := (1 - beyond/windowMeters) * 100
	return Hint{ProgressPct: p, Label: label(p)}
}

func label(p float64) string {
	switch {
	case p >= 75:
		return "Very Close"
	case p >= 50:
		return "Nearby"
	case p >= 25:
		return "Within Area"
	default:
		return "Far"
	}
}
