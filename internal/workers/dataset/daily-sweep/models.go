package dailysweep

// Input selects the day to sweep. An empty day means today in the
// configured timezone.
type Input struct {
	Day string `json:"day,omitempty"` // YYYY-MM-DD
}

type Output struct {
	SweepDay    string `json:"sweepDay,omitempty"`
	SweepStatus string `json:"sweepStatus"`
}

const (
	StatusCompleted      = "completed"
	StatusAlreadyRunning = "already_running"
	StatusDisabled       = "disabled"
)
