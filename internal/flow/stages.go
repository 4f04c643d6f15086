package flow

import "time"

// Stage is one message shown while a resolution is in progress
type Stage struct {
	Text string
	// At is the fraction of the minimum resolving time after which the stage appears
	At float64
}

// LoadingStages are shown in order while resolving
var LoadingStages = []Stage{
	{Text: "Analyzing your profile with AI", At: 0},
	{Text: "Searching government databases", At: 1.0 / 3},
	{Text: "Matching eligibility criteria", At: 2.0 / 3},
	{Text: "Preparing recommendations", At: 5.0 / 6},
}

// StagesAt returns the stages reached after elapsed time, given the floor
func StagesAt(elapsed, floor time.Duration) []Stage {
	if floor <= 0 {
		return LoadingStages
	}
	progress := float64(elapsed) / float64(floor)

	n := 0
	for _, s := range LoadingStages {
		if progress >= s.At {
			n++
		}
	}
	return LoadingStages[:n]
}
