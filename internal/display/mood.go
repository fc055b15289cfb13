package display

// Mood is the coarse plant health shown by the mood panel
type Mood int

const (
	Healthy Mood = iota
	Unhealthy
)

func (m Mood) String() string {
	if m == Unhealthy {
		return "unhealthy"
	}
	return "healthy"
}

// UnhealthyBelow is the moisture reading under which the plant is unhealthy
const UnhealthyBelow = 1000

// Classify maps a moisture reading to a mood
func Classify(moisture int) Mood {
	if moisture < UnhealthyBelow {
		return Unhealthy
	}
	return Healthy
}

// MoistureLevel is the label shown in the mood dialect's moisture box
type MoistureLevel string

const (
	MoistureGood    MoistureLevel = "GOOD"
	MoistureAverage MoistureLevel = "AVERAGE"
	MoistureBad     MoistureLevel = "BAD"
)

// MoistureLabel maps a reading to its label: above 2000 is GOOD, 1000
// through 2000 is AVERAGE, below 1000 is BAD.
func MoistureLabel(moisture int) MoistureLevel {
	switch {
	case moisture > 2000:
		return MoistureGood
	case moisture >= UnhealthyBelow:
		return MoistureAverage
	default:
		return MoistureBad
	}
}

// Color returns the box background for the level
func (l MoistureLevel) Color() Color {
	switch l {
	case MoistureGood:
		return Green
	case MoistureAverage:
		return Yellow
	case MoistureBad:
		return Red
	default:
		return Grey
	}
}

// Background returns the mood panel color
func (m Mood) Background() Color {
	if m == Unhealthy {
		return Maroon
	}
	return Olive
}

// Messages shown on a mood change. One is picked at random per transition.
var moodMessages = map[Mood][]string{
	Healthy: {
		"I feel great, thank you!",
		"Thanks for the water!",
		"Life is good in this pot",
		"Happy and hydrated",
	},
	Unhealthy: {
		"I'm thirsty, water me please",
		"Feeling a bit dry here",
		"Help! My soil is parched",
		"Could I get a drink?",
	},
}

// MoodMessages returns the message pool for a mood
func MoodMessages(m Mood) []string {
	return append([]string(nil), moodMessages[m]...)
}
