package display

import (
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/muurk/sensordash/internal/protocol"
)

// RenderRequest lists what must be repainted after a command. Only the
// named boxes are touched; Mood asks for the whole mood panel.
type RenderRequest struct {
	Boxes []BoxID
	Mood  bool
}

// Empty reports whether nothing needs repainting
func (r RenderRequest) Empty() bool {
	return len(r.Boxes) == 0 && !r.Mood
}

// State is the display's current content: one value per box plus, for the
// mood dialect, the mood and its message.
//
// State is not safe for concurrent use. The display owns one State and
// mutates it from its single control loop.
type State struct {
	layout *Layout
	values map[BoxID]string

	moisture *int
	mood     Mood
	message  string
	picked   bool // message drawn from the mood's pool

	rng *rand.Rand
}

// StateOption configures a State
type StateOption func(*State)

// WithRand sets the source used to pick mood messages
func WithRand(r *rand.Rand) StateOption {
	return func(s *State) {
		s.rng = r
	}
}

// NewState creates a state with every box at its placeholder and the mood
// healthy.
func NewState(layout *Layout, opts ...StateOption) *State {
	s := &State{
		layout: layout,
		values: make(map[BoxID]string, len(layout.order)),
		mood:   Healthy,
	}
	for _, id := range layout.order {
		s.values[id] = layout.boxes[id].Placeholder
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		seed := uint64(time.Now().UnixNano())
		s.rng = rand.New(rand.NewPCG(seed, seed>>1))
	}
	s.message = moodMessages[Healthy][0]
	return s
}

// Layout returns the layout the state was built for
func (s *State) Layout() *Layout {
	return s.layout
}

// Value returns the current display value of a box (without suffix)
func (s *State) Value(id BoxID) string {
	return s.values[id]
}

// DisplayValue returns the text drawn in a box: the value plus its unit
// suffix ("23.7C", "41%").
func (s *State) DisplayValue(id BoxID) string {
	return s.values[id] + s.layout.boxes[id].Suffix
}

// Mood returns the current mood
func (s *State) Mood() Mood {
	return s.mood
}

// Message returns the text shown in the mood panel
func (s *State) Message() string {
	return s.message
}

// Moisture returns the last moisture reading, if any
func (s *State) Moisture() (int, bool) {
	if s.moisture == nil {
		return 0, false
	}
	return *s.moisture, true
}

// Background returns the color a box is painted with. In the mood dialect
// the moisture box takes the color of its level.
func (s *State) Background(id BoxID) Color {
	box := s.layout.boxes[id]
	if s.layout.HasMood() && id.Kind == KindMoist && s.moisture != nil {
		return MoistureLabel(*s.moisture).Color()
	}
	return box.Background
}

// Full requests a repaint of everything, as done at startup
func (s *State) Full() RenderRequest {
	return RenderRequest{Boxes: s.layout.IDs(), Mood: s.layout.HasMood()}
}

// Apply updates the state for cmd and returns what needs repainting. The
// bool is false when nothing changed on screen (Unknown commands, commands
// for boxes the layout lacks, mood overrides that keep the current mood).
func (s *State) Apply(cmd protocol.Command) (RenderRequest, bool) {
	switch c := cmd.(type) {
	case protocol.SetTemperature:
		return s.set(BoxID{c.Device, KindTemp}, protocol.FormatTemperature(c.Value))
	case protocol.SetHumidity:
		return s.set(BoxID{c.Device, KindHumid}, strconv.Itoa(c.Value))
	case protocol.SetMoisture:
		if s.layout.HasMood() {
			return s.setMoisture(c.Value)
		}
		return s.set(BoxID{c.Device, KindMoist}, strconv.Itoa(c.Value))
	case protocol.SetVoiceText:
		if s.layout.HasMood() {
			s.message = c.Text
			s.picked = false
			return RenderRequest{Mood: true}, true
		}
		return s.set(BoxID{c.Device, KindVoice}, c.Text)
	case protocol.SetHealthState:
		if !s.layout.HasMood() {
			return RenderRequest{}, false
		}
		mood := Unhealthy
		if c.Healthy {
			mood = Healthy
		}
		if !s.setMood(mood) {
			return RenderRequest{}, false
		}
		return RenderRequest{Mood: true}, true
	}
	return RenderRequest{}, false
}

func (s *State) set(id BoxID, value string) (RenderRequest, bool) {
	if _, ok := s.layout.boxes[id]; !ok {
		return RenderRequest{}, false
	}
	s.values[id] = value
	if s.layout.HasMood() {
		// the stat strip is repainted as a whole
		return RenderRequest{Boxes: s.layout.IDs()}, true
	}
	return RenderRequest{Boxes: []BoxID{id}}, true
}

func (s *State) setMoisture(v int) (RenderRequest, bool) {
	s.moisture = &v
	s.values[BoxID{Kind: KindMoist}] = string(MoistureLabel(v))
	req := RenderRequest{Boxes: s.layout.IDs()}
	req.Mood = s.setMood(Classify(v))
	return req, true
}

// setMood switches mood and picks a new message. It reports whether the
// mood actually changed.
func (s *State) setMood(m Mood) bool {
	if m == s.mood {
		return false
	}
	s.mood = m
	pool := moodMessages[m]
	s.message = pool[s.rng.IntN(len(pool))]
	s.picked = true
	return true
}

// Snapshot is a serializable copy of the state
//
// MessagePicked is set when Message was drawn at random from the mood's
// pool; another State given the same commands may hold a different message
// from that pool.
type Snapshot struct {
	Dialect       string        `json:"dialect"`
	Boxes         []BoxSnapshot `json:"boxes"`
	Mood          string        `json:"mood,omitempty"`
	Message       string        `json:"message,omitempty"`
	MessagePicked bool          `json:"message_picked,omitempty"`
	Moisture      *int          `json:"moisture,omitempty"`
}

// BoxSnapshot is one box in a Snapshot
type BoxSnapshot struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Value string `json:"value"`
}

// Snapshot copies the current state
func (s *State) Snapshot() Snapshot {
	snap := Snapshot{Dialect: string(s.layout.Dialect)}
	for _, id := range s.layout.order {
		box := s.layout.boxes[id]
		snap.Boxes = append(snap.Boxes, BoxSnapshot{
			ID:    id.String(),
			Label: box.Label,
			Value: s.values[id] + box.Suffix,
		})
	}
	if s.layout.HasMood() {
		snap.Mood = s.mood.String()
		snap.Message = s.message
		snap.MessagePicked = s.picked
		if s.moisture != nil {
			m := *s.moisture
			snap.Moisture = &m
		}
	}
	return snap
}
