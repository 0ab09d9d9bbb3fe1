// Package helper tracks recent die faces per (guild, user, die size) and flags
// users whose recent luck is below the die's expected mean.
package helper

// Window is the number of most recent faces kept per key.
const Window = 5

// Key identifies one rolling streak.
type Key struct {
	GuildID string
	UserID  string
	Sides   int
}

// State is the streak snapshot for a Key.
//
// Invariant: len(Faces) <= Window; Faces are oldest first.
type State struct {
	Faces    []int
	Assisted bool
}

// Store holds streak states. Update must apply fn atomically per key: two
// concurrent updates of the same key never lose a face.
type Store interface {
	// Update replaces the state at key with fn(current) and returns it.
	// An absent key is passed to fn as the zero State.
	Update(key Key, fn func(State) State) State
	// Get returns the state at key and whether it exists.
	Get(key Key) (State, bool)
}

// Tracker records faces into a Store and derives the assisted flag.
// It implements dice.FaceRecorder.
type Tracker struct {
	store Store
}

// NewTracker creates a Tracker over store.
//
// Precondition: store must be non-nil.
func NewTracker(store Store) *Tracker {
	return &Tracker{store: store}
}

// RecordFace appends face to the streak for (guildID, userID, sides),
// evicting the oldest face beyond Window, and recomputes the flag.
func (t *Tracker) RecordFace(guildID, userID string, sides, face int) {
	key := Key{GuildID: guildID, UserID: userID, Sides: sides}
	t.store.Update(key, func(s State) State {
		faces := make([]int, 0, Window)
		faces = append(faces, s.Faces...)
		faces = append(faces, face)
		if len(faces) > Window {
			faces = faces[len(faces)-Window:]
		}
		return State{Faces: faces, Assisted: assisted(faces, sides)}
	})
}

// IsAssisted reports the current flag for (guildID, userID, sides).
// Unknown keys are not assisted.
func (t *Tracker) IsAssisted(guildID, userID string, sides int) bool {
	s, ok := t.store.Get(Key{GuildID: guildID, UserID: userID, Sides: sides})
	return ok && s.Assisted
}

// Snapshot returns a copy of the state for key.
func (t *Tracker) Snapshot(key Key) State {
	s, _ := t.store.Get(key)
	return State{Faces: append([]int(nil), s.Faces...), Assisted: s.Assisted}
}

// assisted is true iff the window is full and its mean is below the die's
// expected value (1+sides)/2. Integer form of sum/Window < (1+sides)/2.
func assisted(faces []int, sides int) bool {
	if len(faces) < Window {
		return false
	}
	sum := 0
	for _, f := range faces {
		sum += f
	}
	return 2*sum < Window*(1+sides)
}
