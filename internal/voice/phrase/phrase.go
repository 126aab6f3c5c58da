// Package phrase picks canned interviewer replies.
package phrase

import "math/rand/v2"

//nolint:gochecknoglobals // fixed reply list
var defaultPhrases = []string{
	"That's an interesting point.",
	"I'll need to think about that.",
	"Tell me more.",
	"I understand your perspective.",
	"That's a valid concern.",
	"Can you elaborate on that?",
	"I see what you mean.",
	"That's a good question.",
	"Let's explore that further.",
	"I appreciate your input.",
	"That's something to consider.",
	"I'll take that into account.",
	"That's a great observation.",
	"I hadn't thought of it that way.",
	"That's a compelling argument.",
	"I'll need to look into that.",
	"That's a fair point.",
	"I can see why you think that.",
	"That's an important issue.",
	"I'll make a note of that.",
	"That's a thoughtful comment.",
	"I value your perspective.",
	"That's a noteworthy point.",
	"I'll consider that carefully.",
	"That's a reasonable suggestion.",
}

// Defaults returns a copy of the built-in reply list.
func Defaults() []string {
	out := make([]string, len(defaultPhrases))
	copy(out, defaultPhrases)
	return out
}

// Picker returns phrases uniformly at random. It is safe for concurrent use.
type Picker struct {
	phrases []string
	intN    func(n int) int
}

// NewPicker uses the built-in list when phrases is empty.
func NewPicker(phrases ...string) *Picker {
	if len(phrases) == 0 {
		phrases = defaultPhrases
	}
	return &Picker{phrases: phrases, intN: rand.IntN}
}

func (p *Picker) Next() string {
	return p.phrases[p.intN(len(p.phrases))]
}
