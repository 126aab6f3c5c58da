package tts

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"time"
)

// ToneSynthesizer renders one short tone per word. It needs no external tools
// and is the default on servers without a speech engine.
type ToneSynthesizer struct {
	SampleRate int
	WordLength time.Duration
	Gap        time.Duration
}

func NewToneSynthesizer() *ToneSynthesizer {
	return &ToneSynthesizer{
		SampleRate: 16000,
		WordLength: 180 * time.Millisecond,
		Gap:        60 * time.Millisecond,
	}
}

func (s *ToneSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil, ErrEmptyText
	}

	wordSamples := int(s.WordLength.Seconds() * float64(s.SampleRate))
	gapSamples := int(s.Gap.Seconds() * float64(s.SampleRate))
	samples := make([]int16, 0, len(words)*(wordSamples+gapSamples))

	for _, w := range words {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		freq := wordFrequency(w)
		for i := range wordSamples {
			t := float64(i) / float64(s.SampleRate)
			// short linear fade at both ends avoids clicks
			env := math.Min(1, math.Min(float64(i), float64(wordSamples-i))/float64(s.SampleRate/100+1))
			samples = append(samples, int16(0.3*env*math.MaxInt16*math.Sin(2*math.Pi*freq*t)))
		}
		samples = append(samples, make([]int16, gapSamples)...)
	}

	return EncodeWAV(samples, s.SampleRate), nil
}

// wordFrequency maps a word to a pitch between 220 and 660 Hz.
func wordFrequency(w string) float64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(w)))
	return 220 + float64(h.Sum32()%440)
}
