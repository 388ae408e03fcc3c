package logger

import (
	"strconv"
	"strings"
	"sync/atomic"
)

// ratioSampler lets through the first numerator events of every window of
// denominator events. A zero ratio lets everything through.
type ratioSampler struct {
	ratio atomic.Uint64 // numerator<<32 | denominator
	seen  atomic.Uint64
}

func newRatioSampler(numerator, denominator int) *ratioSampler {
	s := &ratioSampler{}
	s.Set(numerator, denominator)
	return s
}

// Set configures the sampling ratio using numerator/denominator.
func (s *ratioSampler) Set(numerator, denominator int) {
	s.seen.Store(0)
	if numerator <= 0 || denominator <= 0 {
		s.ratio.Store(0)
		return
	}
	numerator = min(numerator, denominator)
	s.ratio.Store(uint64(numerator)<<32 | uint64(uint32(denominator)))
}

// Allow reports whether the current event should pass sampling.
func (s *ratioSampler) Allow() bool {
	r := s.ratio.Load()
	if r == 0 {
		return true
	}
	num, den := r>>32, r&0xffffffff
	return (s.seen.Add(1)-1)%den < num
}

// parseRatioSpec accepts "n/d" or a bare "d" meaning 1/d. Zero or invalid
// input disables sampling.
func parseRatioSpec(spec string) (int, int) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return 0, 0
	}
	if num, den, ok := strings.Cut(spec, "/"); ok {
		n, err1 := strconv.Atoi(strings.TrimSpace(num))
		d, err2 := strconv.Atoi(strings.TrimSpace(den))
		if err1 != nil || err2 != nil {
			return 0, 0
		}
		return n, d
	}
	d, err := strconv.Atoi(spec)
	if err != nil || d <= 0 {
		return 0, 0
	}
	return 1, d
}
