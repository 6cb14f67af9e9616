package logging

// ProgressSampler thins per-item progress callbacks down to one log line per
// completion bucket. Completion itself always reports, once.
type ProgressSampler struct {
	step       float64
	lastBucket int
}

// NewProgressSampler returns a sampler reporting every step percent. Values
// outside (0, 100] use 25.
func NewProgressSampler(step float64) *ProgressSampler {
	if step <= 0 || step > 100 {
		step = 25
	}
	return &ProgressSampler{step: step}
}

// Observe records done of total items. It returns the completion percentage
// and whether this observation should be logged. A nil sampler logs every
// observation.
func (s *ProgressSampler) Observe(done, total int) (float64, bool) {
	if total <= 0 {
		return 0, false
	}
	done = min(max(done, 0), total)
	percent := float64(done) * 100 / float64(total)
	if s == nil {
		return percent, true
	}
	bucket := int(percent / s.step)
	if done == total {
		bucket = int(100/s.step) + 1
	}
	if bucket <= s.lastBucket {
		return percent, false
	}
	s.lastBucket = bucket
	return percent, true
}

// Reset starts a new pass.
func (s *ProgressSampler) Reset() {
	if s != nil {
		s.lastBucket = 0
	}
}
