package chunk

// Window accumulates streamed samples and releases full chunks every hop.
// Only the tail that overlaps the next chunk is retained after a release.
type Window struct {
	cfg    Config
	buf    []float32
	offset int
}

// NewWindow returns an empty window for cfg.
func NewWindow(cfg Config) *Window {
	return &Window{cfg: cfg, buf: make([]float32, 0, cfg.ChunkSamples*2)}
}

// Append adds samples to the window.
func (w *Window) Append(samples []float32) {
	w.buf = append(w.buf, samples...)
}

// Next returns the next full chunk, if one is buffered. The returned
// samples are a copy and stay valid after further appends.
func (w *Window) Next() (Chunk, bool) {
	if len(w.buf) < w.cfg.ChunkSamples {
		return Chunk{}, false
	}
	samples := make([]float32, w.cfg.ChunkSamples)
	copy(samples, w.buf)
	ch := Chunk{
		Samples: samples,
		Start:   w.offset,
		End:     w.offset + w.cfg.ChunkSamples,
		StartS:  float64(w.offset) / float64(w.cfg.SampleRate),
		EndS:    float64(w.offset+w.cfg.ChunkSamples) / float64(w.cfg.SampleRate),
	}

	hop := min(w.cfg.HopSamples, len(w.buf))
	n := copy(w.buf, w.buf[hop:])
	w.buf = w.buf[:n]
	w.offset += hop
	return ch, true
}

// Pending returns the number of buffered samples not yet released.
func (w *Window) Pending() int { return len(w.buf) }

// Discard drops any buffered remainder. Partial windows are never decoded.
func (w *Window) Discard() int {
	n := len(w.buf)
	w.buf = w.buf[:0]
	return n
}
