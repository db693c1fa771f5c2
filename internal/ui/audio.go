package ui

// silenceStream is an io.Reader that always yields digital silence. The
// APU package here is a register-only stub with no channel synthesis
// (an explicit spec Non-goal), so the host still needs to keep an
// ebiten audio.Player alive and fed to avoid the player underrun path
// from spinning, but there is no PCM to pull.
type silenceStream struct{}

func (s *silenceStream) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}
