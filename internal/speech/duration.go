package speech

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-audio/wav"
)

var errNotWAV = errors.New("not a valid WAV file")

// WAVDuration reads the RIFF header of the file at path and returns the
// audio length in seconds.
func WAVDuration(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open audio: %w", err)
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return 0, errNotWAV
	}
	dur, err := d.Duration()
	if err != nil {
		return 0, fmt.Errorf("read wav duration: %w", err)
	}
	return dur.Seconds(), nil
}
