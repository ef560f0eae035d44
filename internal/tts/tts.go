// Package tts synthesizes spoken responses. Synthesized clips are cached
// on disk keyed by a hash of the text, since the same prompts recur on
// nearly every call.
package tts

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oakhurst-labs/frontdesk/internal/logging"
)

// Synthesizer turns response text into a playable audio clip. A "" URL
// with nil error means no audio is available and the caller should fall
// back to robotic text-to-speech on the telephony side.
type Synthesizer interface {
	// Synthesize returns a URL path (relative to the server base URL)
	// for an audio rendition of text.
	Synthesize(ctx context.Context, text string) (string, error)
}

// Noop never produces audio.
type Noop struct{}

func (Noop) Synthesize(context.Context, string) (string, error) { return "", nil }

// ElevenLabs renders speech through the ElevenLabs API and serves the
// result from a local audio directory.
type ElevenLabs struct {
	apiKey   string
	voiceID  string
	audioDir string
	client   *http.Client
	log      *logging.Logger
}

// NewElevenLabs creates a synthesizer writing clips under audioDir.
func NewElevenLabs(apiKey, voiceID, audioDir string, log *logging.Logger) (*ElevenLabs, error) {
	if err := os.MkdirAll(audioDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating audio dir: %w", err)
	}
	return &ElevenLabs{
		apiKey:   apiKey,
		voiceID:  voiceID,
		audioDir: audioDir,
		client:   &http.Client{Timeout: 15 * time.Second},
		log:      log.Sub("tts"),
	}, nil
}

// Synthesize returns the cached clip for text, rendering it on a miss.
func (e *ElevenLabs) Synthesize(ctx context.Context, text string) (string, error) {
	name := clipName(text)
	path := filepath.Join(e.audioDir, name)

	if _, err := os.Stat(path); err == nil {
		return "/audio/" + name, nil
	}

	body := fmt.Sprintf(`{"text":%q,"model_id":"eleven_turbo_v2"}`, text)
	url := fmt.Sprintf("https://api.elevenlabs.io/v1/text-to-speech/%s", e.voiceID)

	req, err := http.NewRequestWithContext(ctx, "POST", url, strings.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("API error (%d): %s", resp.StatusCode, string(msg))
	}

	f, err := os.CreateTemp(e.audioDir, "clip-*.tmp")
	if err != nil {
		return "", fmt.Errorf("creating clip: %w", err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("writing clip: %w", err)
	}
	f.Close()
	if err := os.Rename(f.Name(), path); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("publishing clip: %w", err)
	}

	e.log.Debug().Str("clip", name).Int("chars", len(text)).Msg("synthesized")
	return "/audio/" + name, nil
}

// clipName derives a stable cache filename from the text.
func clipName(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:8]) + ".mp3"
}
