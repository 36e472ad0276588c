package api

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/soochol/storylens/internal/storylens"
)

type generateAudioRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
}

type generateAudioResponse struct {
	*storylens.GeneratedAudio
	Message string `json:"message"`
}

func (s *Server) generateAudio(w http.ResponseWriter, r *http.Request) {
	var req generateAudioRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(&req); err != nil {
		writeError(w, r, fmt.Errorf("%w: invalid request body: %v", storylens.ErrValidation, err))
		return
	}

	audio, err := s.audio.Generate(r.Context(), req.Text, req.Voice)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, generateAudioResponse{
		GeneratedAudio: audio,
		Message:        "Audio generated successfully!",
	})
}

func (s *Server) serveAudio(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	path, info, err := s.audio.Locate(filename)
	if err != nil {
		writeError(w, r, err)
		return
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			writeNotFound(w, r)
			return
		}
		writeError(w, r, fmt.Errorf("open audio: %w", err))
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", audioContentType(filepath.Ext(filename)))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	http.ServeContent(w, r, filename, info.Modified, f)
}

func (s *Server) deleteAudio(w http.ResponseWriter, r *http.Request) {
	if err := s.audio.Delete(chi.URLParam(r, "filename")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Audio deleted successfully"})
}

func (s *Server) ttsStatus(w http.ResponseWriter, r *http.Request) {
	speaker := s.audio.Speaker()
	writeJSON(w, http.StatusOK, map[string]any{
		"tts_model_loaded": speaker.IsReady(),
		"available_voices": speaker.Voices(),
		"model_name":       speaker.ModelName(),
	})
}

// audioContentType covers the formats the speech backends produce; the
// system MIME table is consulted for anything else.
func audioContentType(ext string) string {
	switch strings.ToLower(ext) {
	case ".wav":
		return "audio/wav"
	case ".mp3":
		return "audio/mpeg"
	case ".ogg", ".opus":
		return "audio/ogg"
	case ".flac":
		return "audio/flac"
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
