package api

import (
	"net/http"
	"os"
)

func (s *Server) storiesStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.stories.Stats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total_images":      stats.TotalImages,
		"total_audio_files": stats.TotalAudioFiles,
		"total_size_mb":     stats.TotalSizeMB,
		"upload_dir":        stats.UploadDir,
		"message":           "File-based storage statistics",
	})
}

func (s *Server) root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message":     "Welcome to StoryLens API",
		"description": "Multi-modal Photo Story Generator",
		"version":     apiVersion,
		"status":      "running",
	})
}

// health reports unhealthy when the upload tree is gone, since neither
// uploads nor audio generation can succeed without it.
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	st, err := os.Stat(s.store.BaseDir())
	if err == nil && !st.IsDir() {
		err = &os.PathError{Op: "stat", Path: s.store.BaseDir(), Err: os.ErrInvalid}
	}
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":            "unhealthy",
			"error":             err.Error(),
			"upload_dir_exists": false,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":              "healthy",
		"kosmos_model_loaded": s.stories.CaptionerReady(),
		"tts_model_loaded":    s.audio.Speaker().IsReady(),
		"upload_dir_exists":   true,
	})
}
