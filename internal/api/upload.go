package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/soochol/storylens/internal/storylens"
)

const createdAtLayout = "2006-01-02 15:04:05"

type uploadResponse struct {
	ID             int64               `json:"id"`
	Title          string              `json:"title"`
	Content        string              `json:"content"`
	StoryType      storylens.StoryType `json:"story_type"`
	ImageFilename  string              `json:"image_filename"`
	ImagePath      string              `json:"image_path"`
	GenerationTime float64             `json:"generation_time"`
	ModelUsed      string              `json:"model_used"`
	CreatedAt      string              `json:"created_at"`
	Message        string              `json:"message"`
}

// uploadImage accepts a multipart "file" and an optional story_type, given
// as a query parameter or form field.
func (s *Server) uploadImage(w http.ResponseWriter, r *http.Request) {
	if st := r.URL.Query().Get("story_type"); st != "" {
		if err := s.stories.CheckStoryType(st); err != nil {
			writeError(w, r, err)
			return
		}
	}

	limit := s.storageCfg.MaxFileSize + multipartOverhead
	if r.ContentLength > limit {
		writeError(w, r, fmt.Errorf("%w: request body exceeds %d bytes", storylens.ErrTooLarge, limit))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(multipartOverhead); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, r, fmt.Errorf("%w: request body exceeds %d bytes", storylens.ErrTooLarge, limit))
			return
		}
		writeError(w, r, fmt.Errorf("%w: invalid multipart form: %v", storylens.ErrValidation, err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	storyType := r.URL.Query().Get("story_type")
	if storyType == "" {
		storyType = r.FormValue("story_type")
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: missing file field", storylens.ErrValidation))
		return
	}
	defer file.Close()

	story, err := s.stories.CreateStory(r.Context(), file, header.Filename, header.Size, storyType)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		ID:             story.ID,
		Title:          story.Narrative.Title,
		Content:        story.Narrative.Content,
		StoryType:      story.Narrative.StoryType,
		ImageFilename:  story.Image.Filename,
		ImagePath:      story.Image.Path,
		GenerationTime: story.Narrative.GenerationTime,
		ModelUsed:      story.Narrative.ModelUsed,
		CreatedAt:      story.CreatedAt.Format(createdAtLayout),
		Message:        "Story generated successfully!",
	})
}

func (s *Server) uploadStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"kosmos_model_loaded": s.stories.CaptionerReady(),
		"max_file_size":       s.storageCfg.MaxFileSize,
		"allowed_extensions":  s.storageCfg.AllowedExtensions,
		"upload_dir":          s.store.BaseDir(),
	})
}
