package api

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
)

// UploadsHandler serves files from the upload tree read-only. Directories
// and missing files answer with the JSON 404 body.
func UploadsHandler(dir string) http.Handler {
	fileServer := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := filepath.Join(dir, filepath.FromSlash(path.Clean("/"+r.URL.Path)))
		if st, err := os.Stat(name); err != nil || st.IsDir() {
			writeNotFound(w, r)
			return
		}
		fileServer.ServeHTTP(w, r)
	})
}
