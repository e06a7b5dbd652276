package loyalty

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/ecopoint/temaedori/internal/ocr"
	"github.com/ecopoint/temaedori/internal/reward"
)

// maxUploadSize bounds multipart uploads; 50MB covers high-resolution
// phone photos
const maxUploadSize = int64(50 << 20)

// corsError writes an error response with CORS headers set
func (s *Server) corsError(w http.ResponseWriter, message string, code int) {
	s.setCORSHeaders(w)
	http.Error(w, message, code)
}

// writeJSON writes a JSON response with the given status
func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// writeJSONError writes a JSON error body with the given status
func (s *Server) writeJSONError(w http.ResponseWriter, code int, message string) {
	s.setCORSHeaders(w)
	s.writeJSON(w, code, map[string]string{"error": message})
}

// handleScanReceipt accepts a multipart receipt image, runs OCR and
// returns the classified scan result
func (s *Server) handleScanReceipt(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		message := "Error parsing form"
		if err.Error() == "http: request body too large" {
			message = "File is too large. Maximum size is 50MB. Please compress or resize your image."
		}
		s.writeJSONError(w, http.StatusBadRequest, message)
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		s.writeJSONError(w, http.StatusBadRequest, "No file was selected. Please choose a receipt image to upload.")
		return
	}
	defer f.Close()

	if header.Size > maxUploadSize {
		s.writeJSONError(w, http.StatusBadRequest, "File is too large. Maximum size is 50MB. Please compress or resize your image.")
		return
	}

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		s.writeJSONError(w, http.StatusInternalServerError, "Error reading file. Please try again.")
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = contentTypeFromExt(header.Filename)
	}
	contentType = strings.ToLower(strings.TrimSpace(contentType))

	result, err := s.service.ScanReceipt(r.Context(), header.Filename, data, contentType)
	if err != nil {
		slog.Error("Error scanning receipt", "filename", header.Filename, "error", err)
		switch {
		case errors.Is(err, ocr.ErrUnavailable):
			// Distinct, user-actionable: the feature itself is off
			s.writeJSONError(w, http.StatusServiceUnavailable, ocr.ErrUnavailable.Error())
		case errors.Is(err, ocr.ErrNoText):
			s.writeJSONError(w, http.StatusBadRequest, "No text could be read from the image. Please retry with a clearer photo.")
		default:
			s.writeJSONError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

// handleSubmitActivity records the selected front-shelf picks of a
// confirmed scan
func (s *Server) handleSubmitActivity(w http.ResponseWriter, r *http.Request) {
	var sub Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		s.corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	activity, profile, err := s.service.SubmitActivity(sub)
	if err != nil {
		slog.Error("Error submitting activity", "user_id", sub.UserID, "error", err)
		switch {
		case errors.Is(err, ErrEmptySelection):
			s.writeJSONError(w, http.StatusBadRequest, "Select at least one front-shelf item before submitting.")
		case errors.Is(err, ErrProfileNotFound):
			s.writeJSONError(w, http.StatusNotFound, "Profile not found")
		default:
			s.writeJSONError(w, http.StatusInternalServerError, "Error saving activity")
		}
		return
	}

	s.writeJSON(w, http.StatusCreated, map[string]any{
		"activity": activity,
		"profile":  profile,
	})
}

// handleCreateProfile creates a new member profile
func (s *Server) handleCreateProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username    string `json:"username"`
		DisplayName string `json:"display_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	profile, err := s.service.CreateProfile(req.Username, req.DisplayName)
	if err != nil {
		slog.Error("Error creating profile", "username", req.Username, "error", err)
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.writeJSON(w, http.StatusCreated, profile)
}

// handleGetProfile returns a single profile
func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		s.corsError(w, "Profile ID required", http.StatusBadRequest)
		return
	}
	profile, err := s.service.GetProfile(id)
	if err != nil {
		s.corsError(w, "Profile not found", http.StatusNotFound)
		return
	}

	s.writeJSON(w, http.StatusOK, profile)
}

// handleListActivities returns a user's activity history
func (s *Server) handleListActivities(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		s.corsError(w, "Profile ID required", http.StatusBadRequest)
		return
	}
	activities, err := s.service.ListActivities(id)
	if err != nil {
		slog.Error("Error listing activities", "user_id", id, "error", err)
		s.corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if activities == nil {
		activities = []*Activity{}
	}

	s.writeJSON(w, http.StatusOK, activities)
}

// handleGetReceiptImage serves a retained receipt image
func (s *Server) handleGetReceiptImage(w http.ResponseWriter, r *http.Request) {
	path := r.PathValue("path")
	if path == "" {
		s.corsError(w, "Image path required", http.StatusBadRequest)
		return
	}
	data, err := s.service.GetReceiptImage(path)
	if err != nil {
		s.corsError(w, "Image not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", contentTypeFromExt(path))
	w.Write(data)
}

// handleListRanks returns the rank threshold table
func (s *Server) handleListRanks(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, reward.Ranks())
}

// contentTypeFromExt guesses a MIME type from the file extension
func contentTypeFromExt(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	default:
		return "application/octet-stream"
	}
}
