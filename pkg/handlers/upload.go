package handlers

import (
	"errors"
	"io"
	"net/http"

	"rich-edit/pkg/imagestore"
	"rich-edit/pkg/metrics"
)

type uploadResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	URL     string `json:"url,omitempty"`
	// ImageURL mirrors URL for older clients.
	ImageURL string `json:"image_url,omitempty"`
}

func uploadFailed(w http.ResponseWriter, status int, msg string) {
	metrics.Uploads.WithLabelValues("rejected").Inc()
	writeJSON(w, status, uploadResponse{Message: msg})
}

// UploadImage stores the multipart field "image" and returns its public URL
func (h *Handlers) UploadImage(w http.ResponseWriter, r *http.Request) {
	if h.images == nil {
		uploadFailed(w, http.StatusServiceUnavailable, "Image uploads are not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, imagestore.MaxFileSize+1<<20)
	file, header, err := r.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			uploadFailed(w, http.StatusRequestEntityTooLarge, imagestore.ErrFileTooLarge.Error())
			return
		}
		uploadFailed(w, http.StatusBadRequest, "No file selected")
		return
	}
	defer file.Close()

	if err := imagestore.ValidateName(header.Filename); err != nil {
		uploadFailed(w, http.StatusBadRequest, err.Error())
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, imagestore.MaxFileSize+1))
	if err != nil {
		uploadFailed(w, http.StatusBadRequest, "Failed to read file")
		return
	}

	f := imagestore.File{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}
	if f.ContentType == "application/octet-stream" {
		f.ContentType = ""
	}
	if err := imagestore.Validate(f); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, imagestore.ErrFileTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		uploadFailed(w, status, err.Error())
		return
	}

	url, err := h.images.Upload(r.Context(), f)
	if err != nil {
		h.log.Error("store uploaded image", "file", f.Name, "error", err)
		msg := "Failed to upload image"
		var uploadErr *imagestore.UploadError
		if errors.As(err, &uploadErr) {
			msg = uploadErr.Message
		}
		metrics.Uploads.WithLabelValues("failed").Inc()
		writeJSON(w, http.StatusInternalServerError, uploadResponse{Message: msg})
		return
	}

	metrics.Uploads.WithLabelValues("ok").Inc()
	writeJSON(w, http.StatusOK, uploadResponse{
		Success:  true,
		Message:  "Image uploaded successfully",
		URL:      url,
		ImageURL: url,
	})
}
