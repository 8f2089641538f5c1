package handlers

import (
	"mime/multipart"

	"natours/internal/storage"
)

// openUploads opens the multipart files as storage uploads. The returned
// func closes every opened file.
func openUploads(headers []*multipart.FileHeader) ([]storage.Upload, func(), error) {
	var files []multipart.File
	closeAll := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}
	ups := make([]storage.Upload, 0, len(headers))
	for _, h := range headers {
		f, err := h.Open()
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		files = append(files, f)
		ups = append(ups, storage.Upload{
			ContentType: h.Header.Get("Content-Type"),
			Size:        h.Size,
			Body:        f,
		})
	}
	return ups, closeAll, nil
}
