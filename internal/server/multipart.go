package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
)

// maxUploadBytes caps evidence photos at 10 MB.
const maxUploadBytes = 10 << 20

// proofForm is the parsed multipart payload shared by start and
// complete: a GPS fix plus one evidence photo.
type proofForm struct {
	Lat   float64
	Lon   float64
	Image []byte
}

var errInvalidMedia = errors.New("invalid media")

// readProofForm parses the multipart body and validates the photo's type
// and size. Validation failures cause no state change.
func readProofForm(r *http.Request, fileField string) (proofForm, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxUploadBytes+64<<10)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return proofForm{}, fmt.Errorf("%w: parsing form: %s", errInvalidMedia, err)
	}

	lat, err := strconv.ParseFloat(r.FormValue("latitude"), 64)
	if err != nil {
		return proofForm{}, fmt.Errorf("%w: latitude is required", errInvalidMedia)
	}
	lon, err := strconv.ParseFloat(r.FormValue("longitude"), 64)
	if err != nil {
		return proofForm{}, fmt.Errorf("%w: longitude is required", errInvalidMedia)
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return proofForm{}, fmt.Errorf("%w: coordinates out of bounds", errInvalidMedia)
	}

	file, header, err := r.FormFile(fileField)
	if err != nil {
		return proofForm{}, fmt.Errorf("%w: %s file is required", errInvalidMedia, fileField)
	}
	defer file.Close()

	if header.Size > maxUploadBytes {
		return proofForm{}, fmt.Errorf("%w: image exceeds 10 MB", errInvalidMedia)
	}

	image, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		return proofForm{}, fmt.Errorf("%w: reading image: %s", errInvalidMedia, err)
	}
	if len(image) > maxUploadBytes {
		return proofForm{}, fmt.Errorf("%w: image exceeds 10 MB", errInvalidMedia)
	}
	if len(image) == 0 {
		return proofForm{}, fmt.Errorf("%w: image is empty", errInvalidMedia)
	}

	// Sniff the actual content; the filename extension is not trusted.
	switch http.DetectContentType(image) {
	case "image/jpeg", "image/png":
	default:
		return proofForm{}, fmt.Errorf("%w: only jpg and png images are accepted", errInvalidMedia)
	}

	return proofForm{Lat: lat, Lon: lon, Image: image}, nil
}
