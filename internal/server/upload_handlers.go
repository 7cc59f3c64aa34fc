package server

import (
	"errors"
	"io"
	"strings"

	"folio/internal/media"
	"folio/internal/models"

	"github.com/gofiber/fiber/v2"
)

// UploadImage handles POST /api/uploads. The image arrives either as a
// multipart "image" file or as JSON {"image": "<base64 or data URI>"}.
// @Summary Upload an image
// @Tags media
// @Accept mpfd
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param image formData file false "Image file"
// @Param folder query string false "Target folder"
// @Success 201 {object} models.Response{data=media.UploadResult}
// @Failure 400 {object} models.Response
// @Failure 413 {object} models.Response
// @Router /uploads [post]
func (s *Server) UploadImage(c *fiber.Ctx) error {
	if s.media == nil {
		return respondError(c, models.NewInternalError(errors.New("no media store configured")))
	}

	data, err := readImagePayload(c)
	switch {
	case errors.Is(err, errResponseWritten):
		return nil
	case errors.Is(err, media.ErrInvalidImage):
		return respondError(c, models.NewValidationError("Invalid image data"))
	case err != nil:
		return respondError(c, err)
	}

	folder := strings.Trim(c.Query("folder", media.DefaultFolder), "/ ")
	if folder == "" || strings.Contains(folder, "..") {
		folder = media.DefaultFolder
	}

	res, err := s.media.Upload(c.UserContext(), data, folder)
	switch {
	case errors.Is(err, media.ErrTooLarge):
		return models.RespondWithError(c, fiber.StatusRequestEntityTooLarge,
			models.NewValidationError("Image exceeds upload limit"))
	case errors.Is(err, media.ErrInvalidImage):
		return respondError(c, models.NewValidationError("Invalid image data"))
	case err != nil:
		return respondError(c, models.NewInternalError(err))
	}
	return respondCreated(c, "Image uploaded", res)
}

func readImagePayload(c *fiber.Ctx) ([]byte, error) {
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		fh, err := c.FormFile("image")
		if err != nil {
			return nil, models.NewValidationError("image file is required")
		}
		f, err := fh.Open()
		if err != nil {
			return nil, models.NewInternalError(err)
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			return nil, models.NewInternalError(err)
		}
		return data, nil
	}

	var req struct {
		Image string `json:"image"`
	}
	if err := decodeJSON(c, &req); err != nil {
		return nil, err
	}
	if !media.IsInline(req.Image) {
		return nil, models.NewValidationError("image must be base64 data")
	}
	return media.DecodeInline(req.Image)
}
