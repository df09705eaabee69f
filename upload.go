package verses

import (
	"context"
	"io"
	"net/http"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/labstack/echo/v4"
)

// maxUploadSize caps cover image uploads at 10MB.
const maxUploadSize = 10 << 20

// allowedImageTypes is the MIME allow-list for uploads. No decoding or
// resizing happens here; the hosted media service owns the pixels.
var allowedImageTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
	"image/gif":  {},
}

// MediaUploader forwards an image to the hosted media service and returns
// its public URL.
type MediaUploader interface {
	Upload(ctx context.Context, r io.Reader) (string, error)
}

type cloudinaryUploader struct {
	cld    *cloudinary.Cloudinary
	folder string
}

func newCloudinaryUploader(cloudinaryURL, folder string) (*cloudinaryUploader, error) {
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, err
	}
	return &cloudinaryUploader{cld: cld, folder: folder}, nil
}

func (u *cloudinaryUploader) Upload(ctx context.Context, r io.Reader) (string, error) {
	resp, err := u.cld.Upload.Upload(ctx, r, uploader.UploadParams{Folder: u.folder})
	if err != nil {
		return "", err
	}
	return resp.SecureURL, nil
}

func (a *App) handleUpload(c echo.Context) error {
	if a.uploader == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Media uploads are not configured")
	}

	file, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "No file uploaded")
	}
	if file.Size > maxUploadSize {
		return echo.NewHTTPError(http.StatusBadRequest, "File too large (max 10MB)")
	}
	if _, ok := allowedImageTypes[file.Header.Get("Content-Type")]; !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "File type not supported")
	}

	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	url, err := a.uploader.Upload(c.Request().Context(), src)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "path": url})
}
