package imageurl

import (
	"fmt"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
)

// Cloudinary builds delivery URLs for assets hosted on Cloudinary.
type Cloudinary struct {
	cld *cloudinary.Cloudinary
}

// NewCloudinary constructs a Cloudinary URL builder. Delivery URLs need only the cloud name.
func NewCloudinary(cloudName string) (*Cloudinary, error) {
	cloudName = strings.TrimSpace(cloudName)
	if cloudName == "" {
		return nil, fmt.Errorf("imageurl: cloudinary cloud name required")
	}
	cld, err := cloudinary.NewFromParams(cloudName, "", "")
	if err != nil {
		return nil, fmt.Errorf("imageurl: cloudinary init: %w", err)
	}
	cld.Config.URL.Secure = true
	return &Cloudinary{cld: cld}, nil
}

// URL implements Builder.
func (c *Cloudinary) URL(src Source, opts Options) (string, error) {
	publicID := strings.TrimSpace(src.PublicID)
	if publicID == "" {
		publicID = strings.TrimSpace(src.Ref)
	}
	if publicID == "" {
		return "", ErrEmptyRef
	}
	img, err := c.cld.Image(publicID)
	if err != nil {
		return "", fmt.Errorf("imageurl: cloudinary asset %s: %w", publicID, err)
	}
	if opts.Width > 0 {
		img.Transformation = fmt.Sprintf("c_limit,w_%d", opts.Width)
	}
	u, err := img.String()
	if err != nil {
		return "", fmt.Errorf("imageurl: cloudinary url %s: %w", publicID, err)
	}
	return u, nil
}
