package imageurl

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const sanityCDN = "https://cdn.sanity.io/images"

// Sanity builds cdn.sanity.io URLs from "image-<id>-<w>x<h>-<fmt>" asset references.
type Sanity struct {
	ProjectID string
	Dataset   string
}

// URL implements Builder.
func (s Sanity) URL(src Source, opts Options) (string, error) {
	ref := strings.TrimSpace(src.Ref)
	if ref == "" {
		return "", ErrEmptyRef
	}
	if strings.HasPrefix(ref, "https://") || strings.HasPrefix(ref, "http://") {
		return ref, nil
	}
	id, dims, format, err := parseSanityRef(ref)
	if err != nil {
		return "", err
	}
	if s.ProjectID == "" || s.Dataset == "" {
		return "", fmt.Errorf("imageurl: sanity project and dataset required: %w", ErrMalformedRef)
	}
	u := fmt.Sprintf("%s/%s/%s/%s-%s.%s", sanityCDN, url.PathEscape(s.ProjectID), url.PathEscape(s.Dataset), id, dims, format)
	if opts.Width > 0 {
		u += "?w=" + strconv.Itoa(opts.Width)
	}
	return u, nil
}

func parseSanityRef(ref string) (id, dims, format string, err error) {
	if !strings.HasPrefix(ref, "image-") {
		return "", "", "", fmt.Errorf("%w: %q", ErrMalformedRef, ref)
	}
	parts := strings.Split(strings.TrimPrefix(ref, "image-"), "-")
	if len(parts) < 3 {
		return "", "", "", fmt.Errorf("%w: %q", ErrMalformedRef, ref)
	}
	format = parts[len(parts)-1]
	dims = parts[len(parts)-2]
	id = strings.Join(parts[:len(parts)-2], "-")
	w, h, ok := strings.Cut(dims, "x")
	if !ok || id == "" || format == "" {
		return "", "", "", fmt.Errorf("%w: %q", ErrMalformedRef, ref)
	}
	if _, err := strconv.Atoi(w); err != nil {
		return "", "", "", fmt.Errorf("%w: %q", ErrMalformedRef, ref)
	}
	if _, err := strconv.Atoi(h); err != nil {
		return "", "", "", fmt.Errorf("%w: %q", ErrMalformedRef, ref)
	}
	return id, dims, format, nil
}
