package cms

import (
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ErrNotFound is returned when no collection matches the requested slug.
var ErrNotFound = errors.New("cms: not found")

// Collection is a CMS-managed record describing one NFT drop.
type Collection struct {
	ID                string   `json:"_id" yaml:"id"`
	Title             string   `json:"title" yaml:"title"`
	Address           string   `json:"address" yaml:"address"`
	Description       string   `json:"description" yaml:"description"`
	NFTCollectionName string   `json:"nftCollectionName" yaml:"nft_collection_name"`
	MainImage         ImageRef `json:"mainImage" yaml:"main_image"`
	PreviewImage      ImageRef `json:"previewImage" yaml:"preview_image"`
	Slug              Slug     `json:"slug" yaml:"slug"`
	Creator           *Creator `json:"creator,omitempty" yaml:"creator,omitempty"`
}

// Creator is the author reference projected with each collection.
type Creator struct {
	ID      string `json:"_id" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	Address string `json:"address" yaml:"address"`
	Slug    Slug   `json:"slug" yaml:"slug"`
}

// Slug mirrors the CMS slug object; Current is the routing key.
type Slug struct {
	Current string `json:"current" yaml:"current"`
}

// ImageRef points at an image asset. PublicID is set by the Cloudinary asset plugin.
type ImageRef struct {
	Asset    AssetRef `json:"asset" yaml:"asset"`
	PublicID string   `json:"public_id,omitempty" yaml:"public_id,omitempty"`
}

// AssetRef is the raw asset reference (e.g. "image-<id>-<w>x<h>-<fmt>").
type AssetRef struct {
	Ref  string `json:"_ref" yaml:"ref"`
	Type string `json:"_type,omitempty" yaml:"type,omitempty"`
}

// Path returns the detail page route for the collection.
func (c Collection) Path() string {
	return "/nft/" + c.Slug.Current
}

// HasValidAddress reports whether Address is a well-formed contract address.
// Collections without one render an inert mint panel.
func (c Collection) HasValidAddress() bool {
	return common.IsHexAddress(strings.TrimSpace(c.Address))
}

func cloneCollection(src Collection) Collection {
	cp := src
	if src.Creator != nil {
		creator := *src.Creator
		cp.Creator = &creator
	}
	return cp
}
