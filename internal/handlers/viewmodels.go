package handlers

import (
	"github.com/ch-Arham/NFT-Drop/internal/cms"
	"github.com/ch-Arham/NFT-Drop/internal/imageurl"
	"github.com/ch-Arham/NFT-Drop/internal/mint"
)

const (
	cardImageWidth    = 480
	previewImageWidth = 576
	mainImageWidth    = 640
	successTimeoutMS  = 5000
)

// Notification is one toast.
type Notification struct {
	Kind      string
	Message   string
	TimeoutMS int
}

// WalletView describes the connected wallet, if any.
type WalletView struct {
	Connected bool
	Address   string
}

// Layout carries what the base layout and header need.
type Layout struct {
	Brand         string
	Title         string
	CSRFToken     string
	Wallet        WalletView
	Notifications []Notification
}

// CardView is one collection card on the list page.
type CardView struct {
	Href        string
	Title       string
	Description string
	ImageURL    string
}

// ListPage is the collection list.
type ListPage struct {
	Layout
	Collections []CardView
}

// CollectionView is the static part of the detail page.
type CollectionView struct {
	Slug              string
	Title             string
	NFTCollectionName string
	Description       string
	PreviewImageURL   string
	MainImageURL      string
}

// PanelView is the mint panel fragment.
type PanelView struct {
	Phase        string
	Deferred     bool
	DropURL      string
	MintURL      string
	SupplyKnown  bool
	SupplyText   string
	Loading      bool
	Enabled      bool
	Label        string
	CSRFToken    string
	Notification *Notification
}

// DetailPage is the collection detail and mint page.
type DetailPage struct {
	Layout
	Collection CollectionView
	Panel      PanelView
}

// ErrorPage renders 404 and 5xx responses without any collection data.
type ErrorPage struct {
	Layout
	Status  int
	Heading string
	Message string
}

func (h *Handlers) cardView(c cms.Collection) CardView {
	return CardView{
		Href:        c.Path(),
		Title:       c.Title,
		Description: c.Description,
		ImageURL:    h.imageURL(c.MainImage, cardImageWidth),
	}
}

func (h *Handlers) collectionView(c cms.Collection) CollectionView {
	return CollectionView{
		Slug:              c.Slug.Current,
		Title:             c.Title,
		NFTCollectionName: c.NFTCollectionName,
		Description:       c.Description,
		PreviewImageURL:   h.imageURL(c.PreviewImage, previewImageWidth),
		MainImageURL:      h.imageURL(c.MainImage, mainImageWidth),
	}
}

func (h *Handlers) imageURL(ref cms.ImageRef, width int) string {
	src := imageurl.Source{Ref: ref.Asset.Ref, PublicID: ref.PublicID}
	return imageurl.Resolve(h.images, src, imageurl.Options{Width: width}, h.placeholder)
}

func panelView(c cms.Collection, state mint.State, csrfToken string) PanelView {
	return PanelView{
		Phase:       state.Phase.String(),
		DropURL:     c.Path() + "/drop",
		MintURL:     c.Path() + "/mint",
		SupplyKnown: state.SupplyKnown,
		SupplyText:  state.SupplyText(),
		Loading:     state.Loading() || state.Minting(),
		Enabled:     state.Enabled(),
		Label:       state.Label(),
		CSRFToken:   csrfToken,
	}
}

// deferredPanel is rendered with the page while the fragment loads. Collections without
// a valid contract stay inert and never ask for the fragment.
func deferredPanel(c cms.Collection, address, csrfToken string) PanelView {
	phase := mint.PhaseUninitialized
	if c.HasValidAddress() {
		phase = mint.PhaseLoading
	}
	view := panelView(c, mint.State{Phase: phase, Address: address}, csrfToken)
	view.Deferred = phase == mint.PhaseLoading
	return view
}
