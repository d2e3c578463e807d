package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ch-Arham/NFT-Drop/internal/drop"
	"github.com/ch-Arham/NFT-Drop/internal/testutil"
)

const apeContract = "0x1B5FA9C3cE2a2A0D5C5C7Bd1d6b7A1E1f0b1e5A1"

func newEnv(t *testing.T, seed drop.FakeDrop, opts ...testutil.ServerOption) (*testutil.Env, *testutil.StaticCMS) {
	t.Helper()
	source := testutil.NewStaticCMS(
		testutil.Collection("bored-ape", "Bored Ape", apeContract),
		testutil.Collection("space-cats", "Space Cats", ""),
	)
	fake := drop.NewFake(drop.FakeDrop{Total: 100, Price: decimal.RequireFromString("0.01")})
	fake.SetDrop(common.HexToAddress(apeContract), seed)
	opts = append([]testutil.ServerOption{testutil.WithCMS(source), testutil.WithDrop(fake)}, opts...)
	return testutil.NewServer(t, opts...), source
}

func openDrop(total, claimed int64) drop.FakeDrop {
	return drop.FakeDrop{Total: total, Claimed: claimed, Price: decimal.RequireFromString("0.01")}
}

func mintButton(doc *goquery.Document) (label string, enabled bool) {
	btn := doc.Find("#mint-panel button.mint-button")
	_, disabled := btn.Attr("disabled")
	return strings.TrimSpace(btn.Text()), btn.Length() == 1 && !disabled
}

func notifications(doc *goquery.Document) *goquery.Selection {
	return doc.Find(".toast-success, .toast-error")
}

func TestListLinksCardsToDetailPages(t *testing.T) {
	env, _ := newEnv(t, openDrop(10, 0))

	resp := env.Get(t, "/", false)
	require.Equal(t, http.StatusOK, resp.Status)
	doc := testutil.ParseHTML(t, resp.Body)

	var hrefs []string
	doc.Find("a.card").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		hrefs = append(hrefs, href)
	})
	require.Equal(t, []string{"/nft/bored-ape", "/nft/space-cats"}, hrefs)
	require.Equal(t, "Bored Ape", testutil.Text(doc, "a.card .card-title"))
	src, _ := doc.Find("a.card img").Attr("src")
	require.True(t, strings.HasPrefix(src, "https://cdn.sanity.io/images/test/production/mainbored-ape-100x100.png"), src)
	require.Equal(t, "The LeoAldo NFT Market Place", testutil.Text(doc, "h1.brand"))
	require.Equal(t, "NFT Project", doc.Find("title").Text())
}

func TestListCardsShowDescriptionAsText(t *testing.T) {
	c := testutil.Collection("bored-ape", "Bored Ape", apeContract)
	c.Description = "**10,000** unique apes"
	env := testutil.NewServer(t, testutil.WithCMS(testutil.NewStaticCMS(c)))

	doc := testutil.ParseHTML(t, env.Get(t, "/", false).Body)
	require.Equal(t, "10,000 unique apes", testutil.Text(doc, "a.card .card-description"))
	require.Zero(t, doc.Find("a.card .card-description strong").Length())

	doc = testutil.ParseHTML(t, env.Get(t, "/nft/bored-ape", false).Body)
	require.Equal(t, "10,000", testutil.Text(doc, ".description strong"))
}

func TestListRendersEmptyGridWhenCMSFails(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	env, source := newEnv(t, openDrop(10, 0), testutil.WithLogger(zap.New(core)))
	source.Fail(errors.New("dataset unavailable"))

	resp := env.Get(t, "/", false)
	require.Equal(t, http.StatusOK, resp.Status)
	doc := testutil.ParseHTML(t, resp.Body)
	require.Equal(t, 1, doc.Find("main .grid").Length())
	require.Zero(t, doc.Find("a.card").Length())
	require.Equal(t, 1, logs.FilterMessage("collection list fetch failed").Len())
}

func TestDetailUnknownSlugIs404(t *testing.T) {
	env, _ := newEnv(t, openDrop(10, 0))

	resp := env.Get(t, "/nft/does-not-exist", false)
	require.Equal(t, http.StatusNotFound, resp.Status)
	doc := testutil.ParseHTML(t, resp.Body)
	require.Zero(t, doc.Find(".collection-name").Length())
	require.Zero(t, doc.Find("#mint-panel").Length())
	require.Equal(t, "Collection not found", testutil.Text(doc, "main.error h1"))

	resp = env.Get(t, "/nft/does-not-exist/drop", true)
	require.Equal(t, http.StatusNotFound, resp.Status)
}

func TestDetailFetchFailureIs502(t *testing.T) {
	env, source := newEnv(t, openDrop(10, 0))
	source.Fail(errors.New("timeout"))

	resp := env.Get(t, "/nft/bored-ape", false)
	require.Equal(t, http.StatusBadGateway, resp.Status)
	require.Zero(t, testutil.ParseHTML(t, resp.Body).Find(".collection-name").Length())
}

func TestDetailRendersStaticContentWithDeferredPanel(t *testing.T) {
	env, _ := newEnv(t, openDrop(10, 3))

	resp := env.Get(t, "/nft/bored-ape", false)
	require.Equal(t, http.StatusOK, resp.Status)
	doc := testutil.ParseHTML(t, resp.Body)

	require.Equal(t, "Bored Ape Collection", testutil.Text(doc, "h1.collection-name"))
	require.Equal(t, "Bored Ape", testutil.Text(doc, "h1.title"))
	require.Equal(t, "Bored Ape on chain", testutil.Text(doc, ".description"))
	home, _ := doc.Find("header a.brand").Attr("href")
	require.Equal(t, "/", home)
	require.Equal(t, "Sign in", testutil.Text(doc, "button.wallet-toggle"))
	require.Zero(t, doc.Find(".wallet-banner").Length())

	panel := doc.Find("#mint-panel")
	phase, _ := panel.Attr("data-phase")
	require.Equal(t, "loading", phase)
	hxGet, _ := panel.Attr("hx-get")
	require.Equal(t, "/nft/bored-ape/drop", hxGet)
	trigger, _ := panel.Attr("hx-trigger")
	require.Equal(t, "load", trigger)
	require.Equal(t, "Loading Supply Count ...", testutil.Text(doc, "#mint-panel .supply"))
	require.Equal(t, 1, doc.Find("#mint-panel img.loader").Length())

	label, enabled := mintButton(doc)
	require.Equal(t, "Loading", label)
	require.False(t, enabled)
}

func TestInertPanelWithoutContractAddress(t *testing.T) {
	env, _ := newEnv(t, openDrop(10, 0))
	env.ConnectWallet(t)

	doc := testutil.ParseHTML(t, env.Get(t, "/nft/space-cats", false).Body)
	panel := doc.Find("#mint-panel")
	phase, _ := panel.Attr("data-phase")
	require.Equal(t, "uninitialized", phase)
	_, deferred := panel.Attr("hx-get")
	require.False(t, deferred)

	frag := testutil.ParseHTML(t, env.Get(t, "/nft/space-cats/drop", true).Body)
	label, enabled := mintButton(frag)
	require.Equal(t, "Loading", label)
	require.False(t, enabled)

	resp := env.Post(t, "/nft/space-cats/mint", nil, true)
	require.Equal(t, http.StatusServiceUnavailable, resp.Status)
	require.Zero(t, env.Drop.ClaimCalls())
}

func TestPanelSoldOutRegardlessOfWallet(t *testing.T) {
	env, _ := newEnv(t, openDrop(5, 5))

	resp := env.Get(t, "/nft/bored-ape/drop", true)
	require.Equal(t, http.StatusOK, resp.Status)
	doc := testutil.ParseHTML(t, resp.Body)
	require.Zero(t, doc.Find("html head title").Length())
	label, enabled := mintButton(doc)
	require.Equal(t, "SOLD OUT", label)
	require.False(t, enabled)
	require.Equal(t, "5 / 5 NFT's claimed", testutil.Text(doc, "#mint-panel .supply"))

	env.ConnectWallet(t)
	label, enabled = mintButton(testutil.ParseHTML(t, env.Get(t, "/nft/bored-ape/drop", true).Body))
	require.Equal(t, "SOLD OUT", label)
	require.False(t, enabled)
}

func TestConnectingWalletEnablesMint(t *testing.T) {
	env, _ := newEnv(t, openDrop(10, 2))

	label, enabled := mintButton(testutil.ParseHTML(t, env.Get(t, "/nft/bored-ape/drop", true).Body))
	require.Equal(t, "Sign in to Mint", label)
	require.False(t, enabled)

	address := env.ConnectWallet(t)

	label, enabled = mintButton(testutil.ParseHTML(t, env.Get(t, "/nft/bored-ape/drop", true).Body))
	require.Equal(t, "Mint NFT (0.01 ETH)", label)
	require.True(t, enabled)

	doc := testutil.ParseHTML(t, env.Get(t, "/nft/bored-ape", false).Body)
	require.Equal(t, "Sign Out", testutil.Text(doc, "button.wallet-toggle"))
	want := "You're logged in with wallet " + address[:5] + "..." + address[len(address)-5:]
	require.Equal(t, want, testutil.Text(doc, ".wallet-banner"))
}

func TestPanelWithoutHTMXRendersFullPage(t *testing.T) {
	env, _ := newEnv(t, openDrop(10, 2))

	resp := env.Get(t, "/nft/bored-ape/drop", false)
	require.Equal(t, http.StatusOK, resp.Status)
	doc := testutil.ParseHTML(t, resp.Body)
	require.Equal(t, "Bored Ape Collection", testutil.Text(doc, "h1.collection-name"))
	phase, _ := doc.Find("#mint-panel").Attr("data-phase")
	require.Equal(t, "ready", phase)
	require.Equal(t, "2 / 10 NFT's claimed", testutil.Text(doc, "#mint-panel .supply"))
}

func TestPanelUnknownPrice(t *testing.T) {
	env, _ := newEnv(t, openDrop(10, 2))
	env.ConnectWallet(t)
	env.Drop.FailPrice(errors.New("rpc down"))

	label, enabled := mintButton(testutil.ParseHTML(t, env.Get(t, "/nft/bored-ape/drop", true).Body))
	require.Equal(t, "Mint NFT (? ETH)", label)
	require.True(t, enabled)
}

func TestMintSuccessRereadsSupplyAndNotifiesOnce(t *testing.T) {
	env, _ := newEnv(t, openDrop(10, 0))
	env.ConnectWallet(t)

	resp := env.Post(t, "/nft/bored-ape/mint", nil, true)
	require.Equal(t, http.StatusOK, resp.Status)
	doc := testutil.ParseHTML(t, resp.Body)

	require.Equal(t, "1 / 10 NFT's claimed", testutil.Text(doc, "#mint-panel .supply"))
	notes := notifications(doc)
	require.Equal(t, 1, notes.Length())
	require.Equal(t, "You Successfully Minted", notes.Text())
	timeout, _ := notes.Attr("data-timeout")
	require.Equal(t, "5000", timeout)
	require.Zero(t, doc.Find("#mint-panel img.loader").Length())

	label, enabled := mintButton(doc)
	require.Equal(t, "Mint NFT (0.01 ETH)", label)
	require.True(t, enabled)
	require.Equal(t, 1, env.Drop.ClaimCalls())
}

func TestMintFailureNotifiesAndReleasesGuard(t *testing.T) {
	env, _ := newEnv(t, openDrop(10, 0))
	env.ConnectWallet(t)
	env.Drop.FailClaims(errors.New("insufficient funds"))

	resp := env.Post(t, "/nft/bored-ape/mint", nil, true)
	require.Equal(t, http.StatusBadGateway, resp.Status)
	doc := testutil.ParseHTML(t, resp.Body)
	notes := notifications(doc)
	require.Equal(t, 1, notes.Length())
	require.Equal(t, "Something Went Wrong", notes.Text())
	require.Equal(t, "0 / 10 NFT's claimed", testutil.Text(doc, "#mint-panel .supply"))
	_, enabled := mintButton(doc)
	require.True(t, enabled)

	env.Drop.FailClaims(nil)
	resp = env.Post(t, "/nft/bored-ape/mint", nil, true)
	require.Equal(t, http.StatusOK, resp.Status)
	require.Equal(t, 2, env.Drop.ClaimCalls())
}

func TestMintSignedOutIsRejected(t *testing.T) {
	env, _ := newEnv(t, openDrop(10, 0))

	resp := env.Post(t, "/nft/bored-ape/mint", nil, true)
	require.Equal(t, http.StatusUnauthorized, resp.Status)
	doc := testutil.ParseHTML(t, resp.Body)
	require.Equal(t, "Sign in to Mint", notifications(doc).Text())
	require.Zero(t, env.Drop.ClaimCalls())
}

func TestMintSoldOutIsRejected(t *testing.T) {
	env, _ := newEnv(t, openDrop(3, 3))
	env.ConnectWallet(t)

	resp := env.Post(t, "/nft/bored-ape/mint", nil, true)
	require.Equal(t, http.StatusConflict, resp.Status)
	label, _ := mintButton(testutil.ParseHTML(t, resp.Body))
	require.Equal(t, "SOLD OUT", label)
	require.Zero(t, env.Drop.ClaimCalls())
}

func TestMintWithoutHTMXRedirectsWithFlash(t *testing.T) {
	env, _ := newEnv(t, openDrop(10, 0))
	env.ConnectWallet(t)

	resp := env.Post(t, "/nft/bored-ape/mint", nil, false)
	require.Equal(t, http.StatusSeeOther, resp.Status)
	require.Equal(t, "/nft/bored-ape", resp.Header.Get("Location"))

	doc := testutil.ParseHTML(t, env.Get(t, "/nft/bored-ape", false).Body)
	require.Equal(t, "You Successfully Minted", testutil.Text(doc, "#toasts .toast-success"))

	doc = testutil.ParseHTML(t, env.Get(t, "/nft/bored-ape", false).Body)
	require.Zero(t, doc.Find("#toasts .toast").Length())
}

func TestMintInFlightIsRejected(t *testing.T) {
	env, _ := newEnv(t, openDrop(10, 0))
	env.ConnectWallet(t)

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	env.Drop.OnClaim(func(ctx context.Context) error {
		once.Do(func() { close(started) })
		select {
		case <-release:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	first := make(chan int, 1)
	go func() {
		req, err := http.NewRequest(http.MethodPost, env.Server.URL+"/nft/bored-ape/mint", nil)
		if err != nil {
			first <- 0
			return
		}
		req.Header.Set("HX-Request", "true")
		resp, err := env.Client.Do(req)
		if err != nil {
			first <- 0
			return
		}
		resp.Body.Close()
		first <- resp.StatusCode
	}()
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("claim never started")
	}

	resp := env.Post(t, "/nft/bored-ape/mint", nil, true)
	require.Equal(t, http.StatusConflict, resp.Status)
	require.Equal(t, "A mint is already in progress", notifications(testutil.ParseHTML(t, resp.Body)).Text())

	label, enabled := mintButton(testutil.ParseHTML(t, env.Get(t, "/nft/bored-ape/drop", true).Body))
	require.Equal(t, "Loading", label)
	require.False(t, enabled)

	close(release)
	require.Equal(t, http.StatusOK, <-first)
	require.Equal(t, 1, env.Drop.ClaimCalls())

	env.Drop.OnClaim(nil)
	label, enabled = mintButton(testutil.ParseHTML(t, env.Get(t, "/nft/bored-ape/drop", true).Body))
	require.Equal(t, "Mint NFT (0.01 ETH)", label)
	require.True(t, enabled)
}

func TestMintRateLimitedPerWallet(t *testing.T) {
	env, _ := newEnv(t, openDrop(10, 0), testutil.WithMintRate(1))
	env.ConnectWallet(t)

	require.Equal(t, http.StatusOK, env.Post(t, "/nft/bored-ape/mint", nil, true).Status)
	resp := env.Post(t, "/nft/bored-ape/mint", nil, true)
	require.Equal(t, http.StatusTooManyRequests, resp.Status)
	require.Equal(t, 1, notifications(testutil.ParseHTML(t, resp.Body)).Length())
	require.Equal(t, 1, env.Drop.ClaimCalls())
}

func TestCSRFProtectsMint(t *testing.T) {
	env, _ := newEnv(t, openDrop(10, 0), testutil.WithCSRF())
	env.ConnectWallet(t)

	req, err := http.NewRequest(http.MethodPost, env.Server.URL+"/nft/bored-ape/mint", strings.NewReader(url.Values{}.Encode()))
	require.NoError(t, err)
	req.Header.Set("HX-Request", "true")
	resp, err := env.Client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Zero(t, env.Drop.ClaimCalls())

	require.Equal(t, http.StatusOK, env.Post(t, "/nft/bored-ape/mint", nil, true).Status)
	require.Equal(t, 1, env.Drop.ClaimCalls())
}
