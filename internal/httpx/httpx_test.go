package httpx_test

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"quoteticker/internal/httpx"
)

func newResponse(code int, contentType, body string) *http.Response {
	h := http.Header{}
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	return &http.Response{
		StatusCode: code,
		Header:     h,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestGet_DisablesCaching(t *testing.T) {
	t.Parallel()

	// Arrange: create a mock controller
	ctrl := gomock.NewController(t)

	// Arrange: create a mock doer
	doer := NewMockDoer(ctrl)

	// Assert: stub the Do method and check request headers
	doer.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, http.MethodGet, req.Method)
			require.Equal(t, "no-cache, no-store", req.Header.Get("Cache-Control"))
			require.Equal(t, "no-cache", req.Header.Get("Pragma"))
			require.Equal(t, httpx.DefaultUserAgent, req.Header.Get("User-Agent"))
			require.Equal(t, "bar", req.Header.Get("X-Foo"))
			return newResponse(http.StatusOK, "text/html; charset=utf-8", "<html></html>"), nil
		}).
		Times(1)

	// Arrange: create a client around the mock
	client := httpx.New(time.Second)
	client.HTTP = doer
	client.Headers = map[string]string{"X-Foo": "bar"}

	// Act: fetch the page
	body, err := client.Get(t.Context(), "https://example.com/quote/CART/")

	// Assert: the body is returned unchanged
	require.NoError(t, err)
	require.Equal(t, "<html></html>", body)
}

func TestGet_CustomUserAgentIsKept(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	doer := NewMockDoer(ctrl)
	doer.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, "ticker-test/1.0", req.Header.Get("User-Agent"))
			return newResponse(http.StatusOK, "", "ok"), nil
		}).
		Times(1)

	client := &httpx.Client{HTTP: doer, UserAgent: "ticker-test/1.0"}
	_, err := client.Get(t.Context(), "https://example.com/")
	require.NoError(t, err)
}

func TestGet_UnexpectedStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "try later", http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	client := httpx.New(time.Second)
	body, err := client.Get(t.Context(), srv.URL)
	require.Empty(t, body)

	var se *httpx.StatusError
	require.ErrorAs(t, err, &se)
	require.Equal(t, http.StatusServiceUnavailable, se.Code)
}

func TestGet_NonOKSuccessIsAccepted(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	doer := NewMockDoer(ctrl)
	doer.EXPECT().Do(gomock.Any()).Return(newResponse(http.StatusNonAuthoritativeInfo, "", "cached elsewhere"), nil)

	client := &httpx.Client{HTTP: doer}
	body, err := client.Get(t.Context(), "https://example.com/")
	require.NoError(t, err)
	require.Equal(t, "cached elsewhere", body)
}

func TestGet_TransportError(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	doer := NewMockDoer(ctrl)
	boom := errors.New("connection refused")
	doer.EXPECT().Do(gomock.Any()).Return(nil, boom).Times(1)

	client := &httpx.Client{HTTP: doer}
	_, err := client.Get(t.Context(), "https://example.com/")

	var te *httpx.TransportError
	require.ErrorAs(t, err, &te)
	require.ErrorIs(t, err, boom)
	require.False(t, httpx.IsTimeout(err))
}

func TestGet_InvalidURL(t *testing.T) {
	t.Parallel()

	client := httpx.New(time.Second)
	_, err := client.Get(t.Context(), "://nope")

	var te *httpx.TransportError
	require.ErrorAs(t, err, &te)
}

func TestGet_Timeout(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	client := httpx.New(50 * time.Millisecond)
	_, err := client.Get(t.Context(), srv.URL)

	var te *httpx.TransportError
	require.ErrorAs(t, err, &te)
	require.True(t, httpx.IsTimeout(err))
}

func TestGet_InvalidUTF8(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	doer := NewMockDoer(ctrl)
	doer.EXPECT().Do(gomock.Any()).Return(newResponse(http.StatusOK, "text/html", "price \xff\xfe"), nil)

	client := &httpx.Client{HTTP: doer}
	_, err := client.Get(t.Context(), "https://example.com/")

	var de *httpx.DecodingError
	require.ErrorAs(t, err, &de)
	require.Equal(t, "utf-8", de.Charset)
}

func TestGet_ConvertsDeclaredCharset(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	doer := NewMockDoer(ctrl)
	doer.EXPECT().Do(gomock.Any()).Return(newResponse(http.StatusOK, "text/html; charset=ISO-8859-1", "caf\xe9"), nil)

	client := &httpx.Client{HTTP: doer}
	body, err := client.Get(t.Context(), "https://example.com/")
	require.NoError(t, err)
	require.Equal(t, "café", body)
}

func TestGet_UnknownCharset(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	doer := NewMockDoer(ctrl)
	doer.EXPECT().Do(gomock.Any()).Return(newResponse(http.StatusOK, "text/html; charset=x-klingon", "hello"), nil)

	client := &httpx.Client{HTTP: doer}
	_, err := client.Get(t.Context(), "https://example.com/")

	var de *httpx.DecodingError
	require.ErrorAs(t, err, &de)
	require.Equal(t, "x-klingon", de.Charset)
}

func TestGet_BodyAtLimitIsRead(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	doer := NewMockDoer(ctrl)
	page := strings.Repeat("a", httpx.MaxBodySize)
	doer.EXPECT().Do(gomock.Any()).Return(newResponse(http.StatusOK, "text/html", page), nil).Times(1)

	client := &httpx.Client{HTTP: doer}
	body, err := client.Get(t.Context(), "https://example.com/")
	require.NoError(t, err)
	require.Len(t, body, httpx.MaxBodySize)
}

func TestGet_OversizedBodyIsRejected(t *testing.T) {
	t.Parallel()

	// Arrange: a page one byte over the cap
	ctrl := gomock.NewController(t)
	doer := NewMockDoer(ctrl)
	page := strings.Repeat("a", httpx.MaxBodySize+1)
	doer.EXPECT().Do(gomock.Any()).Return(newResponse(http.StatusOK, "text/html", page), nil).Times(1)

	// Act
	client := &httpx.Client{HTTP: doer}
	body, err := client.Get(t.Context(), "https://example.com/")

	// Assert: no partial document reaches the caller
	var te *httpx.TransportError
	require.ErrorAs(t, err, &te)
	require.ErrorIs(t, err, httpx.ErrBodyTooLarge)
	require.Empty(t, body)
}
