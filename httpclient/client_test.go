package httpclient_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/jrsteele09/go-auth-e2e/httpclient"
	"github.com/stretchr/testify/require"
)

func TestClient_PostForm(t *testing.T) {
	var gotContentType, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := httpclient.New(5 * time.Second)
	resp, err := c.PostForm(context.Background(), srv.URL, url.Values{
		"grant_type": {"authorization_code"},
		"code":       {"abc"},
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "application/x-www-form-urlencoded", gotContentType)
	require.Equal(t, "code=abc&grant_type=authorization_code", gotBody)
}

func TestClient_RawBody(t *testing.T) {
	var gotContentType, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
	}))
	defer srv.Close()

	c := httpclient.New(5 * time.Second)
	resp, err := c.Do(context.Background(), httpclient.Request{
		Method:  http.MethodPost,
		URL:     srv.URL,
		RawBody: `{"raw":"payload"}`,
		Header:  map[string]string{"Content-Type": "application/json"},
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, `{"raw":"payload"}`, gotBody, "raw body must arrive verbatim")
	require.Equal(t, "application/json", gotContentType, "raw body gets no implicit form content type")
}

func TestClient_ErrorStatusIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid_session"}`))
	}))
	defer srv.Close()

	c := httpclient.New(5 * time.Second)
	resp, err := c.Post(context.Background(), srv.URL, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.JSONEq(t, `{"error":"invalid_session"}`, resp.Body)
}

func TestClient_TransportFailure(t *testing.T) {
	c := httpclient.New(time.Second)
	_, err := c.Get(context.Background(), "http://127.0.0.1:1/health", nil)
	require.Error(t, err)
}

func TestClient_HeaderMerge(t *testing.T) {
	var gotCookie string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCookie = r.Header.Get("Cookie")
	}))
	defer srv.Close()

	c := httpclient.New(5 * time.Second)
	_, err := c.Get(context.Background(), srv.URL, map[string]string{"Cookie": "session_token=tok123"})
	require.NoError(t, err)
	require.Equal(t, "session_token=tok123", gotCookie)
}

func TestClient_RedirectSuppression(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/authorize", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/cb?code=ABC&state=S1", http.StatusFound)
	})
	followed := false
	mux.HandleFunc("/cb", func(w http.ResponseWriter, r *http.Request) {
		followed = true
		_, _ = w.Write([]byte("landed"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := httpclient.New(5 * time.Second)

	t.Run("suppressed", func(t *testing.T) {
		followed = false
		resp, err := c.Do(context.Background(), httpclient.Request{
			Method:            http.MethodGet,
			URL:               srv.URL + "/authorize",
			NoFollowRedirects: true,
		})
		require.NoError(t, err)
		require.Equal(t, http.StatusFound, resp.StatusCode)
		require.Equal(t, "/cb?code=ABC&state=S1", resp.Location())
		require.False(t, followed, "client must not issue a second request")
	})

	t.Run("followed by default helper", func(t *testing.T) {
		followed = false
		resp, err := c.Get(context.Background(), srv.URL+"/authorize", nil)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, "landed", resp.Body)
		require.True(t, followed)
	})

	t.Run("followed by zero-value request", func(t *testing.T) {
		followed = false
		resp, err := c.Do(context.Background(), httpclient.Request{
			Method: http.MethodGet,
			URL:    srv.URL + "/authorize",
		})
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.True(t, followed, "a bare request must follow redirects")
	})
}
