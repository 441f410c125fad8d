package store

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	oceanpost "github.com/driftlabs/oceanpost"
)

func TestGatewayUploadFetchRoundTrip(t *testing.T) {
	blobs := map[string][]byte{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/v0/add":
			file, _, err := r.FormFile("file")
			require.NoError(t, err)
			data, err := io.ReadAll(file)
			require.NoError(t, err)

			cid := fmt.Sprintf("Qm%06d", len(blobs)+1)
			blobs[cid] = data
			fmt.Fprintf(w, `{"Name":"snapshot.json","Hash":%q,"Size":"%d"}`, cid, len(data))

		case r.URL.Path == "/api/v0/cat":
			data, ok := blobs[r.URL.Query().Get("arg")]
			if !ok {
				http.Error(w, "merkledag: not found", http.StatusInternalServerError)
				return
			}
			_, _ = w.Write(data)

		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	g, err := NewGateway(WithAPIURL(srv.URL))
	require.NoError(t, err)
	defer g.Close()

	ctx := context.Background()
	payload := []byte(`{"kind":"bottle","text":"over the sea"}`)

	hash, err := g.Upload(ctx, payload)
	require.NoError(t, err)
	require.False(t, hash.IsZero())

	got, err := g.Fetch(ctx, hash)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestGatewayUploadServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "out of space", http.StatusInternalServerError)
	}))
	defer srv.Close()

	g, err := NewGateway(WithAPIURL(srv.URL))
	require.NoError(t, err)
	defer g.Close()

	_, err = g.Upload(context.Background(), []byte("data"))
	require.ErrorIs(t, err, ErrUploadFailed)
}

func TestGatewayFetchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "merkledag: not found", http.StatusInternalServerError)
	}))
	defer srv.Close()

	g, err := NewGateway(WithAPIURL(srv.URL))
	require.NoError(t, err)
	defer g.Close()

	_, err = g.Fetch(context.Background(), "QmMissing")
	require.ErrorIs(t, err, ErrFetchFailed)
}

func TestGatewayFetchRejectsInvalidHashWithoutRequest(t *testing.T) {
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	}))
	defer srv.Close()

	g, err := NewGateway(WithAPIURL(srv.URL))
	require.NoError(t, err)
	defer g.Close()

	_, err = g.Fetch(context.Background(), oceanpost.ContentHash(""))
	require.ErrorIs(t, err, ErrInvalidHash)

	_, err = g.Fetch(context.Background(), oceanpost.ContentHash("Qm bad"))
	require.ErrorIs(t, err, ErrInvalidHash)

	require.Zero(t, requests)
}

func TestGatewayAuthHeader(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, `{"Hash":"QmAuth"}`)
	}))
	defer srv.Close()

	g, err := NewGateway(WithAPIURL(srv.URL), WithBearerToken("sekret"))
	require.NoError(t, err)
	defer g.Close()

	_, err = g.Upload(context.Background(), []byte("data"))
	require.NoError(t, err)
	require.Equal(t, "Bearer sekret", gotAuth)
}
