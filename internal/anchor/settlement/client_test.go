package settlement

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trustplane/internal/anchor/models"
	id "trustplane/pkg/domain"
	"trustplane/pkg/platform/circuit"
	"trustplane/pkg/platform/sentinel"
)

func payload() models.AnchorPayload {
	return models.AnchorPayload{
		Domain: id.DomainTrustDeltas.String(),
		Epoch:  1,
		Root:   "deadbeef",
	}
}

func TestClient_Publish(t *testing.T) {
	t.Run("returns the settlement reference", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/anchors", r.URL.Path)

			var got models.AnchorPayload
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			assert.Equal(t, payload(), got)

			_ = json.NewEncoder(w).Encode(map[string]string{"ref": "ref-42"})
		}))
		defer srv.Close()

		client, err := New(srv.URL)
		require.NoError(t, err)

		ref, err := client.Publish(context.Background(), payload())
		require.NoError(t, err)
		assert.Equal(t, "ref-42", ref)
	})

	t.Run("non-2xx responses fail", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		client, err := New(srv.URL)
		require.NoError(t, err)

		_, err = client.Publish(context.Background(), payload())
		assert.ErrorContains(t, err, "503")
	})

	t.Run("an empty reference fails", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]string{})
		}))
		defer srv.Close()

		client, err := New(srv.URL)
		require.NoError(t, err)

		_, err = client.Publish(context.Background(), payload())
		assert.ErrorContains(t, err, "no reference")
	})
}

func TestClient_Confirm(t *testing.T) {
	t.Run("returns the receipt", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/anchors/trust-deltas/7", r.URL.Path)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"ref": "ref-7", "domain": "trust-deltas", "epoch": 7, "root": "deadbeef",
			})
		}))
		defer srv.Close()

		client, err := New(srv.URL)
		require.NoError(t, err)

		receipt, err := client.Confirm(context.Background(), "trust-deltas", 7)
		require.NoError(t, err)
		assert.Equal(t, "ref-7", receipt.Ref)
		assert.Equal(t, "deadbeef", receipt.Root)
	})

	t.Run("a missing anchor is not an outage", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}))
		defer srv.Close()

		client, err := New(srv.URL)
		require.NoError(t, err)

		_, err = client.Confirm(context.Background(), "trust-deltas", 7)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})
}

func TestClient_CircuitBreaker(t *testing.T) {
	ctx := context.Background()

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer failing.Close()

	breaker := circuit.New("settlement", circuit.WithFailureThreshold(2), circuit.WithSuccessThreshold(1))
	client, err := New(failing.URL, WithBreaker(breaker))
	require.NoError(t, err)

	// Repeated settlement failures open the circuit.
	_, err = client.Publish(ctx, payload())
	require.Error(t, err)
	_, err = client.Publish(ctx, payload())
	require.Error(t, err)
	assert.True(t, breaker.IsOpen())

	// Publishing now sheds load instead of hammering the settlement layer.
	_, err = client.Publish(ctx, payload())
	assert.ErrorIs(t, err, ErrCircuitOpen)

	// Confirm keeps probing; a healthy answer closes the circuit again.
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer healthy.Close()
	client.baseURL = healthy.URL

	_, err = client.Confirm(ctx, "trust-deltas", 1)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	assert.False(t, breaker.IsOpen())
}
