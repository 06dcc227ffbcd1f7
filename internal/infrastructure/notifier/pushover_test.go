package notifier

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mightyoctopus/worthbrain/internal/domain"
	"github.com/mightyoctopus/worthbrain/pkg/errcodes"
)

func TestPushoverSend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())
		require.Equal(t, "user-key", r.PostForm.Get("user"))
		require.Equal(t, "app-token", r.PostForm.Get("token"))
		require.Equal(t, "Deal Alert!", r.PostForm.Get("message"))
		require.Equal(t, "cashregister", r.PostForm.Get("sound"))

		_, _ = w.Write([]byte(`{"status":1}`))
	}))
	defer srv.Close()

	p := NewPushover("user-key", "app-token").WithEndpoint(srv.URL)

	require.NoError(t, p.Send(context.Background(), "Deal Alert!"))
}

func TestPushoverSendFailureCarriesDeliveryCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	p := NewPushover("user-key", "app-token").WithEndpoint(srv.URL)

	err := p.Send(context.Background(), "Deal Alert!")
	require.Error(t, err)
	require.True(t, domain.HasCode(err, errcodes.DeliveryFailure))
}
