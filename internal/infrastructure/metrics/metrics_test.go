package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ConnOpened()
	m.ConnOpened()
	m.ConnClosed()
	m.Delivered(3)
	m.Delivered(0)
	m.Rejected("send_message", 1001)
	m.Rejected("send_message", 1001)
	m.SlowConsumer()
	m.MessagePublished()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.connectionsActive))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.deliveriesTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.rejectionsTotal.WithLabelValues("send_message", "1001")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.slowConsumers))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.messagesTotal))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ConnOpened()
		m.ConnClosed()
		m.Subscribed()
		m.Unsubscribed(2)
		m.Delivered(1)
		m.Rejected("join_channel", 1008)
		m.SlowConsumer()
		m.MessagePublished()
	})
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.MessagePublished()

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "channel_chat_messages_total 1")
}
