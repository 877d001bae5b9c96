package metrics

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPipelineRegisters(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPipeline(reg)

	p.FramesAccepted.WithLabelValues("mic").Add(3)
	p.WindowFrames.WithLabelValues("mic").Set(2)
	assert.Equal(t, 3.0, testutil.ToFloat64(p.FramesAccepted.WithLabelValues("mic")))

	n, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Panics(t, func() { NewPipeline(reg) }, "double registration")
	assert.NotPanics(t, func() { NewPipeline(nil) })
}

func TestServerServesAndStops(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	reg := prometheus.NewRegistry()
	NewPipeline(reg).SegmentsClosed.WithLabelValues("mic").Inc()

	log, _ := test.NewNullLogger()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- NewServer(addr, reg, log).Run(ctx) }()

	var body []byte
	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/metrics")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		body, _ = io.ReadAll(resp.Body)
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)
	assert.Contains(t, string(body), `frameacc_segmenter_segments_closed_total{source="mic"} 1`)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(6 * time.Second):
		t.Fatal("server did not stop")
	}
}
