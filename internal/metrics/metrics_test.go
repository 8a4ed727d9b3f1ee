package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandlerExposesCounters(t *testing.T) {
	IncReservation("reserved")
	SetQueueGauge("http://a", 3)
	ObserveProxy("/generate", 200, 0)

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), "dispatch_reservations_total")
	assert.Contains(t, w.Body.String(), "dispatch_backend_queue_size")
}
