//nolint:noctx // Test file uses http.NewRequest for simplicity
package webhook

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/aimd54/mystery-box/internal/service/payments"
	"github.com/aimd54/mystery-box/internal/stripe"
	"github.com/aimd54/mystery-box/pkg/logger"
)

type stubPayments struct {
	result    string
	err       error
	payload   []byte
	signature string
}

func (s *stubPayments) HandleWebhook(_ context.Context, payload []byte, signature string) (string, error) {
	s.payload = payload
	s.signature = signature
	return s.result, s.err
}

func serve(svc *stubPayments, body []byte) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/webhook", NewHandler(svc, logger.NewNop()).HandleStripe)

	req, _ := http.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	req.Header.Set(SignatureHeader, "t=1,v1=abc")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandleStripe(t *testing.T) {
	tests := []struct {
		name       string
		result     string
		err        error
		wantStatus int
	}{
		{name: "processed", result: payments.ResultProcessed, wantStatus: http.StatusOK},
		{name: "duplicate is acknowledged", result: payments.ResultDuplicate, wantStatus: http.StatusOK},
		{name: "ignored event type", result: payments.ResultIgnored, wantStatus: http.StatusOK},
		{
			name:       "bad signature",
			result:     payments.ResultInvalid,
			err:        fmt.Errorf("%w: no valid signature", stripe.ErrInvalidSignature),
			wantStatus: http.StatusBadRequest,
		},
		{name: "processing failure", result: payments.ResultError, err: errors.New("db down"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubPayments{result: tt.result, err: tt.err}

			w := serve(svc, []byte(`{"id":"evt_1"}`))

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, `{"id":"evt_1"}`, string(svc.payload), "raw body must reach verification untouched")
			assert.Equal(t, "t=1,v1=abc", svc.signature)
		})
	}
}

func TestHandleStripe_OversizedBody(t *testing.T) {
	svc := &stubPayments{result: payments.ResultProcessed}

	w := serve(svc, []byte(strings.Repeat("x", maxBodyBytes+1)))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, svc.payload)
}
