package answerd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/askroom/internal/proto"
)

func doJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	return resp
}

func TestServerRoundTrip(t *testing.T) {
	w, _ := newTestWorker(t, EchoAnswerer{})
	router := NewRouter(w, w.log)

	resp := doJSON(t, router, proto.BackendPathDeliver, proto.DeliverRequest{Question: "hi", Room: "a", ID: "1"})
	require.Equal(t, http.StatusOK, resp.Code)

	var ack proto.Ack
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &ack))
	assert.True(t, ack.OK)

	resp = doJSON(t, router, proto.BackendPathAnswer, proto.AnswerRequest{Room: "a"})
	require.Equal(t, http.StatusOK, resp.Code)
	var answer proto.AnswerResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &answer))
	assert.Equal(t, "", answer.Answer)

	require.NoError(t, w.Tick(context.Background()))

	resp = doJSON(t, router, proto.BackendPathAnswer, proto.AnswerRequest{Room: "a"})
	require.Equal(t, http.StatusOK, resp.Code)
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &answer))
	assert.Equal(t, "echo: hi", answer.Answer)

	resp = doJSON(t, router, proto.BackendPathDiscard, proto.DiscardRequest{Room: "a", ID: "1"})
	require.Equal(t, http.StatusOK, resp.Code)
	require.NoError(t, w.Tick(context.Background()))
	assert.Empty(t, w.History("a"))
}

func TestServerRejectsInvalidBodies(t *testing.T) {
	w, _ := newTestWorker(t, EchoAnswerer{})
	router := NewRouter(w, w.log)

	cases := []struct {
		path string
		body any
	}{
		{proto.BackendPathDeliver, map[string]string{"room": "a"}},
		{proto.BackendPathAnswer, map[string]string{}},
		{proto.BackendPathDiscard, map[string]string{"id": "1"}},
	}
	for _, tc := range cases {
		resp := doJSON(t, router, tc.path, tc.body)
		assert.Equal(t, http.StatusBadRequest, resp.Code, tc.path)

		var body proto.ErrorBody
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
		assert.Equal(t, "invalid request body", body.Error)
	}
}

func TestServerHealth(t *testing.T) {
	w, _ := newTestWorker(t, EchoAnswerer{})
	router := NewRouter(w, w.log)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "ok", resp.Body.String())
}
