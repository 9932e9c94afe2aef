package httpapi

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/shell_layer/internal/app/domain/shell"
	"github.com/R3E-Network/shell_layer/internal/app/host/memory"
	"github.com/R3E-Network/shell_layer/internal/app/services/deployer"
	"github.com/R3E-Network/shell_layer/pkg/logger"
	"github.com/R3E-Network/shell_layer/pkg/testutil"
)

func newTestServer(t *testing.T) (*httptest.Server, *memory.Chain) {
	t.Helper()
	chain := memory.New()
	dep := deployer.New(chain, logger.Discard())
	srv := httptest.NewServer(NewHandler(dep, chain, logger.Discard()))
	t.Cleanup(srv.Close)
	return srv, chain
}

func postJSON(t *testing.T, url string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func TestDeployAndInspect(t *testing.T) {
	srv, chain := newTestServer(t)
	controller := testutil.Address(0x0c)

	resp, body := postJSON(t, srv.URL+"/shells", map[string]string{
		"controller": controller.String(),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	addr, err := shell.ParseAddress(body["address"].(string))
	require.NoError(t, err)

	_, ok := chain.Shell(addr)
	require.True(t, ok)

	getResp, err := http.Get(srv.URL + "/shells/" + addr.String())
	require.NoError(t, err)
	defer getResp.Body.Close()
	require.Equal(t, http.StatusOK, getResp.StatusCode)

	var info map[string]interface{}
	require.NoError(t, json.NewDecoder(getResp.Body).Decode(&info))
	require.Equal(t, controller.String(), info["controller"])
	require.Equal(t, float64(0), info["balance"])
}

func TestDeterministicDeployAndPredict(t *testing.T) {
	srv, _ := newTestServer(t)
	controller := testutil.Address(0x0c)
	salt := testutil.Salt(0x5a)

	predictURL := fmt.Sprintf("%s/shells/predict?controller=%s&salt=%s", srv.URL, controller, salt)
	resp, err := http.Get(predictURL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var predicted map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&predicted))

	depResp, body := postJSON(t, srv.URL+"/shells/deterministic", map[string]string{
		"controller": controller.String(),
		"salt":       salt.String(),
	})
	require.Equal(t, http.StatusCreated, depResp.StatusCode)
	require.Equal(t, predicted["address"], body["address"])

	// Salt reuse maps to 409.
	conflictResp, _ := postJSON(t, srv.URL+"/shells/deterministic", map[string]string{
		"controller": controller.String(),
		"salt":       salt.String(),
	})
	require.Equal(t, http.StatusConflict, conflictResp.StatusCode)
}

func TestInvokeForwardOverHTTP(t *testing.T) {
	srv, chain := newTestServer(t)
	controller := testutil.Address(0x0c)
	delegate := testutil.Address(0xdd)
	chain.Credit(controller, 10_000)
	require.NoError(t, chain.RegisterBehavior(delegate, testutil.Echo()))

	_, deployBody := postJSON(t, srv.URL+"/shells", map[string]string{
		"controller": controller.String(),
	})
	addr := deployBody["address"].(string)

	input := shell.Encode(delegate, []byte("ping"))
	resp, body := postJSON(t, srv.URL+"/shells/"+addr+"/invoke", map[string]interface{}{
		"caller": controller.String(),
		"value":  int64(25),
		"input":  "0x" + hex.EncodeToString(input),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "forward", body["outcome"])
	require.Equal(t, true, body["success"])
	require.Equal(t, "0x"+hex.EncodeToString([]byte("ping")), body["return"])

	parsed, err := shell.ParseAddress(addr)
	require.NoError(t, err)
	require.Equal(t, int64(25), chain.BalanceOf(parsed))
}

func TestInvokeFailureSurfacesRawPayload(t *testing.T) {
	srv, chain := newTestServer(t)
	controller := testutil.Address(0x0c)
	delegate := testutil.Address(0xdd)
	failure := []byte{0xde, 0xad}
	require.NoError(t, chain.RegisterBehavior(delegate, testutil.Failing(failure)))

	_, deployBody := postJSON(t, srv.URL+"/shells", map[string]string{
		"controller": controller.String(),
	})
	addr := deployBody["address"].(string)

	input := shell.Encode(delegate, nil)
	resp, body := postJSON(t, srv.URL+"/shells/"+addr+"/invoke", map[string]interface{}{
		"caller": controller.String(),
		"value":  int64(0),
		"input":  "0x" + hex.EncodeToString(input),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "forward_failed", body["outcome"])
	require.Equal(t, false, body["success"])
	require.Equal(t, "0x"+hex.EncodeToString(failure), body["failure"])
}

func TestInvokeRejectsBadRequests(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, _ := postJSON(t, srv.URL+"/shells", map[string]string{"controller": "nonsense"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	getResp, err := http.Get(srv.URL + "/shells/" + testutil.Address(0x01).String())
	require.NoError(t, err)
	defer getResp.Body.Close()
	require.Equal(t, http.StatusNotFound, getResp.StatusCode)
}
