package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// httpCaller is the thinnest possible implementation of
// internal/client.Caller: a JSON-RPC 2.0 POST over net/http. It exists
// because Caller is explicitly the abstraction boundary for the node's
// wire transport (see internal/client/rpc_client.go's doc comment), and no
// library in the retrieval pack targets this project's own (unreleased)
// node RPC surface — every pack HTTP client example is either a generic
// router (httprouter) or a different protocol's SDK (aws-sdk-go, redis).
type httpCaller struct {
	endpoint string
	client   *http.Client
}

func newHTTPCaller(endpoint string) *httpCaller {
	return &httpCaller{endpoint: endpoint, client: http.DefaultClient}
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
	ID      int           `json:"id"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (c *httpCaller) CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", Method: method, Params: args, ID: 1})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return err
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("rpc error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}
	if result == nil || len(rpcResp.Result) == 0 {
		return nil
	}
	return json.Unmarshal(rpcResp.Result, result)
}
