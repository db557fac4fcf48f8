package chain

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(Config{RPCURL: server.URL, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func rpcReply(w http.ResponseWriter, result string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":` + result + `}`))
}

func rpcFail(w http.ResponseWriter, code int, message, data string) {
	w.Header().Set("Content-Type", "application/json")
	body, _ := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"error":   map[string]interface{}{"code": code, "message": message, "data": data},
	})
	_, _ = w.Write(body)
}

func TestCallReturnsResult(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req RPCRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.JSONRPC != "2.0" || req.Method != "getblockcount" {
			t.Fatalf("unexpected request %+v", req)
		}
		rpcReply(w, "42")
	})

	count, err := client.GetBlockCount(context.Background())
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if count != 42 {
		t.Fatalf("count = %d, want 42", count)
	}
}

func TestCallSurfacesRPCErrorDetail(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		rpcFail(w, -500, "execution reverted", "property does not exist")
	})

	_, err := client.Call(context.Background(), "invokefunction", nil)
	if err == nil {
		t.Fatalf("expected error")
	}
	rpcErr, ok := err.(*RPCError)
	if !ok {
		t.Fatalf("expected *RPCError, got %T", err)
	}
	if rpcErr.Error() != "execution reverted: property does not exist" {
		t.Fatalf("detail = %q", rpcErr.Error())
	}
}

func TestWaitForApplicationLogRetriesUnknownTx(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			rpcFail(w, -100, "Unknown transaction", "")
			return
		}
		rpcReply(w, `{"txid":"0xabc","executions":[{"vmstate":"HALT","gasconsumed":"100"}]}`)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	log, err := client.WaitForApplicationLog(ctx, "0xabc", 10*time.Millisecond)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if log.TxID != "0xabc" {
		t.Fatalf("txid = %s", log.TxID)
	}
	if atomic.LoadInt32(&calls) < 3 {
		t.Fatalf("expected polling retries, got %d calls", calls)
	}
}

func TestWaitForApplicationLogHonoursDeadline(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		rpcFail(w, -100, "Unknown transaction", "")
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.WaitForApplicationLog(ctx, "0xabc", 10*time.Millisecond)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
}

func TestInvokeFunctionAndWaitRejectsFault(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		rpcReply(w, `{"state":"FAULT","exception":"not the current owner","stack":[]}`)
	})

	_, _, err := client.InvokeFunctionAndWait(context.Background(), "0xc0ffee", "transferOwnership", nil, nil, 10*time.Millisecond, time.Second)
	if err == nil {
		t.Fatalf("expected error for FAULT state")
	}
}

func TestInvokeFunctionAndWaitRequiresTxHash(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		rpcReply(w, `{"state":"HALT","stack":[]}`)
	})

	_, _, err := client.InvokeFunctionAndWait(context.Background(), "0xc0ffee", "registerProperty", nil, nil, 10*time.Millisecond, time.Second)
	if err == nil {
		t.Fatalf("expected error when node returns no tx hash")
	}
}

func TestIsNotFoundError(t *testing.T) {
	if !isNotFoundError(&RPCError{Code: -100, Message: "whatever"}) {
		t.Fatalf("code -100 must be not-found")
	}
	if !isNotFoundError(&RPCError{Code: -1, Message: "Unknown transaction"}) {
		t.Fatalf("unknown transaction message must be not-found")
	}
	if isNotFoundError(&RPCError{Code: -1, Message: "boom"}) {
		t.Fatalf("other errors are not not-found")
	}
}
