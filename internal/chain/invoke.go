package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// DefaultTxWaitTimeout is the default bounded wait for transaction execution.
const DefaultTxWaitTimeout = 2 * time.Minute

// DefaultPollInterval is the default interval for polling transaction status.
const DefaultPollInterval = 2 * time.Second

// InvokeFunction invokes a contract function read-only.
func (c *Client) InvokeFunction(ctx context.Context, scriptHash, method string, params []ContractParam, signers []Signer) (*InvokeResult, error) {
	if params == nil {
		params = []ContractParam{}
	}
	args := []interface{}{scriptHash, method, params}
	if len(signers) > 0 {
		args = append(args, signers)
	}

	result, err := c.Call(ctx, "invokefunction", args)
	if err != nil {
		return nil, err
	}

	var invokeResult InvokeResult
	if err := json.Unmarshal(result, &invokeResult); err != nil {
		return nil, fmt.Errorf("unmarshal invoke result: %w", err)
	}
	return &invokeResult, nil
}

// WaitForApplicationLog polls for a transaction application log until it is
// available or the context is done. A missing transaction is transient and
// retried until the deadline expires.
func (c *Client) WaitForApplicationLog(ctx context.Context, txHash string, pollInterval time.Duration) (*ApplicationLog, error) {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			log, err := c.GetApplicationLog(ctx, txHash)
			if err != nil {
				if isNotFoundError(err) {
					continue
				}
				return nil, err
			}
			return log, nil
		}
	}
}

// InvokeFunctionAndWait submits a contract invocation signed by the node's
// open wallet and waits for its execution record. The node assigns the
// transaction hash; the returned application log reflects the confirmed
// on-ledger execution. Callers must not retry a call that returns an error:
// the transaction may still land.
func (c *Client) InvokeFunctionAndWait(ctx context.Context, scriptHash, method string, params []ContractParam, signers []Signer, pollInterval, waitTimeout time.Duration) (*InvokeResult, *ApplicationLog, error) {
	invokeResult, err := c.InvokeFunction(ctx, scriptHash, method, params, signers)
	if err != nil {
		return nil, nil, fmt.Errorf("invoke %s: %w", method, err)
	}

	if invokeResult.State != "HALT" {
		return invokeResult, nil, fmt.Errorf("%s failed: %s", method, invokeResult.Exception)
	}
	if invokeResult.Tx == "" {
		return invokeResult, nil, fmt.Errorf("%s: node did not return a transaction hash", method)
	}

	if waitTimeout <= 0 {
		waitTimeout = DefaultTxWaitTimeout
	}
	wctx, cancel := context.WithTimeout(ctx, waitTimeout)
	defer cancel()

	appLog, err := c.WaitForApplicationLog(wctx, invokeResult.Tx, pollInterval)
	if err != nil {
		return invokeResult, nil, fmt.Errorf("wait for %s execution: %w", method, err)
	}
	return invokeResult, appLog, nil
}
