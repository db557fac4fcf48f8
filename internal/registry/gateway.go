// Package registry mediates between the HTTP surface and the property
// registry contract on the ownership ledger. It translates typed calls into
// contract invocations and normalises results and failures; ledger business
// rules (who may transfer, which ids exist) stay on the ledger and are only
// relayed here.
package registry

import (
	"context"
	stderrors "errors"
	"math/big"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/propchain/registry_gateway/internal/chain"
	"github.com/propchain/registry_gateway/internal/domain/property"
	"github.com/propchain/registry_gateway/internal/errors"
	"github.com/propchain/registry_gateway/internal/metrics"
)

// Contract methods and events of the property registry.
const (
	methodRegisterProperty  = "registerProperty"
	methodTransferOwnership = "transferOwnership"
	methodGetProperty       = "getProperty"
	methodGetAllProperties  = "getAllProperties"

	eventPropertyRegistered = "PropertyRegistered"

	signerScope = "CalledByEntry"
)

// Config holds gateway configuration.
type Config struct {
	// ContractHash is the deployed property registry contract.
	ContractHash string
	// OperationalAccount signs every submission. The ledger sees this single
	// operational identity for all users; human identity is a gateway-level
	// concept layered on top and is not reflected on-ledger.
	OperationalAccount string
	// PollInterval and WaitTimeout bound the confirmation wait for mutating
	// calls. A call that neither confirms nor rejects within WaitTimeout is
	// reported as failed rather than left hanging.
	PollInterval time.Duration
	WaitTimeout  time.Duration
}

// Gateway is the typed client for the property registry contract. It holds no
// mutable state; each call is independent.
type Gateway struct {
	client *chain.Client
	cfg    Config
	log    zerolog.Logger
}

// New creates a gateway over the given ledger client.
func New(client *chain.Client, cfg Config, log zerolog.Logger) (*Gateway, error) {
	if cfg.ContractHash == "" {
		return nil, stderrors.New("registry: contract hash required")
	}
	if cfg.OperationalAccount == "" {
		return nil, stderrors.New("registry: operational account required")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = chain.DefaultPollInterval
	}
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = chain.DefaultTxWaitTimeout
	}
	return &Gateway{client: client, cfg: cfg, log: log}, nil
}

func (g *Gateway) signers() []chain.Signer {
	return []chain.Signer{{Account: g.cfg.OperationalAccount, Scopes: signerScope}}
}

// RegisterProperty submits a registration, waits for confirmation and returns
// a receipt carrying the ledger-assigned property id as a decimal string.
func (g *Gateway) RegisterProperty(ctx context.Context, propertyAddress, ownerName string) (property.Receipt, error) {
	if strings.TrimSpace(propertyAddress) == "" {
		return property.Receipt{}, errors.Validation("propertyAddress is required")
	}
	if strings.TrimSpace(ownerName) == "" {
		return property.Receipt{}, errors.Validation("ownerName is required")
	}

	params := []chain.ContractParam{
		chain.StringParam(propertyAddress),
		chain.StringParam(ownerName),
	}

	start := time.Now()
	result, appLog, err := g.client.InvokeFunctionAndWait(ctx, g.cfg.ContractHash, methodRegisterProperty, params, g.signers(), g.cfg.PollInterval, g.cfg.WaitTimeout)
	metrics.RecordLedgerCall(methodRegisterProperty, time.Since(start), err)
	if err != nil {
		return property.Receipt{}, g.ledgerError(methodRegisterProperty, err)
	}

	exec, err := confirmedExecution(appLog)
	if err != nil {
		return property.Receipt{}, err
	}

	id, err := g.registeredID(exec)
	if err != nil {
		return property.Receipt{}, err
	}

	g.log.Info().
		Str("tx", result.Tx).
		Str("property_id", id.String()).
		Msg("property registered")

	return property.Receipt{
		TxHash:      result.Tx,
		VMState:     exec.VMState,
		GasConsumed: exec.GasConsumed,
		PropertyID:  id.String(),
	}, nil
}

// TransferOwnership submits an ownership transfer and waits for confirmation.
// The ledger enforces existence and current-ownership rules; its rejection
// reason is surfaced verbatim.
func (g *Gateway) TransferOwnership(ctx context.Context, propertyID, newOwner, newOwnerName string) (property.Receipt, error) {
	id, err := parseID(propertyID)
	if err != nil {
		return property.Receipt{}, err
	}
	if strings.TrimSpace(newOwner) == "" {
		return property.Receipt{}, errors.Validation("newOwner is required")
	}
	if strings.TrimSpace(newOwnerName) == "" {
		return property.Receipt{}, errors.Validation("newOwnerName is required")
	}

	params := []chain.ContractParam{
		chain.IntegerParam(id.String()),
		chain.Hash160Param(newOwner),
		chain.StringParam(newOwnerName),
	}

	start := time.Now()
	result, appLog, err := g.client.InvokeFunctionAndWait(ctx, g.cfg.ContractHash, methodTransferOwnership, params, g.signers(), g.cfg.PollInterval, g.cfg.WaitTimeout)
	metrics.RecordLedgerCall(methodTransferOwnership, time.Since(start), err)
	if err != nil {
		return property.Receipt{}, g.ledgerError(methodTransferOwnership, err)
	}

	exec, err := confirmedExecution(appLog)
	if err != nil {
		return property.Receipt{}, err
	}

	g.log.Info().
		Str("tx", result.Tx).
		Str("property_id", id.String()).
		Msg("property transferred")

	return property.Receipt{
		TxHash:      result.Tx,
		VMState:     exec.VMState,
		GasConsumed: exec.GasConsumed,
		PropertyID:  id.String(),
	}, nil
}

// GetProperty reads a single property. The contract has no existence flag; a
// zero-valued id in the returned struct is the not-found sentinel and is
// checked explicitly.
func (g *Gateway) GetProperty(ctx context.Context, propertyID string) (property.Property, error) {
	id, err := parseID(propertyID)
	if err != nil {
		return property.Property{}, err
	}

	params := []chain.ContractParam{chain.IntegerParam(id.String())}
	start := time.Now()
	result, err := g.client.InvokeFunction(ctx, g.cfg.ContractHash, methodGetProperty, params, nil)
	metrics.RecordLedgerCall(methodGetProperty, time.Since(start), err)
	if err != nil {
		return property.Property{}, g.ledgerError(methodGetProperty, err)
	}
	if result.State != "HALT" {
		return property.Property{}, errors.LedgerCall(methodGetProperty+" reverted", nil).WithDetails("exception", result.Exception)
	}
	if len(result.Stack) == 0 {
		return property.Property{}, errors.LedgerCall(methodGetProperty+" returned no result", nil)
	}

	prop, propID, err := parseProperty(result.Stack[0])
	if err != nil {
		return property.Property{}, errors.LedgerCall("parse property record", err)
	}
	if propID.Sign() == 0 {
		return property.Property{}, errors.NotFound("property not found").WithDetails("propertyId", id.String())
	}
	return prop, nil
}

// GetAllProperties reads every registered property in ledger order. Zero-id
// sentinel entries are filtered out rather than surfaced as phantom records.
func (g *Gateway) GetAllProperties(ctx context.Context) ([]property.Property, error) {
	start := time.Now()
	result, err := g.client.InvokeFunction(ctx, g.cfg.ContractHash, methodGetAllProperties, nil, nil)
	metrics.RecordLedgerCall(methodGetAllProperties, time.Since(start), err)
	if err != nil {
		return nil, g.ledgerError(methodGetAllProperties, err)
	}
	if result.State != "HALT" {
		return nil, errors.LedgerCall(methodGetAllProperties+" reverted", nil).WithDetails("exception", result.Exception)
	}
	if len(result.Stack) == 0 {
		return []property.Property{}, nil
	}

	items, err := chain.ParseArray(result.Stack[0])
	if err != nil {
		return nil, errors.LedgerCall("parse property list", err)
	}

	properties := make([]property.Property, 0, len(items))
	for _, item := range items {
		prop, propID, err := parseProperty(item)
		if err != nil {
			return nil, errors.LedgerCall("parse property record", err)
		}
		if propID.Sign() == 0 {
			continue
		}
		properties = append(properties, prop)
	}
	return properties, nil
}

// registeredID extracts the assigned id from the PropertyRegistered event.
func (g *Gateway) registeredID(exec *chain.Execution) (*big.Int, error) {
	for _, note := range exec.Notifications {
		if note.EventName != eventPropertyRegistered {
			continue
		}
		state, err := chain.ParseArray(note.State)
		if err != nil || len(state) == 0 {
			return nil, errors.LedgerCall("parse registration event", err)
		}
		id, err := chain.ParseInteger(state[0])
		if err != nil {
			return nil, errors.LedgerCall("parse registration event id", err)
		}
		return id, nil
	}
	return nil, errors.LedgerCall("registration confirmed without a "+eventPropertyRegistered+" event", nil)
}

// confirmedExecution returns the first execution of a confirmed transaction,
// failing when the on-ledger execution faulted.
func confirmedExecution(appLog *chain.ApplicationLog) (*chain.Execution, error) {
	if appLog == nil || len(appLog.Executions) == 0 {
		return nil, errors.LedgerCall("transaction confirmed without an execution record", nil)
	}
	exec := &appLog.Executions[0]
	if exec.VMState != "HALT" {
		return nil, errors.LedgerCall("transaction execution faulted", nil).WithDetails("exception", exec.Exception)
	}
	return exec, nil
}

// ledgerError maps a failed ledger call to the typed error the router reports.
// Deadline expiry means the bounded wait elapsed without confirmation; the
// submission is not retried because the transaction may still land.
func (g *Gateway) ledgerError(method string, err error) error {
	if stderrors.Is(err, context.DeadlineExceeded) {
		g.log.Error().Str("method", method).Msg("ledger call timed out")
		return errors.LedgerCall("ledger call timed out", err).WithDetails("method", method)
	}
	g.log.Error().Str("method", method).Err(err).Msg("ledger call failed")
	return errors.LedgerCall(err.Error(), err).WithDetails("method", method)
}

func parseID(raw string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, errors.Validation("propertyId is required")
	}
	id, ok := new(big.Int).SetString(trimmed, 10)
	if !ok || id.Sign() < 0 {
		return nil, errors.Validation("propertyId must be a non-negative decimal integer")
	}
	return id, nil
}

// parseProperty decodes a contract property struct: [id, owner, address, name].
func parseProperty(item chain.StackItem) (property.Property, *big.Int, error) {
	fields, err := chain.ParseArray(item)
	if err != nil {
		return property.Property{}, nil, err
	}
	if len(fields) < 4 {
		return property.Property{}, nil, stderrors.New("property struct has too few fields")
	}

	id, err := chain.ParseInteger(fields[0])
	if err != nil {
		return property.Property{}, nil, err
	}
	if id.Sign() == 0 {
		// Zero id is the not-found sentinel; the remaining fields may be
		// null and are not worth decoding.
		return property.Property{}, id, nil
	}
	owner, err := chain.ParseHash160(fields[1])
	if err != nil {
		return property.Property{}, nil, err
	}
	address, err := chain.ParseString(fields[2])
	if err != nil {
		return property.Property{}, nil, err
	}
	name, err := chain.ParseString(fields[3])
	if err != nil {
		return property.Property{}, nil, err
	}

	return property.Property{
		ID:              id.String(),
		Owner:           owner,
		PropertyAddress: address,
		OwnerName:       name,
	}, id, nil
}
