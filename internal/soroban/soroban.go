// Package soroban holds the Soroban contract configuration view and the
// simulate request schema. No RPC client is wired yet; simulations are
// acknowledged as pending.
package soroban

import (
	"context"
)

// StatusPending marks a simulation that was accepted but not executed.
const StatusPending = "pending"

// ContractIDLength is the length of a Stellar strkey.
const ContractIDLength = 56

// Config is the public network configuration returned to clients.
type Config struct {
	RPCURL            string  `json:"rpcUrl"`
	NetworkPassphrase string  `json:"networkPassphrase"`
	ContractID        *string `json:"contractId"`
}

// NewConfig builds the client view. An empty contractID is reported as null.
func NewConfig(rpcURL, networkPassphrase, contractID string) Config {
	c := Config{RPCURL: rpcURL, NetworkPassphrase: networkPassphrase}
	if contractID != "" {
		c.ContractID = &contractID
	}
	return c
}

// SimulateRequest is the body of POST /soroban/simulate.
type SimulateRequest struct {
	ContractID *string `json:"contractId" validate:"required,len=56"`
	Method     *string `json:"method" validate:"required,min=1"`
	Args       []any   `json:"args"`
}

// ApplyDefaults sets Args to an empty list when omitted.
func (r *SimulateRequest) ApplyDefaults() {
	if r.Args == nil {
		r.Args = []any{}
	}
}

func (r *SimulateRequest) Messages() map[string]string {
	return map[string]string{
		"contractId.required": "contractId is required",
		"contractId.len":      "contractId must be a 56-character Stellar strkey",
		"method.required":     "method is required",
		"method.min":          "method cannot be empty",
	}
}

// SimulateResponse echoes the accepted invocation.
type SimulateResponse struct {
	ContractID string `json:"contractId"`
	Method     string `json:"method"`
	Args       []any  `json:"args"`
	Status     string `json:"status"`
	Message    string `json:"message"`
}

// Simulator runs a contract invocation without submitting it.
type Simulator interface {
	Simulate(ctx context.Context, req SimulateRequest) (SimulateResponse, error)
}

// PendingSimulator acknowledges every request without contacting an RPC node.
type PendingSimulator struct{}

// Simulate implements Simulator.
func (PendingSimulator) Simulate(ctx context.Context, req SimulateRequest) (SimulateResponse, error) {
	if err := ctx.Err(); err != nil {
		return SimulateResponse{}, err
	}
	resp := SimulateResponse{
		Args:    req.Args,
		Status:  StatusPending,
		Message: "Simulation accepted; Soroban RPC integration is not enabled",
	}
	if req.ContractID != nil {
		resp.ContractID = *req.ContractID
	}
	if req.Method != nil {
		resp.Method = *req.Method
	}
	if resp.Args == nil {
		resp.Args = []any{}
	}
	return resp, nil
}
