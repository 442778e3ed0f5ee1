package eth

import (
	"errors"
	"strings"

	"randomness-relay/common"

	"github.com/ethereum/go-ethereum/rpc"
)

// errCodeExecutionReverted is the JSON-RPC error code returned by the
// nodes for a reverted eth_call or eth_estimateGas
const errCodeExecutionReverted = 3

// IsExecutionReverted returns true when err is a deterministic rejection
// of the contract: a revert detected while estimating the gas or running a
// call.  Sending the same transaction again would fail the same way.
func IsExecutionReverted(err error) bool {
	if err == nil {
		return false
	}
	err = common.Unwrap(err)
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == errCodeExecutionReverted {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "execution reverted")
}
