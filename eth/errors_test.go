package eth

import (
	"fmt"
	"testing"

	"randomness-relay/common"

	"github.com/stretchr/testify/assert"
)

type jsonError struct {
	code int
	msg  string
}

func (e *jsonError) Error() string  { return e.msg }
func (e *jsonError) ErrorCode() int { return e.code }

func TestIsExecutionReverted(t *testing.T) {
	assert.False(t, IsExecutionReverted(nil))
	assert.False(t, IsExecutionReverted(fmt.Errorf("connection refused")))
	assert.False(t, IsExecutionReverted(common.Wrap(ErrReceiptTimeout)))

	assert.True(t, IsExecutionReverted(&jsonError{code: 3, msg: "reverted"}))
	assert.True(t, IsExecutionReverted(
		fmt.Errorf("failed to estimate gas needed: execution reverted: value already set")))
	assert.True(t, IsExecutionReverted(common.Wrap(&jsonError{code: 3, msg: "x"})))
	assert.False(t, IsExecutionReverted(&jsonError{code: -32000, msg: "nonce too low"}))
}
