package operation

import (
	"encoding/json"
	"fmt"
)

type envelope struct {
	Kind Kind      `json:"kind"`
	Op   Operation `json:"op"`
}

// Encode serializes ops into a canonical JSON document. The output depends
// only on the operation values, so equal sequences encode to equal bytes.
func Encode(ops []Operation) ([]byte, error) {
	envs := make([]envelope, len(ops))
	for i, op := range ops {
		if op == nil {
			return nil, fmt.Errorf("encoding operation %d: %w", i, ErrNilOperation)
		}

		envs[i] = envelope{Kind: op.Kind(), Op: op}
	}

	data, err := json.Marshal(envs)
	if err != nil {
		return nil, fmt.Errorf("encoding operations: %w", err)
	}

	return data, nil
}
