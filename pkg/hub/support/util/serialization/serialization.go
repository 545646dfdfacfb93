// Package serialization provides JSON helpers for the opaque maps carried on
// job records (input parameters and provider result payloads), including
// masking of sensitive input keys before logging.
package serialization

import (
	"encoding/json"

	"github.com/bduoto/omtx-hub/pkg/hub/support/util/exception"
	logger "github.com/bduoto/omtx-hub/pkg/hub/support/util/logger"
)

const moduleName = "serialization"

// GetMaskedInputMap returns a copy of the given input map with the values of
// maskedKeys replaced by a placeholder. The original map is not modified.
func GetMaskedInputMap(input map[string]interface{}, maskedKeys []string) map[string]interface{} {
	if len(input) == 0 {
		return map[string]interface{}{}
	}

	masked := make(map[string]interface{}, len(input))
	for k, v := range input {
		masked[k] = v
	}
	for _, key := range maskedKeys {
		if _, ok := masked[key]; ok {
			masked[key] = "********"
		}
	}
	return masked
}

// MarshalPayload serializes an opaque payload map into a JSON byte slice.
// A nil map serializes to an empty JSON object.
func MarshalPayload(payload map[string]interface{}) ([]byte, error) {
	if payload == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Errorf("Failed to serialize payload: %v", err)
		return nil, exception.NewHubError(moduleName, "failed to serialize payload", err, false, false)
	}
	return data, nil
}

// MarshalJSON serializes an arbitrary value, wrapping encoding errors.
func MarshalJSON(v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, exception.NewHubError(moduleName, "failed to serialize value", err, false, false)
	}
	return data, nil
}

// UnmarshalJSON deserializes a JSON byte slice into target, wrapping
// decoding errors.
func UnmarshalJSON(data []byte, target interface{}) error {
	if err := json.Unmarshal(data, target); err != nil {
		return exception.NewHubError(moduleName, "failed to deserialize value", err, false, false)
	}
	return nil
}

// UnmarshalPayload deserializes a JSON byte slice into a payload map. The
// target map is cleared before decoding; an empty input yields an empty map.
func UnmarshalPayload(data []byte, payload *map[string]interface{}) error {
	if *payload == nil {
		*payload = make(map[string]interface{})
	} else {
		for k := range *payload {
			delete(*payload, k)
		}
	}

	if len(data) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, payload); err != nil {
		return exception.NewHubError(moduleName, "failed to deserialize payload", err, false, false)
	}
	return nil
}
