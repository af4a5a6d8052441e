package dto

import (
	"time"

	"github.com/ranlab/jgnash/internal/engine"
)

// TrashObjectResponse describes one removed entity awaiting eviction.
type TrashObjectResponse struct {
	UUID       string    `json:"uuid"`
	ObjectUUID string    `json:"objectUUID,omitempty"`
	ObjectType string    `json:"objectType,omitempty"`
	RemovedAt  time.Time `json:"removedAt"`
}

// ToTrashObjectResponse converts a trash wrapper to its response DTO.
func ToTrashObjectResponse(t *engine.TrashObject) TrashObjectResponse {
	resp := TrashObjectResponse{
		UUID:      t.UUID(),
		RemovedAt: t.Timestamp(),
	}
	if obj := t.Object(); obj != nil {
		resp.ObjectUUID = obj.UUID()
		switch obj.(type) {
		case *engine.Account:
			resp.ObjectType = "ACCOUNT"
		case *engine.Transaction:
			resp.ObjectType = "TRANSACTION"
		case *engine.CurrencyNode:
			resp.ObjectType = "CURRENCY"
		case *engine.SecurityNode:
			resp.ObjectType = "SECURITY"
		case *engine.ExchangeRate:
			resp.ObjectType = "EXCHANGE_RATE"
		case *engine.Budget:
			resp.ObjectType = "BUDGET"
		case *engine.Reminder:
			resp.ObjectType = "REMINDER"
		}
	}
	return resp
}

// SetPreferenceRequest stores one key/value preference. An empty value
// deletes the key.
type SetPreferenceRequest struct {
	Value string `json:"value"`
}

// PreferenceResponse returns one stored preference.
type PreferenceResponse struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}
