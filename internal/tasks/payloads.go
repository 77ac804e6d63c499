// Package tasks defines the asynq task types shared by producers and the
// worker.
package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// Task type constants keep queue producers and consumers in sync.
const (
	TypeCVPreview = "cv:preview"
)

// CVPreviewPayload carries the minimum needed to regenerate a CV thumbnail.
type CVPreviewPayload struct {
	CVID          uint   `json:"cv_id"`
	UserID        uint   `json:"user_id"`
	CorrelationID string `json:"correlation_id"`
}

// NewCVPreviewTask builds a preview regeneration task for one CV.
func NewCVPreviewTask(cvID, userID uint, correlationID string) (*asynq.Task, error) {
	payload, err := json.Marshal(CVPreviewPayload{
		CVID:          cvID,
		UserID:        userID,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeCVPreview, payload), nil
}
