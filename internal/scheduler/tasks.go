// Package scheduler defines the asynq task types and the worker that runs
// periodic stock maintenance in the background, off the API request path.
package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// TaskLowStockScanAll walks every office and checks its materials against
// their minimum stock thresholds.
const TaskLowStockScanAll = "materials.low_stock.scan_all"

// TaskLowStockScanOffice checks a single office's materials.
const TaskLowStockScanOffice = "materials.low_stock.scan_office"

type LowStockScanOfficePayload struct {
	OfficeID string `json:"officeId"`
}

func NewLowStockScanAllTask() *asynq.Task {
	return asynq.NewTask(TaskLowStockScanAll, nil)
}

func NewLowStockScanOfficeTask(payload LowStockScanOfficePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLowStockScanOffice, data), nil
}

func ParseLowStockScanOfficePayload(task *asynq.Task) (LowStockScanOfficePayload, error) {
	var payload LowStockScanOfficePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return LowStockScanOfficePayload{}, err
	}
	return payload, nil
}
