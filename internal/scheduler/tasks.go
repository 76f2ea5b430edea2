package scheduler

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const TaskProviderMonitorRun = "providers.monitor.run"

type ProviderMonitorRunPayload struct {
	RequestedAt time.Time `json:"requestedAt"`
}

func NewProviderMonitorRunTask(payload ProviderMonitorRunPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskProviderMonitorRun, data), nil
}

func ParseProviderMonitorRunPayload(task *asynq.Task) (ProviderMonitorRunPayload, error) {
	var payload ProviderMonitorRunPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ProviderMonitorRunPayload{}, err
	}
	return payload, nil
}
