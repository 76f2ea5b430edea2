// Package transport defines request and response shapes for connection routes.
package transport

import "github.com/google/uuid"

type CreateConnectionRequest struct {
	Name           string     `json:"name" validate:"required,max=120"`
	Provider       string     `json:"provider" validate:"required,oneof=evolution zapi"`
	InstanceID     string     `json:"instanceId" validate:"required,max=190"`
	DefaultQueueID *uuid.UUID `json:"defaultQueueId"`
}

type UpdateConnectionRequest struct {
	Name           string     `json:"name" validate:"required,max=120"`
	DefaultQueueID *uuid.UUID `json:"defaultQueueId"`
}
