// Package transport defines request and response shapes for the provider
// health HTTP API.
package transport

// AlertConfigRequest creates or replaces an alerting rule for a provider.
type AlertConfigRequest struct {
	Provider              string  `json:"provider" validate:"required,oneof=evolution zapi all"`
	ErrorThresholdPercent float64 `json:"errorThresholdPercent" validate:"required,gt=0,lte=100"`
	TimeWindowMinutes     int     `json:"timeWindowMinutes" validate:"required,min=1,max=1440"`
	NotifyToast           bool    `json:"notifyToast"`
	NotifyEmail           bool    `json:"notifyEmail"`
	EmailRecipient        string  `json:"emailRecipient" validate:"omitempty,email"`
	IsActive              bool    `json:"isActive"`
}

// LogsQuery filters the provider log listing.
type LogsQuery struct {
	Provider string `form:"provider" validate:"omitempty,oneof=evolution zapi"`
	Result   string `form:"result" validate:"omitempty,oneof=success error"`
	Limit    int    `form:"limit" validate:"omitempty,min=1,max=500"`
	Offset   int    `form:"offset" validate:"omitempty,min=0"`
}
