package worker

// WebSocket message protocol, forwarded to the frontend over Redis Pub/Sub.
// Field names must stay in sync with the frontend parser.
type PreviewNotifyMessage struct {
	Status        string `json:"status"`
	CVID          uint   `json:"cv_id"`
	CorrelationID string `json:"correlation_id"`
	PreviewURL    string `json:"preview_url,omitempty"`
	ErrorMessage  string `json:"error_message,omitempty"`
}
