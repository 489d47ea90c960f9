package model

// Status codes carried by notification messages.
const (
	CompletionStatusOK              = 200
	CompletionStatusInvalidSource   = 400
	CompletionStatusProcessingError = 500
)

// Completion is the message published to the notification channel once a
// rendition set has been fully uploaded.
type Completion struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	OwnerKey   string `json:"ownerKey"`
	MasterURL  string `json:"masterUrl"`
}

// NewCompletion builds the success message for a published rendition set.
func NewCompletion(key SourceKey, publicBaseURL string) Completion {
	return Completion{
		StatusCode: CompletionStatusOK,
		Message:    "transcoding completed",
		OwnerKey:   key.OwnerKey,
		MasterURL:  key.MasterURL(publicBaseURL),
	}
}

// NewFailure builds a failure message. OwnerKey may be empty when the source key
// could not be parsed.
func NewFailure(statusCode int, ownerKey, message string) Completion {
	return Completion{
		StatusCode: statusCode,
		Message:    message,
		OwnerKey:   ownerKey,
	}
}

// Succeeded reports whether the message describes a completed rendition set.
func (c Completion) Succeeded() bool {
	return c.StatusCode == CompletionStatusOK
}
