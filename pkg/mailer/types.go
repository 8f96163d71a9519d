package mailer

// Attachment is a file attached to an outgoing email. Content is
// base64-encoded on the wire.
type Attachment struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

// SendRequest is the payload for sending a single email
type SendRequest struct {
	From        string       `json:"from"`
	To          []string     `json:"to"`
	Subject     string       `json:"subject"`
	HTML        string       `json:"html,omitempty"`
	Text        string       `json:"text,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// SendResponse is the email API's acknowledgement
type SendResponse struct {
	ID string `json:"id"`
}

type apiError struct {
	Name       string `json:"name"`
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
}
