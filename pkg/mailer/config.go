package mailer

// Config represents the configuration for the transactional email client
type Config struct {
	// APIKey authenticates requests against the email API
	APIKey string

	// BaseURL is the email API base URL
	BaseURL string

	// FromAddress is the sender address used for all outgoing mail
	FromAddress string

	// FromName is the display name attached to the sender address
	FromName string
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return ErrInvalidConfig
	}
	if c.BaseURL == "" {
		return ErrInvalidConfig
	}
	if c.FromAddress == "" {
		return ErrInvalidConfig
	}
	return nil
}
