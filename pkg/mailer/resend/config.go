package resend

// Config holds Resend API settings.
type Config struct {
	APIKey string `env:"RESEND_API_KEY"`
}
