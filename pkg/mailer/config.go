package mailer

import "time"

// Config holds template and transport selection settings.
type Config struct {
	// Transport is one of stdout, resend or ses.
	Transport          string        `env:"MAIL_TRANSPORT" envDefault:"stdout"`
	TemplateDuplicates string        `env:"TEMPLATE_DUPLICATES" envDefault:"overwrite"`
	TemplateCacheTTL   time.Duration `env:"TEMPLATE_CACHE_TTL" envDefault:"5m"`
}
