package mailer

import "net/mail"

// Email is a rendered message ready for a Sender.
type Email struct {
	Headers     map[string]string
	Tags        map[string]string
	From        string // formatted with Recipient
	Subject     string
	HTML        string
	Text        string
	To          []string
	Attachments []Attachment
}

// Attachment is a file carried in memory for the duration of one send.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Recipient formats name and address as an RFC 5322 mailbox, encoding
// non-ASCII display names. An empty name yields the bare address.
func Recipient(name, addr string) string {
	if name == "" {
		return addr
	}
	return (&mail.Address{Name: name, Address: addr}).String()
}
