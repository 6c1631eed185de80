package ses

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"mime"
	"mime/multipart"
	"net/textproto"
	"strings"

	"github.com/dmitrymomot/postoffice/pkg/mailer"
)

// buildRawMessage writes a multipart/mixed message: an alternative part with
// the text and HTML bodies, then one base64 part per attachment.
func buildRawMessage(email *mailer.Email) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "From: %s\r\n", email.From)
	fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(email.To, ", "))
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("UTF-8", email.Subject))
	for k, v := range email.Headers {
		fmt.Fprintf(&buf, "%s: %s\r\n", textproto.CanonicalMIMEHeaderKey(k), v)
	}
	buf.WriteString("MIME-Version: 1.0\r\n")

	mixed := multipart.NewWriter(&buf)
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", mixed.Boundary())

	if err := writeBodies(mixed, email); err != nil {
		return nil, err
	}

	for _, a := range email.Attachments {
		h := make(textproto.MIMEHeader)
		ct := a.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)
		h.Set("Content-Transfer-Encoding", "base64")
		h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": a.Filename}))

		part, err := mixed.CreatePart(h)
		if err != nil {
			return nil, fmt.Errorf("create attachment part: %w", err)
		}
		if _, err := part.Write(wrapBase64(a.Content)); err != nil {
			return nil, fmt.Errorf("write attachment %s: %w", a.Filename, err)
		}
	}

	if err := mixed.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeBodies(mixed *multipart.Writer, email *mailer.Email) error {
	var alt bytes.Buffer
	altw := multipart.NewWriter(&alt)

	for _, body := range []struct{ ct, content string }{
		{"text/plain; charset=UTF-8", email.Text},
		{"text/html; charset=UTF-8", email.HTML},
	} {
		if body.content == "" {
			continue
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Type", body.ct)
		part, err := altw.CreatePart(h)
		if err != nil {
			return fmt.Errorf("create body part: %w", err)
		}
		if _, err := part.Write([]byte(body.content)); err != nil {
			return fmt.Errorf("write body part: %w", err)
		}
	}
	if err := altw.Close(); err != nil {
		return err
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Type", fmt.Sprintf("multipart/alternative; boundary=%q", altw.Boundary()))
	part, err := mixed.CreatePart(h)
	if err != nil {
		return fmt.Errorf("create alternative part: %w", err)
	}
	_, err = part.Write(alt.Bytes())
	return err
}

// wrapBase64 encodes data with 76-character lines per RFC 2045.
func wrapBase64(data []byte) []byte {
	encoded := base64.StdEncoding.EncodeToString(data)
	var out bytes.Buffer
	for i := 0; i < len(encoded); i += 76 {
		out.WriteString(encoded[i:min(i+76, len(encoded))])
		out.WriteString("\r\n")
	}
	return out.Bytes()
}
