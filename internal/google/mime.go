package google

import (
	"fmt"
	"strings"
)

// Compose describes an outgoing email. RFC822 renders it as the raw
// message Gmail's send endpoint expects; threading headers are only
// emitted when set.
type Compose struct {
	To         string
	Subject    string
	InReplyTo  string
	References string
	Body       string
}

// RFC822 renders the message with CRLF line endings and an HTML body
func (c Compose) RFC822() string {
	var b strings.Builder
	fmt.Fprintf(&b, "To: %s\r\n", c.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", c.Subject)
	if c.InReplyTo != "" {
		fmt.Fprintf(&b, "In-Reply-To: %s\r\n", c.InReplyTo)
	}
	if c.References != "" {
		fmt.Fprintf(&b, "References: %s\r\n", c.References)
	}
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(c.Body)
	return b.String()
}

// ReplySubject prefixes Re: unless the subject already carries it
func ReplySubject(subject string) string {
	if strings.HasPrefix(strings.ToLower(subject), "re:") {
		return subject
	}
	return "Re: " + subject
}

// ForwardSubject prefixes Fwd: unless the subject already carries it
func ForwardSubject(subject string) string {
	lower := strings.ToLower(subject)
	if strings.HasPrefix(lower, "fwd:") || strings.HasPrefix(lower, "fw:") {
		return subject
	}
	return "Fwd: " + subject
}
