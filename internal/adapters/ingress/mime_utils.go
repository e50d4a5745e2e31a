package ingress

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"github.com/mikey/llm-mail-assistant/internal/core"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var blankLinesPattern = regexp.MustCompile(`\n{3,}`)

// Envelope carries the SMTP envelope addresses of a message
type Envelope struct {
	From string
	To   []string
}

// ParseMessage converts a raw RFC 5322 message into an EmailMessage
func ParseMessage(raw []byte, envelope Envelope) (*core.EmailMessage, error) {
	email := &core.EmailMessage{
		Author:    envelope.From,
		Recipient: strings.Join(envelope.To, ", "),
	}

	reader, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return email, fmt.Errorf("failed to parse message: %w", err)
	}
	defer reader.Close()

	if subject, err := reader.Header.Subject(); err == nil {
		email.Subject = subject
	}
	if from, err := reader.Header.AddressList("From"); err == nil && len(from) > 0 {
		email.Author = formatAddress(from[0])
	}
	if to, err := reader.Header.AddressList("To"); err == nil && len(to) > 0 {
		recipients := make([]string, 0, len(to))
		for _, addr := range to {
			recipients = append(recipients, formatAddress(addr))
		}
		email.Recipient = strings.Join(recipients, ", ")
	}

	body, err := extractText(reader)
	email.ThreadBody = body
	if err != nil {
		return email, err
	}

	return email, nil
}

// extractText collects text/plain parts, falling back to stripped text/html
func extractText(reader *mail.Reader) (string, error) {
	var plain, markup strings.Builder

	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Keep what was read before the broken part
			if plain.Len() > 0 || markup.Len() > 0 {
				break
			}
			return "", fmt.Errorf("failed to read message part: %w", err)
		}

		header, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}

		contentType, _, err := header.ContentType()
		if err != nil {
			contentType = "text/plain"
		}

		data, err := io.ReadAll(part.Body)
		if err != nil {
			return "", fmt.Errorf("failed to read message part: %w", err)
		}

		switch strings.ToLower(contentType) {
		case "text/plain":
			appendPart(&plain, string(data))
		case "text/html":
			appendPart(&markup, string(data))
		}
	}

	if plain.Len() > 0 {
		return strings.TrimSpace(plain.String()), nil
	}
	return stripHTML(markup.String()), nil
}

func appendPart(b *strings.Builder, text string) {
	if b.Len() > 0 {
		b.WriteString("\n\n")
	}
	b.WriteString(text)
}

// stripHTML renders the text content of an HTML document, one line per element
func stripHTML(doc string) string {
	var b strings.Builder
	tokenizer := html.NewTokenizer(strings.NewReader(doc))
	hidden := 0

loop:
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			break loop
		case html.StartTagToken:
			if isHiddenElement(tokenizer) {
				hidden++
				continue
			}
			b.WriteByte('\n')
		case html.EndTagToken:
			if isHiddenElement(tokenizer) {
				if hidden > 0 {
					hidden--
				}
				continue
			}
			b.WriteByte('\n')
		case html.SelfClosingTagToken:
			b.WriteByte('\n')
		case html.TextToken:
			// Text unescapes entities
			if hidden == 0 {
				b.Write(tokenizer.Text())
			}
		}
	}

	text := strings.ReplaceAll(b.String(), "\u00a0", " ")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text = blankLinesPattern.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(text)
}

func isHiddenElement(tokenizer *html.Tokenizer) bool {
	name, _ := tokenizer.TagName()
	switch atom.Lookup(name) {
	case atom.Script, atom.Style, atom.Head, atom.Title:
		return true
	}
	return false
}

func formatAddress(addr *mail.Address) string {
	if addr.Name == "" {
		return addr.Address
	}
	return fmt.Sprintf("%s <%s>", addr.Name, addr.Address)
}
