package gmail

import (
	"encoding/base64"
	"fmt"
	netmail "net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/net/html"
	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/rpggio/inboxtriage/internal/mail"
)

const noSubject = "(no subject)"

// BuildQuery renders a mail.Query in Gmail search syntax.
func BuildQuery(q mail.Query) string {
	parts := []string{"label:INBOX"}
	if !q.IncludeRead {
		parts = append(parts, "is:unread")
	}
	if !q.Since.IsZero() {
		parts = append(parts, fmt.Sprintf("after:%d", q.Since.Unix()))
	}
	if !q.Until.IsZero() {
		parts = append(parts, fmt.Sprintf("before:%d", q.Until.Unix()))
	}
	return strings.Join(parts, " ")
}

func summaryFromMessage(msg *gmailapi.Message) mail.Summary {
	s := mail.Summary{
		ID:       msg.Id,
		ThreadID: msg.ThreadId,
		Snippet:  html.UnescapeString(msg.Snippet),
		Subject:  noSubject,
	}
	if s.ThreadID == "" {
		s.ThreadID = msg.Id
	}

	var date string
	if msg.Payload != nil {
		for _, h := range msg.Payload.Headers {
			switch strings.ToLower(h.Name) {
			case "from":
				s.SenderName, s.SenderAddr = ParseFrom(h.Value)
			case "subject":
				if v := strings.TrimSpace(h.Value); v != "" {
					s.Subject = v
				}
			case "date":
				date = h.Value
			}
		}
	}
	s.ReceivedAt = parseDate(date, msg.InternalDate)
	return s
}

// ParseFrom splits a From header into display name and address.
func ParseFrom(v string) (name, addr string) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", ""
	}
	if a, err := netmail.ParseAddress(v); err == nil {
		return a.Name, a.Address
	}
	// lenient fallback for headers net/mail rejects
	if i := strings.Index(v, "<"); i >= 0 {
		rest := v[i+1:]
		if j := strings.Index(rest, ">"); j >= 0 {
			name = strings.Trim(strings.TrimSpace(v[:i]), `"`)
			return name, strings.TrimSpace(rest[:j])
		}
	}
	return "", v
}

func parseDate(header string, internalMillis int64) time.Time {
	if header != "" {
		if t, err := netmail.ParseDate(header); err == nil {
			return t.UTC()
		}
	}
	if internalMillis > 0 {
		return time.UnixMilli(internalMillis).UTC()
	}
	return time.Now().UTC()
}

// ExtractBody returns the message text. Plain parts win; HTML parts are
// reduced to text only when no plain part exists.
func ExtractBody(part *gmailapi.MessagePart) string {
	if part == nil {
		return ""
	}
	var plain, rich []string
	collectBodies(part, &plain, &rich)
	if len(plain) > 0 {
		return strings.TrimSpace(strings.Join(plain, "\n"))
	}
	if len(rich) > 0 {
		return StripHTML(strings.Join(rich, "\n"))
	}
	return ""
}

func collectBodies(part *gmailapi.MessagePart, plain, rich *[]string) {
	mime := strings.ToLower(part.MimeType)
	switch {
	case strings.HasPrefix(mime, "multipart/"):
		for _, p := range part.Parts {
			collectBodies(p, plain, rich)
		}
	case mime == "text/html":
		if s := decodePart(part); s != "" {
			*rich = append(*rich, s)
		}
	case mime == "text/plain" || mime == "":
		if s := decodePart(part); s != "" {
			*plain = append(*plain, s)
		}
	}
}

func decodePart(part *gmailapi.MessagePart) string {
	if part.Body == nil || part.Body.Data == "" {
		return ""
	}
	s, err := DecodeBase64URL(part.Body.Data)
	if err != nil {
		return ""
	}
	return s
}

// DecodeBase64URL decodes Gmail's base64url payloads, padded or not.
func DecodeBase64URL(data string) (string, error) {
	b, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "="))
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return strings.ToValidUTF8(string(b), "�"), nil
	}
	return string(b), nil
}

// StripHTML reduces an HTML document to its visible text.
func StripHTML(src string) string {
	z := html.NewTokenizer(strings.NewReader(src))
	var b strings.Builder
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return collapseBlankLines(b.String())
		case html.StartTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "script", "style", "head":
				skip++
			case "br", "p", "div", "li", "tr", "h1", "h2", "h3", "h4":
				b.WriteByte('\n')
			}
		case html.SelfClosingTagToken:
			if name, _ := z.TagName(); string(name) == "br" {
				b.WriteByte('\n')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "script", "style", "head":
				if skip > 0 {
					skip--
				}
			case "p", "div", "li", "tr":
				b.WriteByte('\n')
			}
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		}
	}
}

func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, l)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// Truncate cuts s to at most limit runes, marking the cut.
func Truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	return string(r[:limit]) + "\n[truncated]"
}
