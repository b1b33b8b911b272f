package gmail

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/rpggio/inboxtriage/internal/mail"
)

func b64(s string) string { return base64.URLEncoding.EncodeToString([]byte(s)) }

func TestBuildQuery(t *testing.T) {
	since := time.Unix(1_700_000_000, 0)
	until := time.Unix(1_700_086_400, 0)

	require.Equal(t, "label:INBOX is:unread after:1700000000",
		BuildQuery(mail.Query{Since: since}))
	require.Equal(t, "label:INBOX after:1700000000 before:1700086400",
		BuildQuery(mail.Query{Since: since, Until: until, IncludeRead: true}))
	require.Equal(t, "label:INBOX is:unread", BuildQuery(mail.Query{}))
}

func TestParseFrom(t *testing.T) {
	cases := []struct {
		in, name, addr string
	}{
		{`Alice Smith <alice@example.org>`, "Alice Smith", "alice@example.org"},
		{`"Smith, Alice" <alice@example.org>`, "Smith, Alice", "alice@example.org"},
		{`bob@example.org`, "", "bob@example.org"},
		{`Weird @@ Name <weird@example.org>`, "Weird @@ Name", "weird@example.org"},
		{``, "", ""},
	}
	for _, tc := range cases {
		name, addr := ParseFrom(tc.in)
		require.Equal(t, tc.name, name, tc.in)
		require.Equal(t, tc.addr, addr, tc.in)
	}
}

func TestSummaryFromMessage(t *testing.T) {
	msg := &gmailapi.Message{
		Id:      "m1",
		Snippet: "see you &amp; bring notes",
		Payload: &gmailapi.MessagePart{Headers: []*gmailapi.MessagePartHeader{
			{Name: "From", Value: "Alice <Alice@Example.org>"},
			{Name: "Date", Value: "Mon, 02 Jan 2006 15:04:05 -0700"},
		}},
	}
	s := summaryFromMessage(msg)
	require.Equal(t, "m1", s.ThreadID)
	require.Equal(t, noSubject, s.Subject)
	require.Equal(t, "Alice", s.SenderName)
	require.Equal(t, "Alice@Example.org", s.SenderAddr)
	require.Equal(t, "see you & bring notes", s.Snippet)
	require.Equal(t, time.Date(2006, 1, 2, 22, 4, 5, 0, time.UTC), s.ReceivedAt)
}

func TestSummaryFromMessage_InternalDateFallback(t *testing.T) {
	msg := &gmailapi.Message{Id: "m2", ThreadId: "t2", InternalDate: 1_700_000_000_000,
		Payload: &gmailapi.MessagePart{Headers: []*gmailapi.MessagePartHeader{{Name: "Date", Value: "garbage"}}}}
	s := summaryFromMessage(msg)
	require.Equal(t, time.Unix(1_700_000_000, 0).UTC(), s.ReceivedAt)
	require.Equal(t, "t2", s.ThreadID)
}

func TestExtractBody_PrefersPlain(t *testing.T) {
	payload := &gmailapi.MessagePart{
		MimeType: "multipart/alternative",
		Parts: []*gmailapi.MessagePart{
			{MimeType: "text/plain", Body: &gmailapi.MessagePartBody{Data: b64("Hello plain")}},
			{MimeType: "text/html", Body: &gmailapi.MessagePartBody{Data: b64("<p>Hello html</p>")}},
		},
	}
	require.Equal(t, "Hello plain", ExtractBody(payload))
}

func TestExtractBody_HTMLFallback(t *testing.T) {
	doc := `<html><head><style>p{}</style></head><body><p>Line one</p><p>Line <b>two</b></p><script>x()</script></body></html>`
	payload := &gmailapi.MessagePart{
		MimeType: "multipart/mixed",
		Parts: []*gmailapi.MessagePart{
			{MimeType: "multipart/alternative", Parts: []*gmailapi.MessagePart{
				{MimeType: "text/html", Body: &gmailapi.MessagePartBody{Data: b64(doc)}},
			}},
			{MimeType: "application/pdf", Body: &gmailapi.MessagePartBody{AttachmentId: "a1"}},
		},
	}
	require.Equal(t, "Line one\n\nLine two", ExtractBody(payload))
}

func TestDecodeBase64URL_Unpadded(t *testing.T) {
	enc := base64.RawURLEncoding.EncodeToString([]byte("ok?>"))
	got, err := DecodeBase64URL(enc)
	require.NoError(t, err)
	require.Equal(t, "ok?>", got)

	_, err = DecodeBase64URL("!!!")
	require.Error(t, err)
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "short", Truncate("short", 10))
	require.Equal(t, "héll\n[truncated]", Truncate("héllo", 4))
	require.Equal(t, "unbounded", Truncate("unbounded", 0))
}
