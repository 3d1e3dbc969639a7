package email

import (
	"context"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

func TestRenderHTML(t *testing.T) {
	md := newMarkdown()

	out, err := RenderHTML(md, "# Weekly\n\n1. **First** item\nsecond line")
	require.NoError(t, err)
	require.Contains(t, out, "<h1>Weekly</h1>")
	require.Contains(t, out, "<strong>First</strong>")
	require.Contains(t, out, "<br>")

	html := "  <p>already html</p>"
	out, err = RenderHTML(md, html)
	require.NoError(t, err)
	require.Equal(t, html, out)
}

func TestNewEmailService_RequiresKey(t *testing.T) {
	_, err := NewEmailService(&EmailConfig{FromEmail: "news@example.com"}, logrus.New())
	require.Error(t, err)
}

func TestLogSender(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	s := NewLogSender(logger)

	require.NoError(t, s.Send(context.Background(), "ana@example.com", "Subject", "Hola ana,\n\nbody"))
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	require.Equal(t, "ana@example.com", entry.Data["to"])
	require.Equal(t, "Subject", entry.Data["subject"])
	require.True(t, strings.HasPrefix(entry.Message, "Email not sent"))
}
