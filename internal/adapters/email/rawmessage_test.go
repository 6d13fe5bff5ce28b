package email

import (
	"bytes"
	"encoding/base64"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"biglietto/internal/domain"
)

func TestBuildRawMessage(t *testing.T) {
	pdfData := []byte("%PDF-1.4 fake document body")
	raw, err := buildRawMessage(
		"Biglietteria <noreply@example.org>",
		"mario.rossi@example.org",
		"Il tuo biglietto",
		"<html><body>Ciao Mario</body></html>",
		"Ciao Mario",
		[]domain.Attachment{{
			Filename:    "ticket-mario-rossi-a3f9c2d1.pdf",
			ContentType: "application/pdf",
			Data:        pdfData,
		}},
	)
	require.NoError(t, err)

	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	require.NoError(t, err)
	require.Equal(t, "mario.rossi@example.org", msg.Header.Get("To"))

	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	require.NoError(t, err)
	require.Equal(t, "multipart/mixed", mediaType)

	mr := multipart.NewReader(msg.Body, params["boundary"])

	// First part: the alternative body.
	part, err := mr.NextPart()
	require.NoError(t, err)
	bodyType, _, err := mime.ParseMediaType(part.Header.Get("Content-Type"))
	require.NoError(t, err)
	require.Equal(t, "multipart/alternative", bodyType)

	// Second part: the attachment, base64 round-trips to the input bytes.
	part, err = mr.NextPart()
	require.NoError(t, err)
	require.Contains(t, part.Header.Get("Content-Disposition"), "ticket-mario-rossi-a3f9c2d1.pdf")
	encoded, err := io.ReadAll(part)
	require.NoError(t, err)
	decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(string(encoded), "\r\n", ""))
	require.NoError(t, err)
	require.Equal(t, pdfData, decoded)
}

func TestBuildRawMessage_NoAttachments(t *testing.T) {
	raw, err := buildRawMessage("a@b.it", "c@d.it", "Oggetto", "<p>hi</p>", "hi", nil)
	require.NoError(t, err)

	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	require.NoError(t, err)
	require.Equal(t, "1.0", msg.Header.Get("MIME-Version"))
}
