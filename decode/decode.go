// Package decode turns raw mailbox messages into a normalized in-memory
// representation. Decoding never fails a whole message: malformed headers,
// bodies or charsets degrade to empty fields instead of errors.
package decode

import (
	"bytes"
	"io"
	"log/slog"
	"mime"
	"net/mail"
	"time"

	gomessage "github.com/emersion/go-message"

	"flightfwd/model"
)

// Decoder produces NormalizedMessages from raw message bytes.
type Decoder struct {
	logger *slog.Logger
	words  mime.WordDecoder
}

func New(logger *slog.Logger) *Decoder {
	return &Decoder{
		logger: logger,
		words:  mime.WordDecoder{CharsetReader: charsetReader},
	}
}

// Decode parses a raw message into its normalized form. Header values are
// decoded from their transport encoding (falling back to the raw value),
// bodies go through the charset fallback chain, and the Date header parse
// failure yields the zero time rather than an error.
func (d *Decoder) Decode(raw model.RawMessage) model.NormalizedMessage {
	var norm model.NormalizedMessage

	entity, err := gomessage.Read(bytes.NewReader(raw.Raw))
	if err != nil && !gomessage.IsUnknownCharset(err) {
		if d.logger != nil {
			d.logger.Debug("unparseable message", "folder", raw.Folder, "uid", raw.UID, "err", err)
		}
		return norm
	}
	if entity == nil {
		return norm
	}

	norm.From = d.decodeHeader(entity.Header.Get("From"))
	norm.Subject = d.decodeHeader(entity.Header.Get("Subject"))
	norm.Date = parseDate(entity.Header.Get("Date"))

	d.extractBodies(entity, &norm)
	return norm
}

// decodeHeader decodes encoded-word header values, treating the raw value as
// already-decoded text when the encoding scheme is absent or malformed.
func (d *Decoder) decodeHeader(value string) string {
	if value == "" {
		return ""
	}
	decoded, err := d.words.DecodeHeader(value)
	if err != nil {
		return value
	}
	return decoded
}

// parseDate parses an RFC 5322 date header. Any failure yields the zero time
// sentinel; callers treat that as "unknown".
func parseDate(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := mail.ParseDate(value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func (d *Decoder) extractBodies(entity *gomessage.Entity, norm *model.NormalizedMessage) {
	if mr := entity.MultipartReader(); mr != nil {
		d.walkParts(mr, norm)
		return
	}

	ct, params, _ := entity.Header.ContentType()
	data, err := io.ReadAll(entity.Body)
	if err != nil || len(data) == 0 {
		return
	}
	text := decodePayload(data, params["charset"])
	if text == "" {
		return
	}
	if ct == "text/plain" {
		norm.TextBody = text
	} else {
		norm.HTMLBody = text
	}
}

// walkParts recurses through multipart containers. Attachment parts are
// collected verbatim; for text parts the longest decoded result wins, which
// handles messages that carry duplicate quoted-text fragments.
func (d *Decoder) walkParts(mr gomessage.MultipartReader, norm *model.NormalizedMessage) {
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return
		}
		if err != nil && !gomessage.IsUnknownCharset(err) {
			return
		}
		if part == nil {
			return
		}

		if nested := part.MultipartReader(); nested != nil {
			d.walkParts(nested, norm)
			continue
		}

		disposition, dispParams, _ := part.Header.ContentDisposition()
		ct, params, _ := part.Header.ContentType()

		if disposition == "attachment" {
			data, err := io.ReadAll(part.Body)
			if err != nil {
				continue
			}
			filename := dispParams["filename"]
			if filename == "" {
				filename = params["name"]
			}
			norm.Attachments = append(norm.Attachments, model.Attachment{
				Filename:    d.decodeHeader(filename),
				ContentType: ct,
				Data:        data,
			})
			continue
		}

		if ct != "text/plain" && ct != "text/html" {
			continue
		}

		data, err := io.ReadAll(part.Body)
		if err != nil || len(data) == 0 {
			continue
		}
		text := decodePayload(data, params["charset"])
		if text == "" {
			continue
		}
		switch ct {
		case "text/plain":
			if len(text) > len(norm.TextBody) {
				norm.TextBody = text
			}
		case "text/html":
			if len(text) > len(norm.HTMLBody) {
				norm.HTMLBody = text
			}
		}
	}
}
