package twofactor

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
)

var (
	errFound = errors.New("found")

	codePattern     = regexp.MustCompile(`^\d{6}$`)
	fontSizePattern = regexp.MustCompile(`(?i)font-size\s*:\s*([0-9]+(?:\.[0-9]+)?)\s*px`)
)

// DefaultMinFontPx is the smallest inline font size treated as the
// code's display size.
const DefaultMinFontPx = 24

// ValidCode reports whether s is exactly six ASCII digits.
func ValidCode(s string) bool {
	return codePattern.MatchString(s)
}

// HTMLBody returns the HTML body of a raw RFC 822 message: the first
// text/html part of a multipart message, or the whole body of a
// single-part one.
func HTMLBody(raw []byte) ([]byte, error) {
	e, err := message.Read(bytes.NewReader(raw))
	if err != nil && !message.IsUnknownCharset(err) && !message.IsUnknownEncoding(err) {
		return nil, fmt.Errorf("parse message: %w", err)
	}

	mediaType, _, _ := e.Header.ContentType()
	if !strings.HasPrefix(mediaType, "multipart/") {
		body, err := io.ReadAll(e.Body)
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		return body, nil
	}

	var html []byte
	err = e.Walk(func(_ []int, part *message.Entity, err error) error {
		if err != nil && !message.IsUnknownCharset(err) {
			return err
		}
		t, _, _ := part.Header.ContentType()
		if t != "text/html" {
			return nil
		}
		html, err = io.ReadAll(part.Body)
		if err != nil {
			return err
		}
		return errFound
	})
	if err != nil && !errors.Is(err, errFound) {
		return nil, fmt.Errorf("walk message: %w", err)
	}
	if html == nil {
		return nil, fmt.Errorf("%w: no text/html part", ErrNoCode)
	}
	return html, nil
}

// FindStyledCode returns the first six-digit text of an element whose
// inline style sets a font size of at least minPx, or "" when there is none.
func FindStyledCode(html []byte, minPx float64) (string, error) {
	if minPx <= 0 {
		minPx = DefaultMinFontPx
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	var code string
	doc.Find("[style]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		style, _ := s.Attr("style")
		m := fontSizePattern.FindStringSubmatch(style)
		if m == nil {
			return true
		}
		px, err := strconv.ParseFloat(m[1], 64)
		if err != nil || px < minPx {
			return true
		}
		if text := strings.TrimSpace(s.Text()); ValidCode(text) {
			code = text
			return false
		}
		return true
	})
	return code, nil
}

// ExtractCode finds the verification code in a raw message. It returns
// ErrNoCode when the message parses but carries no code.
func ExtractCode(raw []byte, minPx float64) (string, error) {
	html, err := HTMLBody(raw)
	if err != nil {
		return "", err
	}
	code, err := FindStyledCode(html, minPx)
	if err != nil {
		return "", err
	}
	if code == "" {
		return "", ErrNoCode
	}
	return code, nil
}
