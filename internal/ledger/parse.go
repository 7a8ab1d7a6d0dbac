package ledger

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"regexp"
	"strings"
)

var entityReplacer = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&apos;", "'",
)

// ExtractField collects the trimmed, non-empty text of every element named tag
// (case-insensitive) in document order. The ledger application does not always
// produce well-formed XML, so the document is read with a non-strict decoder
// and whatever was collected before a syntax error is kept. When the decoder
// gives up early, a plain tag-scoped scan is run and wins if it found more.
func ExtractField(body []byte, tag string) []string {
	values, complete := decodeField(body, tag)
	if complete {
		return values
	}
	if scanned := scanField(body, tag); len(scanned) > len(values) {
		return scanned
	}
	return values
}

func decodeField(body []byte, tag string) ([]string, bool) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	dec.Strict = false
	dec.AutoClose = xml.HTMLAutoClose
	dec.Entity = xml.HTMLEntity
	// bodies are validated as UTF-8 by the transport whatever the prolog claims
	dec.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
		return input, nil
	}

	var (
		values []string
		text   strings.Builder
		depth  int
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return values, true
		}
		if err != nil {
			if depth > 0 {
				values = appendTrimmed(values, text.String())
			}
			return values, false
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if strings.EqualFold(t.Name.Local, tag) {
				if depth == 0 {
					text.Reset()
				}
				depth++
			}
		case xml.EndElement:
			if depth > 0 && strings.EqualFold(t.Name.Local, tag) {
				depth--
				if depth == 0 {
					values = appendTrimmed(values, text.String())
				}
			}
		case xml.CharData:
			if depth > 0 {
				text.Write(t)
			}
		}
	}
}

func scanField(body []byte, tag string) []string {
	re := regexp.MustCompile(`(?is)<` + regexp.QuoteMeta(tag) + `(?:\s[^>]*)?>(.*?)</` + regexp.QuoteMeta(tag) + `\s*>`)
	var values []string
	for _, m := range re.FindAllSubmatch(body, -1) {
		values = appendTrimmed(values, entityReplacer.Replace(string(m[1])))
	}
	return values
}

func appendTrimmed(values []string, s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return values
	}
	return append(values, s)
}
