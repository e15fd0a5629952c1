package display

import (
	"encoding/base64"
	"fmt"
	"io"
)

// Kitty graphics protocol framing. Payloads above maxChunk base64 bytes
// are streamed in continuation frames (m=1 until the final frame).
const (
	kittyPrefix = "\x1b_G"
	kittySuffix = "\x1b\\"
	maxChunk    = 4096
)

// writeKitty emits the image bytes as kitty graphics escape sequences.
// a=T transmits and displays in one step, f=100 marks the payload as a
// compressed format (png/jpeg), q=2 suppresses terminal responses.
func writeKitty(w io.Writer, data []byte) error {
	if len(data) == 0 {
		return nil
	}

	payload := base64.StdEncoding.EncodeToString(data)

	first := true
	for len(payload) > 0 {
		n := min(len(payload), maxChunk)
		chunk, rest := payload[:n], payload[n:]

		params := "m=1"
		if first {
			params = "a=T,f=100,q=2,m=1"
			first = false
		}
		if len(rest) == 0 {
			if params == "a=T,f=100,q=2,m=1" {
				// Fits in one frame, no continuation needed.
				params = "a=T,f=100,q=2"
			} else {
				params = "m=0"
			}
		}

		if _, err := fmt.Fprintf(w, "%s%s;%s%s", kittyPrefix, params, chunk, kittySuffix); err != nil {
			return err
		}
		payload = rest
	}

	return nil
}
