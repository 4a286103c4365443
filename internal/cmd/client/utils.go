package client

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"unicode/utf8"
)

// decodedPayload returns a map with one of payload_json, payload_text or
// payload_b64.
func decodedPayload(payload []byte) map[string]any {
	out := map[string]any{}
	if len(payload) > 0 && (payload[0] == '{' || payload[0] == '[') {
		var v any
		if json.Unmarshal(payload, &v) == nil {
			out["payload_json"] = v
			return out
		}
	}
	if utf8.Valid(payload) {
		out["payload_text"] = string(payload)
		return out
	}
	out["payload_b64"] = base64.StdEncoding.EncodeToString(payload)
	return out
}

// printPayload writes payload on its own line: as a JSON object when
// asJSON is set, else as text, or base64 when it is not valid UTF-8.
func printPayload(w io.Writer, payload []byte, asJSON bool) error {
	if asJSON {
		return json.NewEncoder(w).Encode(decodedPayload(payload))
	}
	if utf8.Valid(payload) {
		_, err := fmt.Fprintln(w, string(payload))
		return err
	}
	_, err := fmt.Fprintln(w, base64.StdEncoding.EncodeToString(payload))
	return err
}

func printJSON(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}

// payloadsFromArgs turns positional arguments into payloads. A lone "-"
// reads one payload from stdin.
func payloadsFromArgs(args []string, stdin io.Reader) ([][]byte, error) {
	if len(args) == 1 && args[0] == "-" {
		if stdin == nil {
			stdin = os.Stdin
		}
		b, err := io.ReadAll(stdin)
		if err != nil {
			return nil, err
		}
		return [][]byte{b}, nil
	}
	out := make([][]byte, len(args))
	for i, a := range args {
		out[i] = []byte(a)
	}
	return out, nil
}
