//go:build ignore

// Decode-envelope decodes a captured wire envelope and pretty-prints it.
//
// JSON envelopes are passed through; MsgPack envelopes (captured as hex, for
// example from the server's debug hex dumps) are decoded and re-printed as
// JSON so both encodings can be inspected the same way.
//
// Usage:
//
//	# JSON envelope from a file or stdin
//	go run tools/decode_envelope.go capture.json
//	echo '{"messageType":"Event","eventType":"Tick"}' | go run tools/decode_envelope.go
//
//	# MsgPack envelope captured as hex
//	go run tools/decode_envelope.go --msgpack 83ab6d6573736167655479706 ...
package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/muurk/obsws/internal/protocol"
)

func main() {
	args := os.Args[1:]

	encoding := protocol.EncodingJSON
	if len(args) > 0 && args[0] == "--msgpack" {
		encoding = protocol.EncodingMsgPack
		args = args[1:]
	}

	data, err := readPayload(args, encoding)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	msgType, err := protocol.PeekMessageType(encoding, data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: not a valid %s envelope: %v\n", encoding, err)
		os.Exit(1)
	}

	var envelope map[string]any
	if err := protocol.Unmarshal(encoding, data, &envelope); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to decode envelope: %v\n", err)
		os.Exit(1)
	}

	pretty, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to format envelope: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("messageType: %s (%d bytes, %s)\n\n", msgType, len(data), encoding)
	fmt.Println(string(pretty))
}

// readPayload assembles the raw envelope bytes from the arguments. MsgPack
// input is hex; JSON input is a file path or stdin.
func readPayload(args []string, encoding protocol.Encoding) ([]byte, error) {
	if encoding == protocol.EncodingMsgPack {
		if len(args) == 0 {
			return nil, fmt.Errorf("msgpack input must be given as hex on the command line")
		}
		// Allow the hex to be split across arguments or contain spaces
		cleaned := strings.NewReplacer(" ", "", "\n", "").Replace(strings.Join(args, ""))
		data, err := hex.DecodeString(cleaned)
		if err != nil {
			return nil, fmt.Errorf("invalid hex payload: %w", err)
		}
		return data, nil
	}

	if len(args) == 0 {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	return data, nil
}
