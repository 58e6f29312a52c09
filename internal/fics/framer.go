package fics

import (
	"bytes"
	"strconv"
	"strings"
)

// Prompt is the shell prompt FICS echoes in front of output.
const Prompt = "fics% "

var lineTerminator = []byte("\n\r")

type ItemKind int

const (
	KindLine ItemKind = iota
	KindBlock
	KindMalformed
)

// Block is one decoded block-mode reply.
type Block struct {
	ID      int
	Code    int
	Payload string
}

// Item is one unit the framer extracted from the stream.
type Item struct {
	Kind  ItemKind
	Line  string
	Block Block
	Err   error
}

// Framer splits the server stream into text lines and block frames. It is
// not safe for concurrent use; the connection's reader owns it.
type Framer struct {
	buf []byte
}

// Feed appends p and returns every complete item, in stream order.
func (f *Framer) Feed(p []byte) []Item {
	f.buf = append(f.buf, p...)
	var out []Item
	for {
		start := bytes.IndexByte(f.buf, BlockStart)
		eol := bytes.Index(f.buf, lineTerminator)

		if start >= 0 && (eol < 0 || start < eol) {
			end := bytes.IndexByte(f.buf[start+1:], BlockEnd)
			if end < 0 {
				return out
			}
			end += start + 1
			out = append(out, decodeBlock(string(f.buf[start+1:end])))
			f.buf = append(f.buf[:start], f.buf[end+1:]...)
			continue
		}
		if eol < 0 {
			return out
		}
		out = append(out, Item{Kind: KindLine, Line: stripPrompt(string(f.buf[:eol]))})
		f.buf = f.buf[eol+len(lineTerminator):]
	}
}

// Buffered returns the number of bytes waiting for a terminator.
func (f *Framer) Buffered() int { return len(f.buf) }

// Reset drops buffered input.
func (f *Framer) Reset() { f.buf = nil }

func decodeBlock(raw string) Item {
	parts := strings.SplitN(raw, string(BlockSeparator), 3)
	if len(parts) != 3 {
		return Item{Kind: KindMalformed, Err: &BlockError{Raw: raw, Reason: "missing separator"}}
	}
	id, err := strconv.Atoi(parts[0])
	if err != nil {
		return Item{Kind: KindMalformed, Err: &BlockError{Raw: raw, Reason: "bad id"}}
	}
	code, err := strconv.Atoi(parts[1])
	if err != nil {
		return Item{Kind: KindMalformed, Err: &BlockError{Raw: raw, Reason: "bad code"}}
	}
	return Item{Kind: KindBlock, Block: Block{ID: id, Code: code, Payload: parts[2]}}
}

// stripPrompt drops everything up to and including the last prompt echo.
func stripPrompt(line string) string {
	if i := strings.LastIndex(line, Prompt); i >= 0 {
		return line[i+len(Prompt):]
	}
	return line
}
