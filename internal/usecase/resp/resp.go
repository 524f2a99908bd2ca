package resp

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
)

const (
	maxBulkLen  = 512 << 20
	maxArrayLen = 1 << 20
)

const (
	STRING  = '+'
	ERROR   = '-'
	INTEGER = ':'
	BULK    = '$'
	ARRAY   = '*'
)

var (
	ErrUnknownType = errors.New("unknown RESP type")
	ErrLineEnding  = errors.New("invalid line ending")
)

var crlf = []byte{'\r', '\n'}

// Value is one RESP frame. Typ is one of "string", "error", "integer",
// "bulk", "array" or "null".
type Value struct {
	Typ   string
	Str   string
	Num   int
	Bulk  string
	Array []Value
}

func Bulk(s string) Value {
	return Value{Typ: "bulk", Bulk: s}
}

// Array builds an array frame; no elements yields an empty, non-null array.
func Array(elems ...Value) Value {
	if elems == nil {
		elems = []Value{}
	}
	return Value{Typ: "array", Array: elems}
}

func Error(msg string) Value {
	return Value{Typ: "error", Str: msg}
}

func Integer(n int) Value {
	return Value{Typ: "integer", Num: n}
}

func Null() Value {
	return Value{Typ: "null"}
}

type Reader struct {
	reader *bufio.Reader
}

func NewReader(rd io.Reader) *Reader {
	return &Reader{reader: bufio.NewReader(rd)}
}

// Read decodes the next frame. io.EOF is returned unwrapped when the stream
// ends between frames.
func (r *Reader) Read() (Value, error) {
	prefix, err := r.reader.ReadByte()
	if err != nil {
		return Value{}, err
	}

	switch prefix {
	case STRING, ERROR:
		line, err := r.readLine()
		if err != nil {
			return Value{}, err
		}
		if prefix == ERROR {
			return Error(line), nil
		}
		return Value{Typ: "string", Str: line}, nil
	case INTEGER:
		line, err := r.readLine()
		if err != nil {
			return Value{}, err
		}
		num, err := strconv.Atoi(line)
		if err != nil {
			return Value{}, fmt.Errorf("cannot parse integer: %s", line)
		}
		return Value{Typ: "integer", Num: num, Str: line}, nil
	case BULK:
		return r.readBulk()
	case ARRAY:
		return r.readArray()
	default:
		return Value{}, fmt.Errorf("%w: %q", ErrUnknownType, prefix)
	}
}

// readLength parses a length header. -1 means a null frame.
func (r *Reader) readLength(kind string, limit int) (int, error) {
	line, err := r.readLine()
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(line)
	if err != nil || n < -1 || n > limit {
		return 0, fmt.Errorf("invalid %s length: %s", kind, line)
	}
	return n, nil
}

func (r *Reader) readArray() (Value, error) {
	n, err := r.readLength("array", maxArrayLen)
	if err != nil || n == -1 {
		return Null(), err
	}

	elements := make([]Value, 0, n)
	for i := 0; i < n; i++ {
		value, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return Value{}, err
		}
		elements = append(elements, value)
	}

	return Value{Typ: "array", Array: elements}, nil
}

func (r *Reader) readBulk() (Value, error) {
	n, err := r.readLength("bulk", maxBulkLen)
	if err != nil || n == -1 {
		return Null(), err
	}

	buf := make([]byte, n+len(crlf))
	if _, err := io.ReadFull(r.reader, buf); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return Value{}, err
	}
	if buf[n] != '\r' || buf[n+1] != '\n' {
		return Value{}, ErrLineEnding
	}

	return Bulk(string(buf[:n])), nil
}

func (r *Reader) readLine() (string, error) {
	line, err := r.reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return "", err
	}
	if len(line) < 2 || line[len(line)-2] != '\r' {
		return "", ErrLineEnding
	}
	return line[:len(line)-2], nil
}

// AppendTo appends the wire form of v to buf. Frames with an unknown Typ
// encode to nothing.
func (v Value) AppendTo(buf []byte) []byte {
	switch v.Typ {
	case "string":
		buf = append(buf, STRING)
		buf = append(buf, v.Str...)
	case "error":
		buf = append(buf, ERROR)
		buf = append(buf, v.Str...)
	case "integer":
		buf = append(buf, INTEGER)
		buf = strconv.AppendInt(buf, int64(v.Num), 10)
	case "null":
		buf = append(buf, BULK, '-', '1')
	case "bulk":
		buf = append(buf, BULK)
		buf = strconv.AppendInt(buf, int64(len(v.Bulk)), 10)
		buf = append(buf, crlf...)
		buf = append(buf, v.Bulk...)
	case "array":
		buf = append(buf, ARRAY)
		buf = strconv.AppendInt(buf, int64(len(v.Array)), 10)
		buf = append(buf, crlf...)
		for _, elem := range v.Array {
			buf = elem.AppendTo(buf)
		}
		return buf
	default:
		return buf
	}
	return append(buf, crlf...)
}

func (v Value) Marshal() []byte {
	return v.AppendTo(nil)
}

type Writer struct {
	writer io.Writer
	buf    []byte
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{writer: w}
}

// Write sends v in a single call to the underlying writer.
func (w *Writer) Write(v Value) error {
	w.buf = v.AppendTo(w.buf[:0])
	_, err := w.writer.Write(w.buf)
	return err
}
