package pdf

import (
	"bytes"

	"github.com/juju/errgo"
)

// Content builds a content stream (§7.8.2) one operator at a time.
type Content struct {
	buf *buffer
}

// NewContent returns an empty content stream builder.
func NewContent() *Content {
	return &Content{buf: newBuffer()}
}

// Save pushes the graphics state (q).
func (c *Content) Save() *Content {
	return c.op("q")
}

// Restore pops the graphics state (Q).
func (c *Content) Restore() *Content {
	return c.op("Q")
}

// Concat multiplies the current transformation matrix (cm).
func (c *Content) Concat(a, b, cc, d, e, f float64) *Content {
	return c.op("cm", Real(a), Real(b), Real(cc), Real(d), Real(e), Real(f))
}

// Do paints the named XObject.
func (c *Content) Do(name Name) *Content {
	return c.op("Do", name)
}

// Raw appends data verbatim, followed by a newline.
func (c *Content) Raw(data []byte) *Content {
	c.buf.Write(data)
	c.buf.WriteString("\n")
	return c
}

func (c *Content) op(operator string, operands ...Object) *Content {
	for _, operand := range operands {
		if _, err := operand.writeTo(c.buf); err != nil {
			c.buf.fail(err)
		}
		c.buf.WriteString(" ")
	}
	c.buf.WriteString(operator)
	c.buf.WriteString("\n")
	return c
}

// Bytes returns the content stream, or the first error met while
// building it.
func (c *Content) Bytes() ([]byte, error) {
	data, err := c.buf.Bytes()
	if err != nil {
		return nil, errgo.Mask(err)
	}
	return bytes.Clone(data), nil
}

// Operation is one operator of a content stream with its operands.
type Operation struct {
	Operator string
	Operands []Object
}

// ParseContent splits a decoded content stream into operations.
// Inline image data (BI ... ID ... EI) is skipped and reported as a
// single "BI" operation.
func ParseContent(data []byte) ([]Operation, error) {
	ops := []Operation{}
	operands := []Object{}

	i := 0
	for {
		start, ok := nextNonWhitespace(data[i:])
		i += start
		if !ok {
			break
		}

		c := data[i]
		if isOperatorStart(c) {
			token, n := nextToken(data[i:])
			i += n
			switch string(token) {
			case "true", "false":
				operands = append(operands, Boolean(string(token) == "true"))
				continue
			case "null":
				operands = append(operands, Null{})
				continue
			case "BI":
				end := bytes.Index(data[i:], []byte("EI"))
				for end != -1 {
					after := i + end + 2
					if after == len(data) || isWhitespace(data[after]) || isDelimiter(data[after]) {
						break
					}
					next := bytes.Index(data[after:], []byte("EI"))
					if next == -1 {
						end = -1
						break
					}
					end = after - i + next
				}
				if end == -1 {
					return ops, errgo.New("inline image without EI")
				}
				i += end + 2
				ops = append(ops, Operation{Operator: "BI"})
				operands = []Object{}
				continue
			}
			ops = append(ops, Operation{Operator: string(token), Operands: operands})
			operands = []Object{}
			continue
		}

		var (
			object Object
			n      int
			err    error
		)
		if isNumericStart(c) {
			// operands in content streams are never references
			object, n, err = parseNumeric(data[i:])
		} else {
			object, n, err = parseObject(data[i:])
		}
		if err != nil {
			return ops, errgo.Notef(err, "content operand at offset %d", i)
		}
		i += n
		operands = append(operands, object)
	}

	if len(operands) != 0 {
		return ops, errgo.Newf("%d operands after the last operator", len(operands))
	}
	return ops, nil
}

func isOperatorStart(c byte) bool {
	return !isWhitespace(c) && !isDelimiter(c) && !isNumericStart(c)
}
