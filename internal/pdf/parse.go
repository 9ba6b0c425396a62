package pdf

import (
	"bytes"
	"strconv"

	"github.com/juju/errgo"
)

// Returns an Object and the number of bytes consumed
// if err != nil, the int is the offset in the slice
// where the error was discovered.
type parseFn func(slice []byte) (Object, int, error)

func parseObject(slice []byte) (Object, int, error) {
	start, ok := nextNonWhitespace(slice)
	if !ok {
		return nil, start, errgo.New("expected an object, found end of data")
	}
	rest := slice[start:]

	var (
		object Object
		n      int
		err    error
	)

	// determine the object type
	// except for Stream §7.3.8
	// streams start as dictionaries
	switch c := rest[0]; {
	case c == 't' || c == 'f':
		// Boolean §7.3.2
		object, n, err = parseBoolean(rest)
	case c == 'n':
		// Null §7.3.9
		object, n, err = parseNull(rest)
	case isNumericStart(c):
		// Integer §7.3.3
		// Real §7.3.3
		// could also be the start of an object reference
		object, n, err = parseObjectReference(rest)
		if err != nil {
			object, n, err = parseNumeric(rest)
		}
	case c == '(':
		// String §7.3.4
		object, n, err = parseLiteralString(rest)
	case c == '/':
		// Name §7.3.5
		object, n, err = parseName(rest)
	case c == '[':
		// Array §7.3.6
		object, n, err = parseArray(rest)
	case c == '<':
		if len(rest) > 1 && rest[1] == '<' {
			// Dictionary §7.3.7
			object, n, err = parseDictionary(rest)
			if err == nil {
				object, n, err = parseStreamBody(rest, object.(Dictionary), n)
			}
		} else {
			// String §7.3.4
			object, n, err = parseHexadecimalString(rest)
		}
	default:
		return nil, start, errgo.Newf("unexpected character %q", c)
	}

	if err != nil {
		return object, start + n, errgo.Mask(err)
	}
	return object, start + n, nil
}

// parseStreamBody checks whether the dictionary that ends at n is followed
// by a stream and, if so, returns the Stream. The /Length entry is trusted
// only when "endstream" follows the data it delimits; otherwise the data
// runs up to the next "endstream" keyword.
func parseStreamBody(slice []byte, dict Dictionary, n int) (Object, int, error) {
	n2, isStream := match(slice[n:], "stream")
	if !isStream {
		return dict, n, nil
	}
	n += n2

	// consume end of line (§7.3.8.1 paragraph after example)
	if n < len(slice) && slice[n] == '\r' {
		n++
	}
	if n < len(slice) && slice[n] == '\n' {
		n++
	}

	data := slice[n:]
	if length, ok := dict[Name("Length")].(Integer); ok && length >= 0 && int(length) <= len(data) {
		if n3, ok := match(data[length:], "endstream"); ok {
			return Stream{Dictionary: dict, Stream: data[:length]}, n + int(length) + n3, nil
		}
	}

	end := bytes.Index(data, []byte("endstream"))
	if end == -1 {
		return dict, len(slice), errgo.New("expected 'endstream'")
	}
	body := data[:end]
	switch {
	case bytes.HasSuffix(body, []byte("\r\n")):
		body = body[:len(body)-2]
	case bytes.HasSuffix(body, []byte("\n")), bytes.HasSuffix(body, []byte("\r")):
		body = body[:len(body)-1]
	}

	return Stream{Dictionary: dict, Stream: body}, n + end + len("endstream"), nil
}

// for tokenized things, returns the next token
func nextToken(slice []byte) ([]byte, int) {
	// whitespace:
	// null, tab, line feed, form feed, carriage return, or space
	// §7.2.2 Table 1

	// delimiters:
	// (, ), <, >, [, ], {, }, /, %
	// §7.2.2 Table 2

	begin, ok := nextNonWhitespace(slice)
	if !ok {
		return nil, len(slice)
	}

	end := begin
	for end < len(slice) && !isWhitespace(slice[end]) && !isDelimiter(slice[end]) {
		end++
	}

	return slice[begin:end], end
}

func isDelimiter(char byte) bool {
	switch char {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isWhitespace(char byte) bool {
	switch char {
	case 0, 9, 10, 12, 13, 32:
		return true
	}
	return false
}

func isHexDigit(char byte) bool {
	switch {
	case '0' <= char && char <= '9',
		'A' <= char && char <= 'F',
		'a' <= char && char <= 'f':
		return true
	}
	return false
}

func isNumericStart(char byte) bool {
	return ('0' <= char && char <= '9') || char == '+' || char == '-' || char == '.'
}

// nextNonWhitespace skips whitespace and comments (§7.2.3).
func nextNonWhitespace(slice []byte) (int, bool) {
	for i := 0; i < len(slice); i++ {
		switch {
		case isWhitespace(slice[i]):
		case slice[i] == '%':
			for i < len(slice) && slice[i] != '\n' && slice[i] != '\r' {
				i++
			}
		default:
			return i, true
		}
	}
	return len(slice), false
}

func match(slice []byte, toMatch string) (int, bool) {
	token, n := nextToken(slice)
	if string(token) != toMatch {
		return 0, false
	}
	return n, true
}

func parseLiteralString(slice []byte) (Object, int, error) {
	if len(slice) == 0 || slice[0] != '(' {
		return String(nil), 0, errgo.New("not a literal string")
	}

	decoded := make([]byte, 0, 32)
	parens := 1
	for i := 1; i < len(slice); i++ {
		switch c := slice[i]; c {
		case '\\':
			i++
			if i >= len(slice) {
				return String(decoded), i, errgo.New("couldn't find end of string")
			}
			switch e := slice[i]; e {
			case 'n':
				decoded = append(decoded, '\n')
			case 'r':
				decoded = append(decoded, '\r')
			case 't':
				decoded = append(decoded, '\t')
			case 'b':
				decoded = append(decoded, '\b')
			case 'f':
				decoded = append(decoded, '\f')
			case '\r':
				// line continuation
				if i+1 < len(slice) && slice[i+1] == '\n' {
					i++
				}
			case '\n':
				// line continuation
			case '0', '1', '2', '3', '4', '5', '6', '7':
				value := 0
				for j := 0; j < 3 && i < len(slice) && '0' <= slice[i] && slice[i] <= '7'; j++ {
					value = value*8 + int(slice[i]-'0')
					i++
				}
				i--
				decoded = append(decoded, byte(value))
			default:
				// \( \) \\ and unknown escapes keep the character
				decoded = append(decoded, e)
			}
		case '(':
			parens++
			decoded = append(decoded, c)
		case ')':
			parens--
			if parens == 0 {
				return String(decoded), i + 1, nil
			}
			decoded = append(decoded, c)
		case '\r':
			// an unescaped end of line is read as a line feed
			decoded = append(decoded, '\n')
			if i+1 < len(slice) && slice[i+1] == '\n' {
				i++
			}
		default:
			decoded = append(decoded, c)
		}
	}

	return String(decoded), len(slice), errgo.New("couldn't find end of string")
}

// returned int is the length of slice consumed
func parseDictionary(slice []byte) (Object, int, error) {
	dict := make(Dictionary)

	if len(slice) < 2 || slice[0] != '<' || slice[1] != '<' {
		return dict, 0, errgo.New("not a dictionary")
	}

	i := 2
	for {
		// skip whitespace
		n, ok := nextNonWhitespace(slice[i:])
		if !ok {
			return dict, len(slice), errgo.New("couldn't find end of dictionary")
		}
		i += n

		// check to see if end
		if slice[i] == '>' {
			if i+1 < len(slice) && slice[i+1] == '>' {
				return dict, i + 2, nil
			}
			return dict, i, errgo.New("expected '>>'")
		}

		// get the key
		name, n, err := parseName(slice[i:])
		if err != nil {
			return dict, i + n, errgo.Mask(err)
		}
		i += n

		// get the value
		value, n, err := parseObject(slice[i:])
		if err != nil {
			return dict, i + n, errgo.Notef(err, "value of /%s", name)
		}
		i += n

		// set the key/value pair
		dict[name.(Name)] = value
	}
}

func parseName(slice []byte) (Object, int, error) {
	if len(slice) == 0 || slice[0] != '/' {
		return Name(""), 0, errgo.New("not a name")
	}

	name := make([]byte, 0, 16)
	i := 1
	for i < len(slice) {
		if isDelimiter(slice[i]) || isWhitespace(slice[i]) {
			break
		}

		if slice[i] == '#' && i+2 < len(slice) && isHexDigit(slice[i+1]) && isHexDigit(slice[i+2]) {
			char, err := strconv.ParseUint(string(slice[i+1:i+3]), 16, 8)
			if err != nil {
				return Name(name), i, errgo.Mask(err)
			}
			name = append(name, byte(char))
			i += 3
			continue
		}

		name = append(name, slice[i])
		i++
	}

	return Name(name), i, nil
}

func parseBoolean(slice []byte) (Object, int, error) {
	if n, ok := match(slice, "true"); ok {
		return Boolean(true), n, nil
	}

	if n, ok := match(slice, "false"); ok {
		return Boolean(false), n, nil
	}

	return Boolean(false), 0, errgo.New("not a boolean")
}

// returns Integer when integer, Real when real
func parseNumeric(slice []byte) (Object, int, error) {
	token, n := nextToken(slice)
	if len(token) == 0 {
		return Integer(0), n, errgo.New("not a number")
	}

	if bytes.IndexByte(token, '.') == -1 {
		integer, err := strconv.ParseInt(string(token), 10, 0)
		if err == nil {
			return Integer(integer), n, nil
		}
	}

	real, err := strconv.ParseFloat(string(token), 64)
	if err != nil {
		return Real(0), n, errgo.Newf("invalid number %q", token)
	}

	return Real(real), n, nil
}

func parseHexadecimalString(slice []byte) (Object, int, error) {
	hex := make(String, 0, len(slice)/2)

	if len(slice) == 0 || slice[0] != '<' {
		return hex, 0, errgo.New("not a hexadecimal string")
	}

	var (
		high    byte
		hasHigh bool
	)
	for i := 1; i < len(slice); i++ {
		c := slice[i]
		switch {
		case c == '>':
			if hasHigh {
				// a missing final digit is read as 0
				hex = append(hex, high<<4)
			}
			return hex, i + 1, nil
		case isWhitespace(c):
			continue
		case isHexDigit(c):
			if hasHigh {
				hex = append(hex, high<<4|hexValue(c))
				hasHigh = false
			} else {
				high = hexValue(c)
				hasHigh = true
			}
		default:
			return hex, i, errgo.Newf("invalid character %q in hexadecimal string", c)
		}
	}

	return hex, len(slice), errgo.New("couldn't find end of hexadecimal string")
}

func hexValue(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}

func parseArray(slice []byte) (Object, int, error) {
	array := make(Array, 0)

	if len(slice) == 0 || slice[0] != '[' {
		return array, 0, errgo.New("not an array")
	}

	i := 1
	for {
		n, ok := nextNonWhitespace(slice[i:])
		if !ok {
			return array, len(slice), errgo.New("end of array not found")
		}
		i += n

		if slice[i] == ']' {
			return array, i + 1, nil
		}

		object, n, err := parseObject(slice[i:])
		if err != nil {
			return array, i + n, errgo.Notef(err, "array element %d", len(array))
		}
		i += n

		array = append(array, object)
	}
}

func parseNull(slice []byte) (Object, int, error) {
	if n, ok := match(slice, "null"); ok {
		return Null{}, n, nil
	}

	return Null{}, 0, errgo.New("not a null")
}

func parseObjectReference(slice []byte) (Object, int, error) {
	objref := ObjectReference{}
	i := 0

	objectNumber, n, err := parseUnsigned(slice[i:])
	i += n
	if err != nil {
		return objref, i, err
	}
	objref.ObjectNumber = objectNumber

	generationNumber, n, err := parseUnsigned(slice[i:])
	i += n
	if err != nil {
		return objref, i, err
	}
	objref.GenerationNumber = generationNumber

	n, ok := match(slice[i:], "R")
	i += n
	if !ok {
		return objref, i, errgo.New("could not find end of object reference")
	}

	return objref, i, nil
}

func parseUnsigned(slice []byte) (uint, int, error) {
	token, n := nextToken(slice)
	value, err := strconv.ParseUint(string(token), 10, 0)
	if err != nil {
		return 0, n, errgo.Newf("expected an unsigned integer, got %q", token)
	}
	return uint(value), n, nil
}

func parseIndirectObject(slice []byte) (Object, int, error) {
	var io IndirectObject
	i := 0

	// Object Number
	objectNumber, n, err := parseUnsigned(slice[i:])
	i += n
	if err != nil {
		return io, i, errgo.Notef(err, "object number")
	}
	io.ObjectNumber = objectNumber

	// Generation Number
	generationNumber, n, err := parseUnsigned(slice[i:])
	i += n
	if err != nil {
		return io, i, errgo.Notef(err, "generation number")
	}
	io.GenerationNumber = generationNumber

	// "obj"
	n, ok := match(slice[i:], "obj")
	i += n
	if !ok {
		return io, i, errgo.New("could not find 'obj'")
	}

	// the object
	object, n, err := parseObject(slice[i:])
	i += n
	io.Object = object
	if err != nil {
		return io, i, errgo.Notef(err, "object %d %d", objectNumber, generationNumber)
	}

	// "endobj"
	n, ok = match(slice[i:], "endobj")
	i += n
	if !ok {
		return io, i, errgo.New("could not find 'endobj'")
	}

	return io, i, nil
}
