package pdf

import (
	"bytes"
	"compress/zlib"
	"encoding/ascii85"
	"encoding/hex"
	"io"

	"github.com/juju/errgo"
)

// ErrUnsupportedFilter is the cause of errors returned by Decode for
// filters it cannot undo.
var ErrUnsupportedFilter = errgo.New("unsupported filter")

// Decode decodes the stream data using the filters in the stream's dictionary.
func (s Stream) Decode() ([]byte, error) {
	// when there are no filters, it is already decoded
	filterObj, ok := s.Dictionary[Name("Filter")]
	if !ok {
		return s.Stream, nil
	}

	// extract the list of filters to use
	filters := []Name{}
	switch streamFilter := filterObj.(type) {
	case Name:
		filters = append(filters, streamFilter)
	case Array:
		for _, filter := range streamFilter {
			name, ok := filter.(Name)
			if !ok {
				return nil, errgo.Newf("filter array holds %T, want a name", filter)
			}
			filters = append(filters, name)
		}
	case Null:
	default:
		return nil, errgo.Newf("unhandled filter type: %T", streamFilter)
	}

	// extract the filter parameters
	parameters := []Dictionary{}
	switch streamParameter := s.Dictionary[Name("DecodeParms")].(type) {
	case Dictionary:
		parameters = append(parameters, streamParameter)
	case Array:
		for _, parameter := range streamParameter {
			dict, _ := parameter.(Dictionary) // null entries mean defaults
			parameters = append(parameters, dict)
		}
	}

	// apply the filters
	stream := s.Stream
	for i, filter := range filters {
		decoder, ok := decoders[filter]
		if !ok {
			return nil, errgo.WithCausef(nil, ErrUnsupportedFilter, "no decoder for /%s", filter)
		}

		parameter := Dictionary{}
		if i < len(parameters) && parameters[i] != nil {
			parameter = parameters[i]
		}

		var err error
		stream, err = decoder(stream, parameter)
		if err != nil {
			return nil, errgo.Notef(err, "/%s", filter)
		}
	}

	return stream, nil
}

var decoders = map[Name]func([]byte, Dictionary) ([]byte, error){
	Name("FlateDecode"):    flateDecode,
	Name("Fl"):             flateDecode,
	Name("ASCII85Decode"):  ascii85Decode,
	Name("A85"):            ascii85Decode,
	Name("ASCIIHexDecode"): asciiHexDecode,
	Name("AHx"):            asciiHexDecode,
}

func flateDecode(encoded []byte, parms Dictionary) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(encoded))
	if err != nil {
		return nil, errgo.Mask(err)
	}
	defer r.Close()

	decoded, err := io.ReadAll(r)
	if err != nil && len(decoded) == 0 {
		return nil, errgo.Mask(err)
	}
	// a damaged tail or checksum keeps what could be inflated

	return unpredict(decoded, parms)
}

func ascii85Decode(encoded []byte, _ Dictionary) ([]byte, error) {
	encoded = bytes.TrimSpace(encoded)
	encoded = bytes.TrimPrefix(encoded, []byte("<~"))
	if end := bytes.Index(encoded, []byte("~>")); end != -1 {
		encoded = encoded[:end]
	}
	decoded, err := io.ReadAll(ascii85.NewDecoder(bytes.NewReader(encoded)))
	if err != nil {
		return nil, errgo.Mask(err)
	}
	return decoded, nil
}

func asciiHexDecode(encoded []byte, _ Dictionary) ([]byte, error) {
	digits := make([]byte, 0, len(encoded))
	for _, c := range encoded {
		if c == '>' {
			break
		}
		if isWhitespace(c) {
			continue
		}
		digits = append(digits, c)
	}
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	decoded := make([]byte, len(digits)/2)
	if _, err := hex.Decode(decoded, digits); err != nil {
		return nil, errgo.Mask(err)
	}
	return decoded, nil
}

// unpredict reverses the TIFF and PNG predictors of §7.4.4.4.
func unpredict(data []byte, parms Dictionary) ([]byte, error) {
	predictor := intParam(parms, "Predictor", 1)
	if predictor <= 1 {
		return data, nil
	}

	colors := intParam(parms, "Colors", 1)
	bpc := intParam(parms, "BitsPerComponent", 8)
	columns := intParam(parms, "Columns", 1)
	if colors < 1 || colors > 32 || bpc < 1 || bpc > 16 || columns < 1 {
		return nil, errgo.New("invalid predictor parameters")
	}
	if len(data) == 0 {
		return data, nil
	}
	// a row longer than the data cannot hold a single sample
	if columns > len(data)*8 {
		return nil, errgo.Newf("predictor /Columns %d exceeds the %d bytes of data", columns, len(data))
	}

	bytesPerPixel := (colors*bpc + 7) / 8
	rowLength := (colors*bpc*columns + 7) / 8
	if rowLength > len(data) {
		return nil, errgo.Newf("predictor row of %d bytes exceeds the %d bytes of data", rowLength, len(data))
	}

	if predictor == 2 {
		if bpc != 8 {
			return nil, errgo.Newf("TIFF predictor with %d bits per component", bpc)
		}
		out := bytes.Clone(data)
		for row := 0; row+rowLength <= len(out); row += rowLength {
			for i := bytesPerPixel; i < rowLength; i++ {
				out[row+i] += out[row+i-bytesPerPixel]
			}
		}
		return out, nil
	}

	// PNG predictors, each row is prefixed with its filter type
	out := make([]byte, 0, len(data))
	previous := make([]byte, rowLength)
	for offset := 0; offset < len(data); offset += rowLength + 1 {
		if offset+1+rowLength > len(data) {
			break
		}
		filter := data[offset]
		row := bytes.Clone(data[offset+1 : offset+1+rowLength])

		for i := range row {
			var left, upperLeft byte
			if i >= bytesPerPixel {
				left = row[i-bytesPerPixel]
				upperLeft = previous[i-bytesPerPixel]
			}
			up := previous[i]

			switch filter {
			case 0: // None
			case 1: // Sub
				row[i] += left
			case 2: // Up
				row[i] += up
			case 3: // Average
				row[i] += byte((int(left) + int(up)) / 2)
			case 4: // Paeth
				row[i] += paeth(left, up, upperLeft)
			default:
				return nil, errgo.Newf("unknown PNG filter type %d", filter)
			}
		}

		out = append(out, row...)
		previous = row
	}

	return out, nil
}

func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := abs(p-int(a)), abs(p-int(b)), abs(p-int(c))
	switch {
	case pa <= pb && pa <= pc:
		return a
	case pb <= pc:
		return b
	default:
		return c
	}
}

func abs(i int) int {
	if i < 0 {
		return -i
	}
	return i
}

func intParam(parms Dictionary, key Name, fallback int) int {
	if value, ok := parms[key].(Integer); ok {
		return int(value)
	}
	return fallback
}

// EncodeFlate compresses data with the FlateDecode filter's zlib format.
func EncodeFlate(data []byte) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := zlib.NewWriter(buf)
	if _, err := w.Write(data); err != nil {
		return nil, errgo.Mask(err)
	}
	if err := w.Close(); err != nil {
		return nil, errgo.Mask(err)
	}
	return buf.Bytes(), nil
}

// NewFlateStream returns a stream holding data compressed with FlateDecode.
func NewFlateStream(dict Dictionary, data []byte) (Stream, error) {
	encoded, err := EncodeFlate(data)
	if err != nil {
		return Stream{}, errgo.Mask(err)
	}
	if dict == nil {
		dict = Dictionary{}
	}
	dict[Name("Filter")] = Name("FlateDecode")
	return Stream{Dictionary: dict, Stream: encoded}, nil
}
