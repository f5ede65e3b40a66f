package disk

import "github.com/paleotronic/picm8/raw"

// AMSDOSHeaderSize is the length of the header AMSDOS puts in front of
// binary and BASIC files.
const AMSDOSHeaderSize = 128

type AMSDOSHeader struct {
	User     int
	Name     string
	Type     int
	LoadAddr int
	Length   int
	Exec     int
}

func amsdosChecksum(b []byte) int {
	sum := 0
	for _, v := range b[:67] {
		sum += int(v)
	}
	return sum & 0xffff
}

// IsAMSDOSHeader reports whether b starts with a valid AMSDOS header: the
// sum of bytes 0-66 is stored at 67.
func IsAMSDOSHeader(b []byte) bool {
	r := raw.Reader(b)
	stored, err := r.U16LE(67)
	if err != nil || len(b) < AMSDOSHeaderSize {
		return false
	}
	sum := amsdosChecksum(b)
	// an all-zero block passes the checksum trivially
	return stored == sum && sum != 0
}

func ParseAMSDOSHeader(b []byte) (AMSDOSHeader, bool) {
	if !IsAMSDOSHeader(b) {
		return AMSDOSHeader{}, false
	}
	r := raw.Reader(b)
	h := AMSDOSHeader{User: int(b[0]), Type: int(b[0x12])}
	h.Name, _ = r.Str(1, 11)
	h.LoadAddr, _ = r.U16LE(0x15)
	h.Exec, _ = r.U16LE(0x1a)
	h.Length, _ = r.U24LE(0x40)
	if h.Length == 0 {
		h.Length, _ = r.U16LE(0x18)
	}
	return h, true
}

// StripAMSDOSHeader removes a header if there is one and trims the body to
// the length it records.
func StripAMSDOSHeader(b []byte) ([]byte, *AMSDOSHeader) {
	h, ok := ParseAMSDOSHeader(b)
	if !ok {
		return b, nil
	}
	body := b[AMSDOSHeaderSize:]
	if h.Length > 0 && h.Length < len(body) {
		body = body[:h.Length]
	}
	return body, &h
}
