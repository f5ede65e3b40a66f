package raw

// Cursor reads a Reader sequentially.
type Cursor struct {
	buf Reader
	pos int
}

func NewCursor(b []byte) *Cursor {
	return &Cursor{buf: Reader(b)}
}

func (c *Cursor) Pos() int {
	return c.pos
}

func (c *Cursor) Remaining() int {
	return len(c.buf) - c.pos
}

func (c *Cursor) Seek(pos int) error {
	if pos < 0 || pos > len(c.buf) {
		return &BoundsError{Offset: pos, Want: 0, Len: len(c.buf)}
	}
	c.pos = pos
	return nil
}

func (c *Cursor) Skip(n int) error {
	if err := c.buf.check(c.pos, n); err != nil {
		return err
	}
	c.pos += n
	return nil
}

func (c *Cursor) U8() (byte, error) {
	v, err := c.buf.U8(c.pos)
	if err == nil {
		c.pos++
	}
	return v, err
}

func (c *Cursor) U16LE() (int, error) {
	v, err := c.buf.U16LE(c.pos)
	if err == nil {
		c.pos += 2
	}
	return v, err
}

func (c *Cursor) U16BE() (int, error) {
	v, err := c.buf.U16BE(c.pos)
	if err == nil {
		c.pos += 2
	}
	return v, err
}

func (c *Cursor) U32LE() (uint32, error) {
	v, err := c.buf.U32LE(c.pos)
	if err == nil {
		c.pos += 4
	}
	return v, err
}

func (c *Cursor) U32BE() (uint32, error) {
	v, err := c.buf.U32BE(c.pos)
	if err == nil {
		c.pos += 4
	}
	return v, err
}

// Bytes returns the next n bytes, aliasing the underlying buffer.
func (c *Cursor) Bytes(n int) ([]byte, error) {
	b, err := c.buf.Slice(c.pos, n)
	if err == nil {
		c.pos += n
	}
	return b, err
}
