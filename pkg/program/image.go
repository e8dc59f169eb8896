package program

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"novavm/pkg/bytecode"
)

// Image format version written by this package.
const (
	VersionMajor uint32 = 1
	VersionMinor uint32 = 0
)

// Magic identifies a program image: "NVBC" (Nova ByteCode).
var Magic = [4]byte{'N', 'V', 'B', 'C'}

const maxStringLen = 16 << 20

var (
	ErrBadMagic           = errors.New("not a program image")
	ErrUnsupportedVersion = errors.New("unsupported image version")
)

type header struct {
	Magic        [4]byte
	Major        uint32
	Minor        uint32
	Instructions uint32
	Constants    uint32
	Globals      uint32
}

var order = binary.LittleEndian

// Write serializes the program image to w.
func Write(w io.Writer, p *Program) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("invalid program: %w", err)
	}

	bw := bufio.NewWriter(w)
	h := header{
		Magic:        Magic,
		Major:        VersionMajor,
		Minor:        VersionMinor,
		Instructions: uint32(len(p.Code)),
		Constants:    uint32(len(p.Constants)),
		Globals:      uint32(len(p.GlobalNames)),
	}
	if err := binary.Write(bw, order, h); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	if err := binary.Write(bw, order, p.Code); err != nil {
		return fmt.Errorf("write instructions: %w", err)
	}

	for idx, c := range p.Constants {
		if err := writeConstant(bw, c); err != nil {
			return fmt.Errorf("write constant %d: %w", idx, err)
		}
	}

	for _, name := range p.GlobalNames {
		if err := writeString(bw, name); err != nil {
			return fmt.Errorf("write global %q: %w", name, err)
		}
	}

	return bw.Flush()
}

func writeConstant(w io.Writer, c Constant) error {
	if err := binary.Write(w, order, uint8(c.Kind)); err != nil {
		return err
	}

	switch c.Kind {
	case ConstInt:
		return binary.Write(w, order, c.Int)
	case ConstFloat:
		return binary.Write(w, order, math.Float64bits(c.Float))
	case ConstString, ConstBuiltin:
		return writeString(w, c.Str)
	case ConstFunction:
		fields := struct {
			Entry     uint32
			Registers uint8
			Locals    uint16
		}{c.Proto.Entry, c.Proto.Registers, c.Proto.Locals}
		if err := binary.Write(w, order, fields); err != nil {
			return err
		}
		return writeString(w, c.Proto.Name)
	default:
		return fmt.Errorf("unknown constant kind %d", c.Kind)
	}
}

func writeString(w io.Writer, s string) error {
	if len(s) > maxStringLen {
		return fmt.Errorf("string of %d bytes exceeds limit", len(s))
	}
	if err := binary.Write(w, order, uint64(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

// Read parses a program image from r.
func Read(r io.Reader) (*Program, error) {
	br := bufio.NewReader(r)

	var h header
	if err := binary.Read(br, order, &h); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if h.Magic != Magic {
		return nil, ErrBadMagic
	}
	if h.Major > VersionMajor || (h.Major == VersionMajor && h.Minor > VersionMinor) {
		return nil, fmt.Errorf("%w: image %d.%d, supported %d.%d",
			ErrUnsupportedVersion, h.Major, h.Minor, VersionMajor, VersionMinor)
	}
	if h.Constants > MaxConstants {
		return nil, fmt.Errorf("constant count %d exceeds %d", h.Constants, MaxConstants)
	}

	p := &Program{}

	// grow incrementally so a corrupt count cannot force a huge allocation up front
	for i := uint32(0); i < h.Instructions; i++ {
		var word uint32
		if err := binary.Read(br, order, &word); err != nil {
			return nil, fmt.Errorf("read instruction %d: %w", i, err)
		}
		p.Code = append(p.Code, bytecode.Instruction(word))
	}

	p.Constants = make([]Constant, 0, h.Constants)
	for i := uint32(0); i < h.Constants; i++ {
		c, err := readConstant(br)
		if err != nil {
			return nil, fmt.Errorf("read constant %d: %w", i, err)
		}
		p.Constants = append(p.Constants, c)
	}

	for i := uint32(0); i < h.Globals; i++ {
		name, err := readString(br)
		if err != nil {
			return nil, fmt.Errorf("read global %d: %w", i, err)
		}
		p.GlobalNames = append(p.GlobalNames, name)
	}

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid program: %w", err)
	}

	return p, nil
}

func readConstant(r io.Reader) (Constant, error) {
	var kind uint8
	if err := binary.Read(r, order, &kind); err != nil {
		return Constant{}, err
	}

	c := Constant{Kind: ConstantKind(kind)}
	switch c.Kind {
	case ConstInt:
		err := binary.Read(r, order, &c.Int)
		return c, err
	case ConstFloat:
		var bits uint64
		if err := binary.Read(r, order, &bits); err != nil {
			return c, err
		}
		c.Float = math.Float64frombits(bits)
		return c, nil
	case ConstString, ConstBuiltin:
		s, err := readString(r)
		c.Str = s
		return c, err
	case ConstFunction:
		var fields struct {
			Entry     uint32
			Registers uint8
			Locals    uint16
		}
		if err := binary.Read(r, order, &fields); err != nil {
			return c, err
		}
		name, err := readString(r)
		if err != nil {
			return c, err
		}
		c.Proto = &Prototype{Name: name, Entry: fields.Entry, Registers: fields.Registers, Locals: fields.Locals}
		return c, nil
	default:
		return c, fmt.Errorf("unknown constant kind %d", kind)
	}
}

func readString(r io.Reader) (string, error) {
	var n uint64
	if err := binary.Read(r, order, &n); err != nil {
		return "", err
	}
	if n > maxStringLen {
		return "", fmt.Errorf("string length %d exceeds limit", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// Marshal returns the serialized image.
func Marshal(p *Program) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, p); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal parses a serialized image.
func Unmarshal(data []byte) (*Program, error) {
	return Read(bytes.NewReader(data))
}

// ReadFile loads a program image from disk.
func ReadFile(path string) (*Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	p, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// WriteFile stores a program image on disk.
func WriteFile(path string, p *Program) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := Write(f, p); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}
