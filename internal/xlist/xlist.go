// Package xlist holds lists of whitespace separated lines. The first element
// of a line acts as its key.
package xlist

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

var ErrIndexOutOfBounds = errors.New("index out of bounds")

// XLine is an ordered list of elements.
type XLine struct {
	elements []string
}

func NewLine(elements ...string) *XLine {
	return &XLine{elements: append([]string(nil), elements...)}
}

func (l *XLine) Add(elements ...string) *XLine {
	l.elements = append(l.elements, elements...)
	return l
}

func (l *XLine) Len() int {
	return len(l.elements)
}

func (l *XLine) Element(i int) (string, error) {
	if i < 0 || i >= len(l.elements) {
		return "", errors.Wrapf(ErrIndexOutOfBounds, "element %d >= limit %d", i, len(l.elements))
	}
	return l.elements[i], nil
}

func (l *XLine) Elements() []string {
	return append([]string(nil), l.elements...)
}

func (l *XLine) Key() string {
	if len(l.elements) == 0 {
		return ""
	}
	return l.elements[0]
}

func (l *XLine) String() string {
	return strings.Join(l.elements, " ")
}

type XList struct {
	lines []*XLine
}

func New() *XList {
	return &XList{}
}

// AddLine appends a line built from elements and returns it.
func (x *XList) AddLine(elements ...string) *XLine {
	line := NewLine(elements...)
	x.lines = append(x.lines, line)
	return line
}

func (x *XList) Line(i int) (*XLine, error) {
	if i < 0 || i >= len(x.lines) {
		return nil, errors.Wrapf(ErrIndexOutOfBounds, "line %d >= limit %d", i, len(x.lines))
	}
	return x.lines[i], nil
}

func (x *XList) Lines() []*XLine {
	return append([]*XLine(nil), x.lines...)
}

func (x *XList) LineCount() int {
	return len(x.lines)
}

// FindLine returns the first line whose element at idx equals key.
func (x *XList) FindLine(key string, idx int) *XLine {
	for _, line := range x.lines {
		if idx < len(line.elements) && line.elements[idx] == key {
			return line
		}
	}
	return nil
}

// SearchValue returns the second element of the first line keyed by key.
func (x *XList) SearchValue(key string) (string, bool) {
	line := x.FindLine(key, 0)
	if line == nil || len(line.elements) < 2 {
		return "", false
	}
	return line.elements[1], true
}

// AllElements returns the elements of every line, in order.
func (x *XList) AllElements() *XLine {
	all := &XLine{}
	for _, line := range x.lines {
		all.Add(line.elements...)
	}
	return all
}

func (x *XList) Reset() {
	x.lines = nil
}

func (x *XList) String() string {
	var sb strings.Builder
	for _, line := range x.lines {
		sb.WriteString(line.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Load appends the lines read from r. Blank lines and '#' comments are skipped.
func (x *XList) Load(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		x.AddLine(strings.Fields(text)...)
	}
	return errors.Wrap(scanner.Err(), "read list")
}

func (x *XList) Save(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, line := range x.lines {
		if _, err := fmt.Fprintln(bw, line.String()); err != nil {
			return errors.Wrap(err, "write list")
		}
	}
	return errors.Wrap(bw.Flush(), "write list")
}

func LoadFile(path string) (*XList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open list [%s]", path)
	}
	defer f.Close()

	x := New()
	if err := x.Load(f); err != nil {
		return nil, errors.Wrapf(err, "load list [%s]", path)
	}
	return x, nil
}

func (x *XList) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create list [%s]", path)
	}
	if err := x.Save(f); err != nil {
		f.Close()
		return errors.Wrapf(err, "save list [%s]", path)
	}
	return errors.Wrapf(f.Close(), "save list [%s]", path)
}
