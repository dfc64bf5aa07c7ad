// Package display reads the native pixel layout of an X11 display.
//
// A Conn is meant to be opened once per process and shared. Descriptors
// built from it copy the visual's masks and do not refer back to the
// connection, so they remain valid after it is closed. Closing the
// connection is left to the application.
package display

import (
	"errors"
	"fmt"

	"deedles.dev/xraster/format"
	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
)

// ConnectionError is returned when a display cannot be used.
type ConnectionError struct {
	Display string
	Err     error
}

func (err *ConnectionError) Error() string {
	name := err.Display
	if name == "" {
		name = "$DISPLAY"
	}
	return fmt.Sprintf("connect to display %v: %v", name, err.Err)
}

func (err *ConnectionError) Unwrap() error { return err.Err }

// Conn is a connection to an X server along with its default screen's
// root visual.
type Conn struct {
	x      *xgb.Conn
	name   string
	visual xproto.VisualInfo
}

// Open connects to the named display. An empty name uses the DISPLAY
// environment variable.
func Open(name string) (*Conn, error) {
	x, err := xgb.NewConnDisplay(name)
	if err != nil {
		return nil, &ConnectionError{Display: name, Err: err}
	}

	visual, err := rootVisual(x)
	if err != nil {
		x.Close()
		return nil, &ConnectionError{Display: name, Err: err}
	}

	return &Conn{
		x:      x,
		name:   name,
		visual: visual,
	}, nil
}

func rootVisual(x *xgb.Conn) (xproto.VisualInfo, error) {
	screen := xproto.Setup(x).DefaultScreen(x)
	for _, depth := range screen.AllowedDepths {
		for _, v := range depth.Visuals {
			if v.VisualId == screen.RootVisual {
				return v, nil
			}
		}
	}
	return xproto.VisualInfo{}, errors.New("root visual not found")
}

// Masks returns the red, green and blue masks of the default visual.
func (c *Conn) Masks() (r, g, b uint32) {
	return c.visual.RedMask, c.visual.GreenMask, c.visual.BlueMask
}

// Descriptor returns the pixel layout of the default visual.
func (c *Conn) Descriptor() format.Descriptor {
	return format.FromVisual(c)
}

// Close closes the connection. Descriptors obtained from it remain
// usable.
func (c *Conn) Close() {
	c.x.Close()
}

// Describe opens the named display and returns its descriptor along
// with the connection, which the caller is responsible for closing.
func Describe(name string) (format.Descriptor, *Conn, error) {
	c, err := Open(name)
	if err != nil {
		return format.Descriptor{}, nil, err
	}
	return c.Descriptor(), c, nil
}
