// Package printhelper talks to the desktop print helper that relays sheets
// to a locally attached printer over a websocket.
package printhelper

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/kozaktomas/photo-booth/internal/booth"
)

// Message types exchanged with the helper.
const (
	TypeGetPrinters = "GET_PRINTERS"
	TypePrinterList = "PRINTER_LIST"
	TypePrint       = "PRINT"
	TypePrintStatus = "PRINT_STATUS"
	TypeError       = "ERROR"
)

// Print status values reported by the helper.
const (
	StatusProcessing = "processing"
	StatusPrinting   = "printing"
	StatusSuccess    = "success"
	StatusError      = "error"
)

const defaultTimeout = 2 * time.Minute

// ErrHelperUnavailable is returned when the helper cannot be reached.
var ErrHelperUnavailable = errors.New("print helper is not reachable")

// Printer is a printer installed on the helper's machine.
type Printer struct {
	Name    string `json:"name"`
	Default bool   `json:"default,omitempty"`
	Status  string `json:"status,omitempty"`
}

// Message is the envelope of every helper message.
type Message struct {
	Type        string    `json:"type"`
	Printers    []Printer `json:"printers,omitempty"`
	Data        string    `json:"data,omitempty"`
	PrinterName string    `json:"printerName,omitempty"`
	Title       string    `json:"title,omitempty"`
	Status      string    `json:"status,omitempty"`
	Message     string    `json:"message,omitempty"`
}

// PrintError is a failure reported by the helper itself.
type PrintError struct {
	Message string
}

func (e *PrintError) Error() string {
	if e.Message == "" {
		return "print helper reported an error"
	}
	return "print helper: " + e.Message
}

// Client connects to the helper for each operation.
type Client struct {
	url     string
	printer string
	dialer  *websocket.Dialer
	timeout time.Duration
	log     zerolog.Logger

	// OnStatus receives intermediate print status updates.
	OnStatus func(status string)
}

// New creates a client for the helper at url. printer is the default
// printer name sent with print jobs; empty lets the helper choose.
func New(url, printer string, log zerolog.Logger) *Client {
	return &Client{
		url:     url,
		printer: printer,
		dialer:  &websocket.Dialer{HandshakeTimeout: 5 * time.Second},
		timeout: defaultTimeout,
		log:     log.With().Str("component", "printhelper").Logger(),
	}
}

// WithPrinter returns a copy of the client that prints to name.
func (c *Client) WithPrinter(name string) *Client {
	cp := *c
	cp.printer = name
	return &cp
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, func(), error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	conn, resp, err := c.dialer.DialContext(ctx, c.url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		cancel()
		return nil, nil, fmt.Errorf("%w: %v", ErrHelperUnavailable, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
		_ = conn.SetWriteDeadline(deadline)
	}

	// Unblock pending reads when the caller gives up.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	return conn, func() {
		stop()
		cancel()
		conn.Close()
	}, nil
}

// Printers asks the helper for its installed printers.
func (c *Client) Printers(ctx context.Context) ([]Printer, error) {
	conn, done, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	if err := conn.WriteJSON(Message{Type: TypeGetPrinters}); err != nil {
		return nil, fmt.Errorf("send printer request: %w", err)
	}

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			return nil, fmt.Errorf("read printer list: %w", err)
		}
		switch msg.Type {
		case TypePrinterList:
			return msg.Printers, nil
		case TypeError:
			return nil, &PrintError{Message: msg.Message}
		default:
			c.log.Debug().Str("type", msg.Type).Msg("Ignoring helper message")
		}
	}
}

// Print sends the sheet and waits until the helper reports success or
// failure. It implements booth.Printer.
func (c *Client) Print(ctx context.Context, job booth.PrintJob) error {
	conn, done, err := c.dial(ctx)
	if err != nil {
		return err
	}
	defer done()

	req := Message{
		Type:        TypePrint,
		Data:        base64.StdEncoding.EncodeToString(job.Data),
		PrinterName: c.printer,
		Title:       job.Title,
	}
	if err := conn.WriteJSON(req); err != nil {
		return fmt.Errorf("send print job: %w", err)
	}

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			return fmt.Errorf("read print status: %w", err)
		}
		status := msg.Status
		if status == "" {
			status = strings.ToLower(msg.Type)
		}

		switch status {
		case StatusSuccess:
			c.log.Info().Str("printer", c.printer).Str("title", job.Title).Msg("Helper printed sheet")
			return nil
		case StatusError:
			return &PrintError{Message: msg.Message}
		case StatusProcessing, StatusPrinting:
			if c.OnStatus != nil {
				c.OnStatus(status)
			}
		default:
			c.log.Debug().Str("type", msg.Type).Str("status", msg.Status).Msg("Ignoring helper message")
		}
	}
}
