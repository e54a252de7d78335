package cloudprint

import (
	"encoding/json"
	"time"
)

// ID is a provider identifier. The API sends numbers but older accounts
// return them as strings, so both decode.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*id = ID(n.String())
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*id = ID(s)
	return nil
}

// Job is a print job as reported by the provider.
type Job struct {
	ID        ID        `json:"id"`
	Title     string    `json:"title"`
	State     string    `json:"state"`
	Source    string    `json:"source,omitempty"`
	CreatedAt time.Time `json:"createTimestamp"`
}

// Computer is the machine a printer is attached to.
type Computer struct {
	ID    ID     `json:"id"`
	Name  string `json:"name"`
	State string `json:"state"`
}

// Capabilities lists what the printer driver advertises.
type Capabilities struct {
	Medias []string `json:"medias"`
	Color  bool     `json:"color"`
}

// Printer is a cloud printer.
type Printer struct {
	ID           ID            `json:"id"`
	Name         string        `json:"name"`
	State        string        `json:"state"`
	Computer     Computer      `json:"computer"`
	Capabilities *Capabilities `json:"capabilities"`
}

// Online reports whether both the printer and its computer are reachable.
func (p *Printer) Online() bool {
	if p == nil {
		return false
	}
	if foldState(p.State) != "online" {
		return false
	}
	switch foldState(p.Computer.State) {
	case "", "online", "connected":
		return true
	}
	return false
}

// submitRequest is the body of a new print job.
type submitRequest struct {
	PrinterID   int    `json:"printerId"`
	Title       string `json:"title"`
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
	Source      string `json:"source"`
}
