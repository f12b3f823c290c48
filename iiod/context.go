package iiod

import (
	"encoding/xml"
	"fmt"
)

// Context mirrors the parts of the IIOD XML context the viewer needs:
// devices, their channels, and each channel's scan element. The schema
// matches iiod output from v0.25 through current releases.
type Context struct {
	XMLName     xml.Name `xml:"context"`
	Name        string   `xml:"name,attr"`
	Description string   `xml:"description,attr"`
	Devices     []Device `xml:"device"`
}

type Device struct {
	ID       string    `xml:"id,attr"`
	Name     string    `xml:"name,attr"`
	Channels []Channel `xml:"channel"`
}

type Channel struct {
	ID   string `xml:"id,attr"`
	Name string `xml:"name,attr"`
	Type string `xml:"type,attr"` // input | output

	Attributes  []Attr       `xml:"attribute"`
	ScanElement *ScanElement `xml:"scan-element"`
}

type Attr struct {
	Name     string `xml:"name,attr"`
	Filename string `xml:"filename,attr"`
	Value    string `xml:"value,attr"`
}

// ScanElement carries the channel's position and packed format inside a
// capture record.
type ScanElement struct {
	Index  string `xml:"index,attr"`
	Format string `xml:"format,attr"`
}

// ParseContext decodes the PRINT payload.
func ParseContext(data []byte) (*Context, error) {
	var ctx Context
	if err := xml.Unmarshal(data, &ctx); err != nil {
		return nil, fmt.Errorf("parse IIOD context XML: %w", err)
	}
	return &ctx, nil
}

// FindDevice looks a device up by name first, then by ID.
func (c *Context) FindDevice(name string) (*Device, error) {
	for i := range c.Devices {
		if c.Devices[i].Name == name {
			return &c.Devices[i], nil
		}
	}
	for i := range c.Devices {
		if c.Devices[i].ID == name {
			return &c.Devices[i], nil
		}
	}
	return nil, fmt.Errorf("device %q not present in IIOD context", name)
}

// attrValue returns the inline value of a channel attribute, or "" when the
// context does not carry values (older iiod releases omit them).
func (ch *Channel) attrValue(name string) string {
	for _, a := range ch.Attributes {
		if a.Name == name {
			return a.Value
		}
	}
	return ""
}

// label returns the channel's display name, preferring the name attribute
// over the raw ID.
func (ch *Channel) label() string {
	if ch.Name != "" {
		return ch.Name
	}
	return ch.ID
}
