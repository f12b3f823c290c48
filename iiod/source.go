package iiod

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/rjboer/iioview/scan"
)

// Source adapts an IIOD device to the viewer's descriptor and chunk
// contracts. Descriptors come from the XML context's scan elements; records
// come from a READBUF loop with exponential-backoff reconnect, since boards
// drop TCP sessions when their buffers are reconfigured.
type Source struct {
	URI     string
	Device  string // device name or ID in the IIOD context
	Samples int    // buffer size in samples for OPEN, default 1

	client *Client
	dev    *Device
	opened bool
}

// NewSource prepares a source; nothing is dialed until Channels or Next.
func NewSource(uri, device string) *Source {
	return &Source{URI: uri, Device: device, Samples: 1}
}

func (s *Source) connect(ctx context.Context) error {
	if s.client != nil {
		return nil
	}
	client, err := Dial(ctx, s.URI)
	if err != nil {
		return err
	}
	payload, err := client.Print(ctx)
	if err != nil {
		client.Close()
		return err
	}
	iioCtx, err := ParseContext(payload)
	if err != nil {
		client.Close()
		return err
	}
	dev, err := iioCtx.FindDevice(s.Device)
	if err != nil {
		client.Close()
		return err
	}
	s.client = client
	s.dev = dev
	s.opened = false
	return nil
}

// Channels lists the device's scan-element channels. A channel with a scan
// element is reported as enabled; the OPEN mask enables them all on the
// server side. Offset and scale come from inline context values when present
// and are otherwise fetched with READ.
func (s *Source) Channels(ctx context.Context) ([]scan.RawChannel, error) {
	if err := s.connect(ctx); err != nil {
		return nil, err
	}

	var raws []scan.RawChannel
	for i := range s.dev.Channels {
		ch := &s.dev.Channels[i]
		if ch.ScanElement == nil {
			continue
		}
		direction := "in"
		if ch.Type == "output" {
			direction = "out"
		}
		raws = append(raws, scan.RawChannel{
			Name:      ch.label(),
			Direction: direction,
			Enabled:   "1",
			Index:     ch.ScanElement.Index,
			Type:      ch.ScanElement.Format,
			Offset:    s.calibAttr(ctx, ch, "offset"),
			Scale:     s.calibAttr(ctx, ch, "scale"),
		})
	}
	if len(raws) == 0 {
		return nil, fmt.Errorf("device %s exposes no scan elements", s.Device)
	}
	return raws, nil
}

func (s *Source) calibAttr(ctx context.Context, ch *Channel, name string) string {
	if v := ch.attrValue(name); v != "" {
		return v
	}
	for _, a := range ch.Attributes {
		if a.Name != name {
			continue
		}
		v, err := s.client.ReadAttr(ctx, s.dev.ID, ch.ID, name)
		if err != nil {
			return ""
		}
		return v
	}
	return ""
}

// Next fills buf with one record, reopening the session with exponential
// backoff when the server drops it.
func (s *Source) Next(ctx context.Context, buf []byte) error {
	op := func() error {
		if err := s.connect(ctx); err != nil {
			return err
		}
		if !s.opened {
			samples := s.Samples
			if samples <= 0 {
				samples = 1
			}
			if err := s.client.Open(ctx, s.dev.ID, samples, "ffffffff"); err != nil {
				s.drop()
				return err
			}
			s.opened = true
		}
		n, err := s.client.ReadBuf(ctx, s.dev.ID, buf)
		if err != nil {
			s.drop()
			return err
		}
		if n == 0 {
			return backoff.Permanent(io.EOF)
		}
		if n < len(buf) {
			s.drop()
			return fmt.Errorf("short buffer read: got %d of %d bytes", n, len(buf))
		}
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 100 * time.Millisecond
	policy.MaxElapsedTime = 10 * time.Second
	err := backoff.Retry(op, backoff.WithContext(policy, ctx))
	if err == io.EOF {
		return io.EOF
	}
	if err != nil {
		return fmt.Errorf("IIOD stream: %w", err)
	}
	return nil
}

func (s *Source) drop() {
	if s.client != nil {
		s.client.Close()
	}
	s.client = nil
	s.dev = nil
	s.opened = false
}

func (s *Source) Close() error {
	if s.client == nil {
		return nil
	}
	if s.opened {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.client.CloseBuffer(ctx, s.dev.ID)
	}
	err := s.client.Close()
	s.client = nil
	return err
}
