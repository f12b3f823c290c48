// Package iiod implements the read side of the IIOD ASCII protocol: context
// discovery via PRINT and buffered capture via OPEN/READBUF/CLOSE. It lets
// the viewer attach to a networked board (PlutoSDR and friends) without any
// sysfs access.
package iiod

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"
)

// Client speaks the IIOD ASCII protocol over a single TCP connection.
// Responses follow libiio framing: one ASCII integer line (status or payload
// length), then payload bytes when the integer is positive.
type Client struct {
	uri     string
	conn    net.Conn
	timeout time.Duration
}

// Dial connects to an IIOD server, e.g. "192.168.2.1:30431".
func Dial(ctx context.Context, uri string) (*Client, error) {
	d := net.Dialer{Timeout: 3 * time.Second}
	conn, err := d.DialContext(ctx, "tcp", uri)
	if err != nil {
		return nil, fmt.Errorf("connect to IIOD at %s: %w", uri, err)
	}
	return &Client{uri: uri, conn: conn, timeout: 5 * time.Second}, nil
}

// SetTimeout overrides the per-transaction read deadline.
func (c *Client) SetTimeout(d time.Duration) {
	if d > 0 {
		c.timeout = d
	}
}

func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// URI returns the server address this client is attached to.
func (c *Client) URI() string { return c.uri }

func (c *Client) writeAll(p []byte) error {
	for len(p) > 0 {
		n, err := c.conn.Write(p)
		if err != nil {
			return fmt.Errorf("write command: %w", err)
		}
		p = p[n:]
	}
	return nil
}

func (c *Client) readAll(p []byte) error {
	for len(p) > 0 {
		c.conn.SetReadDeadline(time.Now().Add(c.timeout))
		n, err := c.conn.Read(p)
		if err != nil {
			return fmt.Errorf("read payload: %w", err)
		}
		p = p[n:]
	}
	return nil
}

// readInteger reads one ASCII integer line byte-by-byte, matching libiio's
// iiod_client_read_integer(). Reading past the integer would swallow payload
// bytes, so no buffered reader is used here.
func (c *Client) readInteger() (int, error) {
	var buf []byte
	var one [1]byte
	started := false

	for {
		c.conn.SetReadDeadline(time.Now().Add(c.timeout))
		if _, err := c.conn.Read(one[:]); err != nil {
			return 0, fmt.Errorf("read status: %w", err)
		}
		b := one[0]
		if b == '\n' {
			if started {
				break
			}
			continue
		}
		if b == '\r' {
			continue
		}
		if (b >= '0' && b <= '9') || b == '-' {
			started = true
			buf = append(buf, b)
		}
	}

	val, err := strconv.Atoi(string(buf))
	if err != nil {
		return 0, fmt.Errorf("parse status %q: %w", string(buf), err)
	}
	return val, nil
}

// exec sends one command and returns the integer response.
func (c *Client) exec(cmd string) (int, error) {
	if c.conn == nil {
		return 0, fmt.Errorf("not connected")
	}
	if err := c.writeAll([]byte(cmd + "\r\n")); err != nil {
		return 0, err
	}
	return c.readInteger()
}

// Print fetches the XML context describing every device and channel.
func (c *Client) Print(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n, err := c.exec("PRINT")
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, fmt.Errorf("PRINT failed: %d", n)
	}
	payload := make([]byte, n)
	if err := c.readAll(payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// ReadAttr reads one device or channel attribute value.
func (c *Client) ReadAttr(ctx context.Context, device, channel, attr string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var cmd string
	if channel == "" {
		cmd = fmt.Sprintf("READ %s %s", device, attr)
	} else {
		cmd = fmt.Sprintf("READ %s %s %s", device, channel, attr)
	}
	n, err := c.exec(cmd)
	if err != nil {
		return "", err
	}
	if n < 0 {
		return "", fmt.Errorf("READ %s/%s/%s failed: %d", device, channel, attr, n)
	}
	payload := make([]byte, n)
	if err := c.readAll(payload); err != nil {
		return "", err
	}
	return string(payload), nil
}

// Open creates a capture buffer of the given sample count. maskHex is the
// channel enable mask exactly as IIOD expects, e.g. "ffffffff".
func (c *Client) Open(ctx context.Context, device string, samples int, maskHex string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ret, err := c.exec(fmt.Sprintf("OPEN %s %d %s", device, samples, maskHex))
	if err != nil {
		return err
	}
	if ret < 0 {
		return fmt.Errorf("OPEN %s failed: %d", device, ret)
	}
	return nil
}

// ReadBuf fills dst from the open buffer, following the libiio READBUF loop:
// the server announces a byte count, sends that many bytes, and repeats until
// the request is satisfied or it announces 0.
func (c *Client) ReadBuf(ctx context.Context, device string, dst []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(dst) == 0 {
		return 0, nil
	}
	if err := c.writeAll([]byte(fmt.Sprintf("READBUF %s %d\r\n", device, len(dst)))); err != nil {
		return 0, err
	}

	total := 0
	for total < len(dst) {
		n, err := c.readInteger()
		if err != nil {
			return total, err
		}
		if n < 0 {
			return total, fmt.Errorf("READBUF error: %d", n)
		}
		if n == 0 {
			break
		}
		if total+n > len(dst) {
			n = len(dst) - total
		}
		if err := c.readAll(dst[total : total+n]); err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// CloseBuffer releases the capture buffer on the server.
func (c *Client) CloseBuffer(ctx context.Context, device string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ret, err := c.exec(fmt.Sprintf("CLOSE %s", device))
	if err != nil {
		return err
	}
	if ret < 0 {
		return fmt.Errorf("CLOSE %s failed: %d", device, ret)
	}
	return nil
}
