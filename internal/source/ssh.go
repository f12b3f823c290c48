package source

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/rjboer/iioview/scan"
)

// SSHConfig describes how to reach a remote board whose IIO devices should be
// viewed over an SSH session instead of locally mounted sysfs.
type SSHConfig struct {
	Host      string
	User      string
	Password  string
	KeyPath   string
	Port      int
	SysfsRoot string
}

// SSHSource reads scan-element descriptors from a remote sysfs tree and
// streams the capture device through a long-lived remote cat. It covers
// boards that run no IIOD daemon but accept SSH (typical for dev images).
type SSHSource struct {
	mu     sync.Mutex
	cfg    SSHConfig
	client *ssh.Client

	deviceDir string
	devNum    string

	stream  io.Reader
	session *ssh.Session
}

// NewSSHSource validates configuration and prepares the source; nothing is
// dialed until Connect.
func NewSSHSource(cfg SSHConfig) (*SSHSource, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("ssh host is required")
	}
	if cfg.User == "" {
		cfg.User = "root"
	}
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.SysfsRoot == "" {
		cfg.SysfsRoot = DefaultSysfsRoot
	}
	return &SSHSource{cfg: cfg}, nil
}

// Connect dials the board and locates the iio:deviceN directory whose name
// attribute matches deviceName.
func (s *SSHSource) Connect(ctx context.Context, deviceName string) error {
	if _, err := s.dial(ctx); err != nil {
		return err
	}

	listing, err := s.run(fmt.Sprintf("ls %s", s.cfg.SysfsRoot))
	if err != nil {
		return fmt.Errorf("list remote sysfs: %w", err)
	}
	for _, entry := range strings.Fields(listing) {
		if !strings.HasPrefix(entry, "iio:device") {
			continue
		}
		name, err := s.run(fmt.Sprintf("cat %s", path.Join(s.cfg.SysfsRoot, entry, "name")))
		if err != nil {
			continue
		}
		if strings.TrimSpace(name) == deviceName {
			s.deviceDir = path.Join(s.cfg.SysfsRoot, entry)
			s.devNum = strings.TrimPrefix(entry, "iio:device")
			return nil
		}
	}
	return fmt.Errorf("no IIO device named %q on %s", deviceName, s.cfg.Host)
}

// Channels enumerates scan_elements on the remote board, with the same
// shared-attribute fallback as the local sysfs source.
func (s *SSHSource) Channels(ctx context.Context) ([]scan.RawChannel, error) {
	if s.deviceDir == "" {
		return nil, fmt.Errorf("ssh source not connected")
	}
	scanDir := path.Join(s.deviceDir, "scan_elements")
	listing, err := s.run(fmt.Sprintf("ls %s", scanDir))
	if err != nil {
		return nil, fmt.Errorf("list remote scan_elements: %w", err)
	}

	var raws []scan.RawChannel
	for _, entry := range strings.Fields(listing) {
		if !strings.HasSuffix(entry, "_en") {
			continue
		}
		parts := strings.Split(entry, "_")
		if len(parts) < 3 {
			continue
		}
		direction := parts[0]
		name := strings.Join(parts[1:len(parts)-1], "_")

		raws = append(raws, scan.RawChannel{
			Name:      name,
			Direction: direction,
			Enabled:   s.remoteAttr(scanDir, direction, name, "en"),
			Index:     s.remoteAttr(scanDir, direction, name, "index"),
			Type:      s.remoteAttr(scanDir, direction, name, "type"),
			Offset:    s.remoteAttr(s.deviceDir, direction, name, "offset"),
			Scale:     s.remoteAttr(s.deviceDir, direction, name, "scale"),
		})
	}
	return raws, nil
}

// StartStream launches the remote chunk stream. Must be called after Connect
// and before Next.
func (s *SSHSource) StartStream(ctx context.Context) error {
	client, err := s.dial(ctx)
	if err != nil {
		return err
	}
	session, err := client.NewSession()
	if err != nil {
		return fmt.Errorf("create ssh stream session: %w", err)
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		session.Close()
		return fmt.Errorf("attach stream stdout: %w", err)
	}
	if err := session.Start(fmt.Sprintf("cat /dev/iio:device%s", s.devNum)); err != nil {
		session.Close()
		return fmt.Errorf("start remote capture: %w", err)
	}
	s.session = session
	s.stream = stdout
	return nil
}

// Next blocks until one full record arrives from the remote cat.
func (s *SSHSource) Next(ctx context.Context, buf []byte) error {
	if s.stream == nil {
		return fmt.Errorf("ssh stream not started")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := io.ReadFull(s.stream, buf)
	if err == io.EOF {
		return io.EOF
	}
	if err != nil {
		return fmt.Errorf("read remote chunk: %w", err)
	}
	return nil
}

func (s *SSHSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != nil {
		s.session.Close()
		s.session = nil
	}
	if s.client != nil {
		err := s.client.Close()
		s.client = nil
		return err
	}
	return nil
}

// remoteAttr reads one attribute, letting the remote shell expand the shared
// channel glob. Missing attributes become "" and resolve to defaults.
func (s *SSHSource) remoteAttr(dir, direction, name, postfix string) string {
	pattern := path.Join(dir, fmt.Sprintf("%s_%s*_%s", direction, name, postfix))
	out, err := s.run(fmt.Sprintf("cat %s 2>/dev/null | head -n1", pattern))
	if err != nil || strings.TrimSpace(out) == "" {
		base := strings.SplitN(name, "_", 2)[0]
		pattern = path.Join(dir, fmt.Sprintf("%s_%s*_%s", direction, base, postfix))
		out, err = s.run(fmt.Sprintf("cat %s 2>/dev/null | head -n1", pattern))
		if err != nil {
			return ""
		}
	}
	return strings.TrimSpace(out)
}

// run executes one remote command on a fresh session and returns its stdout.
func (s *SSHSource) run(cmd string) (string, error) {
	s.mu.Lock()
	client := s.client
	s.mu.Unlock()
	if client == nil {
		return "", fmt.Errorf("ssh source not connected")
	}

	session, err := client.NewSession()
	if err != nil {
		return "", fmt.Errorf("create ssh session: %w", err)
	}
	defer session.Close()

	out, err := session.Output(cmd)
	if err != nil {
		return "", fmt.Errorf("run %q: %w", cmd, err)
	}
	return string(out), nil
}

func (s *SSHSource) dial(ctx context.Context) (*ssh.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		return s.client, nil
	}

	auth := []ssh.AuthMethod{}
	if s.cfg.Password != "" {
		auth = append(auth, ssh.Password(s.cfg.Password))
	}
	if s.cfg.KeyPath != "" {
		key, err := os.ReadFile(s.cfg.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("read ssh key: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("parse ssh key: %w", err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if len(auth) == 0 {
		return nil, fmt.Errorf("no ssh password or key configured")
	}

	config := &ssh.ClientConfig{
		User:            s.cfg.User,
		Auth:            auth,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         5 * time.Second,
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	dialer := net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial ssh: %w", err)
	}

	clientConn, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		return nil, fmt.Errorf("create ssh client: %w", err)
	}

	s.client = ssh.NewClient(clientConn, chans, reqs)
	return s.client, nil
}
