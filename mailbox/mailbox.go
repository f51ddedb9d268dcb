// Package mailbox reads candidate messages from a remote IMAP mailbox.
package mailbox

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	imapv2 "github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"flightfwd/model"
)

// DefaultDialTimeout bounds the initial connection. It is deliberately
// generous; per-operation timeouts on the transport side are separate.
const DefaultDialTimeout = 60 * time.Second

type Options struct {
	Host        string
	Port        int
	Username    string
	Password    string
	DialTimeout time.Duration
}

// Client wraps a single logged-in IMAP session. All calls block; the session
// is used by exactly one run at a time.
type Client struct {
	opts     Options
	client   *imapclient.Client
	logger   *slog.Logger
	selected string
}

// Connect dials the server over TLS and logs in. Failures come back as a
// *ConnectError carrying a diagnosis kind for the presentation layer.
func Connect(opts Options, logger *slog.Logger) (*Client, error) {
	if opts.Host == "" {
		return nil, fmt.Errorf("imap host is empty")
	}
	if opts.Port <= 0 {
		return nil, fmt.Errorf("imap port must be positive")
	}

	timeout := opts.DialTimeout
	if timeout == 0 {
		timeout = DefaultDialTimeout
	}

	address := net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port))
	dialer := &net.Dialer{Timeout: timeout}
	conn, err := tls.DialWithDialer(dialer, "tcp", address, &tls.Config{ServerName: opts.Host})
	if err != nil {
		return nil, &ConnectError{Kind: classifyDialError(err), Host: opts.Host, Err: err}
	}

	client := imapclient.New(conn, &imapclient.Options{})
	if err := client.Login(opts.Username, opts.Password).Wait(); err != nil {
		_ = client.Close()
		return nil, &ConnectError{Kind: classifyLoginError(err), Host: opts.Host, Err: err}
	}

	if logger != nil {
		logger.Debug("imap connection established", "address", address, "user", opts.Username)
	}

	return &Client{opts: opts, client: client, logger: logger}, nil
}

// ListCandidates selects folder and returns the UIDs of messages received
// since the given date, in the order the server returned them.
func (c *Client) ListCandidates(folder string, since time.Time) ([]uint32, error) {
	if err := c.selectFolder(folder); err != nil {
		return nil, err
	}

	criteria := &imapv2.SearchCriteria{Since: since}
	data, err := c.client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("search %s since %s: %w", folder, since.Format("02-Jan-2006"), err)
	}

	uids := data.AllUIDs()
	out := make([]uint32, 0, len(uids))
	for _, uid := range uids {
		out = append(out, uint32(uid))
	}
	return out, nil
}

// Fetch retrieves one message's full content by UID. The fetch peeks, so it
// does not set \Seen; marking read is a separate, explicit call.
func (c *Client) Fetch(folder string, uid uint32) (model.RawMessage, error) {
	if err := c.selectFolder(folder); err != nil {
		return model.RawMessage{}, err
	}

	bodySection := &imapv2.FetchItemBodySection{Peek: true}
	fetchOpts := &imapv2.FetchOptions{
		UID:         true,
		BodySection: []*imapv2.FetchItemBodySection{bodySection},
	}

	fetchCmd := c.client.Fetch(imapv2.UIDSetNum(imapv2.UID(uid)), fetchOpts)

	msg := fetchCmd.Next()
	if msg == nil {
		_ = fetchCmd.Close()
		return model.RawMessage{}, fmt.Errorf("fetch %s uid %d: no such message", folder, uid)
	}

	buf, err := msg.Collect()
	if err != nil {
		_ = fetchCmd.Close()
		return model.RawMessage{}, fmt.Errorf("fetch %s uid %d: %w", folder, uid, err)
	}
	if err := fetchCmd.Close(); err != nil {
		return model.RawMessage{}, fmt.Errorf("fetch %s uid %d: %w", folder, uid, err)
	}

	raw := buf.FindBodySection(bodySection)
	if raw == nil {
		return model.RawMessage{}, fmt.Errorf("fetch %s uid %d: empty body section", folder, uid)
	}

	return model.RawMessage{Folder: folder, UID: uid, Raw: raw}, nil
}

// MarkSeen adds the \Seen flag to a message.
func (c *Client) MarkSeen(folder string, uid uint32) error {
	if err := c.selectFolder(folder); err != nil {
		return err
	}

	store := &imapv2.StoreFlags{
		Op:     imapv2.StoreFlagsAdd,
		Silent: true,
		Flags:  []imapv2.Flag{imapv2.FlagSeen},
	}
	if err := c.client.Store(imapv2.UIDSetNum(imapv2.UID(uid)), store, nil).Close(); err != nil {
		return fmt.Errorf("mark seen %s uid %d: %w", folder, uid, err)
	}
	return nil
}

// Close logs out and closes the connection. It is safe to call after a fatal
// error; the session close is still attempted.
func (c *Client) Close() error {
	if err := c.client.Logout().Wait(); err != nil {
		if c.logger != nil {
			c.logger.Warn("imap logout failed", "err", err)
		}
	}
	return c.client.Close()
}

func (c *Client) selectFolder(folder string) error {
	if c.selected == folder {
		return nil
	}
	if _, err := c.client.Select(folder, nil).Wait(); err != nil {
		return fmt.Errorf("select %s: %w", folder, err)
	}
	c.selected = folder
	return nil
}
