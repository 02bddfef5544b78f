package twofactor

import (
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
)

// Mailbox is the slice of an IMAP mailbox the retriever needs.
type Mailbox interface {
	// SearchFrom returns the UIDs of messages sent by sender, in any order.
	SearchFrom(ctx context.Context, sender string) ([]uint32, error)
	// Fetch returns the raw RFC 822 message.
	Fetch(ctx context.Context, uid uint32) ([]byte, error)
	// Delete flags the message deleted and expunges it.
	Delete(ctx context.Context, uid uint32) error
	Close() error
}

// Dialer opens a logged-in mailbox with INBOX selected.
type Dialer func(ctx context.Context) (Mailbox, error)

// IMAPConfig addresses an IMAP-over-TLS server.
type IMAPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Timeout  time.Duration
}

// IMAPDialer returns a Dialer for cfg.
func IMAPDialer(cfg IMAPConfig) Dialer {
	return func(ctx context.Context) (Mailbox, error) {
		return DialIMAP(ctx, cfg)
	}
}

type imapMailbox struct {
	c *client.Client
}

// DialIMAP connects over TLS, logs in and selects INBOX read-write.
func DialIMAP(ctx context.Context, cfg IMAPConfig) (Mailbox, error) {
	if cfg.Port == 0 {
		cfg.Port = 993
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	dialer := &net.Dialer{Timeout: cfg.Timeout}
	if deadline, ok := ctx.Deadline(); ok {
		dialer.Deadline = deadline
	}

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	c, err := client.DialWithDialerTLS(dialer, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	c.Timeout = cfg.Timeout

	if err := c.Login(cfg.Username, cfg.Password); err != nil {
		_ = c.Logout()
		return nil, fmt.Errorf("imap login: %w", err)
	}
	if _, err := c.Select("INBOX", false); err != nil {
		_ = c.Logout()
		return nil, fmt.Errorf("select inbox: %w", err)
	}
	return &imapMailbox{c: c}, nil
}

func (m *imapMailbox) SearchFrom(ctx context.Context, sender string) ([]uint32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	criteria := imap.NewSearchCriteria()
	criteria.Header.Add("From", sender)
	uids, err := m.c.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("search from %s: %w", sender, err)
	}
	return uids, nil
}

func (m *imapMailbox) Fetch(ctx context.Context, uid uint32) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	seqset := new(imap.SeqSet)
	seqset.AddNum(uid)

	section := &imap.BodySectionName{Peek: true}
	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- m.c.UidFetch(seqset, []imap.FetchItem{section.FetchItem()}, messages)
	}()

	var raw []byte
	var readErr error
	for msg := range messages {
		body := msg.GetBody(section)
		if body == nil || raw != nil {
			continue
		}
		raw, readErr = io.ReadAll(body)
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("fetch uid %d: %w", uid, err)
	}
	if readErr != nil {
		return nil, fmt.Errorf("read uid %d: %w", uid, readErr)
	}
	if raw == nil {
		return nil, fmt.Errorf("fetch uid %d: empty body", uid)
	}
	return raw, nil
}

func (m *imapMailbox) Delete(ctx context.Context, uid uint32) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	seqset := new(imap.SeqSet)
	seqset.AddNum(uid)

	item := imap.FormatFlagsOp(imap.AddFlags, true)
	if err := m.c.UidStore(seqset, item, []interface{}{imap.DeletedFlag}, nil); err != nil {
		return fmt.Errorf("flag uid %d deleted: %w", uid, err)
	}
	if err := m.c.Expunge(nil); err != nil {
		return fmt.Errorf("expunge: %w", err)
	}
	return nil
}

func (m *imapMailbox) Close() error {
	return m.c.Logout()
}
